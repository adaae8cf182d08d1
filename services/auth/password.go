package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher produces and checks one-way password digests
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. An empty digest never matches
	// but costs the same as a real comparison.
	Verify(ctx context.Context, digest, plaintext string) (bool, error)
}

// Argon2Params are the argon2id cost parameters
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params follows the OWASP argon2id recommendation
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

var errInvalidDigest = errors.New("invalid PHC digest")

// Argon2Hasher hashes passwords with argon2id and encodes them in PHC form:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
type Argon2Hasher struct {
	params Argon2Params
	slots  *semaphore.Weighted
	dummy  string
}

// NewArgon2Hasher creates a hasher that runs at most concurrency derivations at once
func NewArgon2Hasher(params Argon2Params, concurrency int) (*Argon2Hasher, error) {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	h := &Argon2Hasher{
		params: params,
		slots:  semaphore.NewWeighted(int64(concurrency)),
	}

	dummy, err := h.Hash(context.Background(), "timing-equalisation-placeholder")
	if err != nil {
		return nil, fmt.Errorf("failed to precompute dummy digest: %w", err)
	}
	h.dummy = dummy

	return h, nil
}

// Hash derives a fresh salted digest of plaintext
func (h *Argon2Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	h.slots.Release(1)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks plaintext against digest in constant time
func (h *Argon2Hasher) Verify(ctx context.Context, digest, plaintext string) (bool, error) {
	matchable := digest != ""
	if !matchable {
		digest = h.dummy
	}

	salt, key, params, err := decodePHC(digest)
	if err != nil {
		return false, err
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(plaintext), salt, params.Time, params.Memory, params.Threads, uint32(len(key)))
	h.slots.Release(1)

	equal := subtle.ConstantTimeCompare(key, candidate) == 1
	return equal && matchable, nil
}

func decodePHC(encoded string) (salt, key []byte, params Argon2Params, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, params, errInvalidDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, params, fmt.Errorf("%w: version %q", errInvalidDigest, parts[2])
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return nil, nil, params, fmt.Errorf("%w: parameters: %v", errInvalidDigest, err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, params, fmt.Errorf("%w: salt: %v", errInvalidDigest, err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, params, fmt.Errorf("%w: hash: %v", errInvalidDigest, err)
	}

	return salt, key, params, nil
}
