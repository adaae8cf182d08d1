package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/inventory-identity/models"
	"github.com/upb/inventory-identity/repositories"
	"github.com/upb/inventory-identity/services"
	"go.uber.org/zap"
)

// AuditRecorder receives auth events. Implementations must not block.
type AuditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, *models.AuditLog) {}

// RecorderOrNop returns r, or a recorder that discards events when r is nil
func RecorderOrNop(r AuditRecorder) AuditRecorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}

// SignupInput is a new owner together with the company it creates
type SignupInput struct {
	Name        string
	Email       string
	Password    string
	CompanyName string
}

// Service orchestrates login, signup, refresh and request authentication
type Service struct {
	users     repositories.UserRepository
	companies repositories.CompanyRepository
	stores    repositories.StoreRepository
	sessions  repositories.SessionRepository
	txMgr     repositories.TransactionManager
	hasher    PasswordHasher
	issuer    *TokenIssuer
	audit     AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the auth gateway. recorder may be nil.
func NewService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	hasher PasswordHasher,
	issuer *TokenIssuer,
	recorder AuditRecorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:     repos.Users,
		companies: repos.Companies,
		stores:    repos.Stores,
		sessions:  repos.Sessions,
		txMgr:     txMgr,
		hasher:    hasher,
		issuer:    issuer,
		audit:     RecorderOrNop(recorder),
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for session expiry checks
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issuer exposes the token issuer to the refresh guard
func (s *Service) Issuer() *TokenIssuer {
	return s.issuer
}

// Login authenticates by email and password. An unknown email and a wrong
// password return the same error after the same amount of hashing work.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	digest := ""
	if user != nil {
		digest = user.PasswordHash
	}

	ok, err := s.hasher.Verify(ctx, digest, password)
	if err != nil {
		return nil, services.WrapInternal("failed to verify password", err)
	}
	if !ok {
		s.logger.Debug("login rejected", zap.String("email", email))
		event := models.NewAuditLog(models.AuditActionLoginFailed).WithEmail(email)
		if user != nil {
			event = s.eventFor(models.AuditActionLoginFailed, user)
		}
		s.audit.Record(ctx, event)
		return nil, services.ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, s.eventFor(models.AuditActionLoginSucceeded, user))
	return pair, nil
}

// Signup creates an OWNER and its company in one transaction and starts a session
func (s *Service) Signup(ctx context.Context, in SignupInput) (*TokenPair, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, services.ErrDuplicateEmail
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	digest, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Name, in.Email, digest, models.RoleOwner)
	company := models.NewCompany(in.CompanyName, user.ID)

	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return services.ErrDuplicateEmail.Wrap(err)
			}
			return err
		}
		return s.companies.Create(ctx, company)
	})
	if err != nil {
		if services.IsConflictError(err) {
			return nil, err
		}
		return nil, services.ErrTransactionFailed.Wrap(err)
	}

	companyID := company.ID
	user.CompanyID = &companyID

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("owner signed up",
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", company.ID.String()))
	s.audit.Record(ctx, s.eventFor(models.AuditActionSignup, user).
		WithDetails(map[string]string{"company_name": company.Name}))

	return pair, nil
}

// Refresh exchanges the presented refresh token of userID for a new pair and
// rotates the stored session. The presented token is consumed: presenting it again fails.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID, presented string) (*TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Debug("refresh for unknown principal", zap.String("user_id", userID.String()))
			return nil, services.ErrUnauthorized
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSessionNotFound
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	if !TokenMatches(presented, session.TokenHash) {
		s.rejectRefresh(ctx, user, "digest mismatch")
		return nil, services.ErrTokenReused
	}

	if session.IsExpired(s.now()) {
		return nil, services.ErrSessionExpired
	}

	pair, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, services.WrapInternal("failed to issue tokens", err)
	}

	err = s.sessions.Rotate(ctx, user.ID, session.TokenHash, HashToken(pair.RefreshToken), pair.RefreshExpiresAt)
	if err != nil {
		if errors.Is(err, repositories.ErrStaleSession) {
			s.rejectRefresh(ctx, user, "concurrent rotation")
			return nil, services.ErrTokenReused
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	s.audit.Record(ctx, s.eventFor(models.AuditActionRefreshRotated, user))
	return pair, nil
}

// Authenticate verifies an access token and reloads its principal and tenant.
// A vanished principal is reported as unauthorized.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.Identity, error) {
	claims, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUnauthorized
		}
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	if user.Email != claims.Email {
		return nil, services.ErrInvalidToken
	}

	tenant, err := ResolveTenant(user)
	if err != nil {
		return nil, err
	}

	return &models.Identity{User: user, Tenant: tenant}, nil
}

func (s *Service) startSession(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, services.WrapInternal("failed to issue tokens", err)
	}

	session := models.NewRefreshSession(user.ID, HashToken(pair.RefreshToken), pair.RefreshExpiresAt)
	if err := s.sessions.Upsert(ctx, session); err != nil {
		return nil, services.ErrDatabaseError.Wrap(err)
	}

	return pair, nil
}

// rejectRefresh records a refresh attempt with a token that is not the current one.
// The active session is left in place.
func (s *Service) rejectRefresh(ctx context.Context, user *models.User, reason string) {
	s.logger.Warn("refresh token rejected",
		zap.String("user_id", user.ID.String()),
		zap.String("reason", reason))
	s.audit.Record(ctx, s.eventFor(models.AuditActionRefreshRejected, user).
		WithDetails(map[string]string{"reason": reason}))
}

func (s *Service) eventFor(action models.AuditAction, user *models.User) *models.AuditLog {
	log := models.NewAuditLog(action).WithUser(user.ID).WithEmail(user.Email)
	if tenant, err := ResolveTenant(user); err == nil {
		log.WithCompany(tenant.CompanyID)
	}
	return log
}
