package policy

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/upb/inventory-identity/models"
	"gopkg.in/yaml.v3"
)

// overrideFile is the on-disk shape of a route policy file:
//
//	routes:
//	  audit.list:
//	    roles: [OWNER, MANAGER]
type overrideFile struct {
	Routes map[string]routeOverride `yaml:"routes"`
}

type routeOverride struct {
	Public *bool    `yaml:"public"`
	Roles  []string `yaml:"roles"`
}

// LoadFile reads overrides from path and applies them to base.
// An empty path returns a copy of base unchanged.
func LoadFile(path string, base RouteTable) (RouteTable, error) {
	if path == "" {
		return base.Clone(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open route policy file: %w", err)
	}
	defer f.Close()

	return Load(f, base)
}

// Load decodes YAML overrides from r and applies them to a copy of base.
// Unknown route ids, unknown role names and empty role lists are errors.
func Load(r io.Reader, base RouteTable) (RouteTable, error) {
	var file overrideFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode route policy file: %w", err)
	}

	out := base.Clone()

	// Sorted so the first reported error is deterministic.
	ids := make([]string, 0, len(file.Routes))
	for id := range file.Routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		current, ok := out[id]
		if !ok {
			return nil, fmt.Errorf("unknown route id %q in route policy file", id)
		}
		override := file.Routes[id]

		if override.Public != nil {
			current.Public = *override.Public
		}
		if override.Roles != nil {
			if len(override.Roles) == 0 {
				return nil, fmt.Errorf("empty role list for route %q", id)
			}
			roles := make([]models.Role, 0, len(override.Roles))
			for _, name := range override.Roles {
				role, ok := models.ParseRole(name)
				if !ok {
					return nil, fmt.Errorf("unknown role %q for route %q", name, id)
				}
				roles = append(roles, role)
			}
			current.Roles = roles
		}
		out[id] = current
	}

	return out, nil
}
