package permissions

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var rulesJSON []byte

// Permission is the access rule of one chi route pattern. Permissions lists the roles
// allowed; Skip makes the route public.
type Permission struct {
	Permissions []string `json:"permissions"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Skip        bool     `json:"skip"`
}

// PermissionData indexes the rules by method and route pattern. Skip disables role checks
// everywhere.
type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`

	index map[string]Permission
}

// ruleKey drops trailing slashes, so "/v1/rooms" and "/v1/rooms/" share one rule.
func ruleKey(method, path string) string {
	if trimmed := strings.TrimRight(path, "/"); trimmed != "" {
		path = trimmed
	} else {
		path = "/"
	}

	return strings.ToUpper(method) + " " + path
}

// FindPermissions returns the zero Permission for routes without a rule: authenticated,
// any role.
func (r *PermissionData) FindPermissions(path, method string) Permission {
	return r.index[ruleKey(method, path)]
}

// Parse decodes a rule set and rejects duplicated routes.
func Parse(data []byte) (*PermissionData, error) {
	var rules PermissionData

	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}

	rules.index = make(map[string]Permission, len(rules.Endpoints))

	for _, endpoint := range rules.Endpoints {
		key := ruleKey(endpoint.Method, endpoint.Path)
		if _, dup := rules.index[key]; dup {
			return nil, fmt.Errorf("duplicate permission for %s", key)
		}

		rules.index[key] = endpoint
	}

	return &rules, nil
}

// Get loads the embedded rule set. A broken file leaves the service without rules, which
// the RBAC middleware treats as deny-all.
func Get() *PermissionData {
	rules, err := Parse(rulesJSON)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load embedded permissions")

		return nil
	}

	log.Info().Int("endpoints", len(rules.Endpoints)).Msg("Loaded embedded permissions")

	return rules
}
