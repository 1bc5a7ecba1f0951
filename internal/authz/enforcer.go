// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/nova-telemetry/nova/internal/config"
	"github.com/nova-telemetry/nova/internal/metrics"
	"github.com/nova-telemetry/nova/internal/nverr"
)

// Capabilities checked against the policy.
const (
	CapRead    = "read"
	CapCommand = "command"
	CapAdmin   = "admin"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Enforcer answers role/capability questions against the Casbin
// policy. Safe for concurrent use.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the enforcer from the embedded model and policy,
// or from the configured files when both exist on disk.
func NewEnforcer(cfg *config.CasbinConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg != nil && cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg != nil && cfg.PolicyPath != "" && fileExists(cfg.PolicyPath) {
		adapter := fileadapter.NewAdapter(cfg.PolicyPath)
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = seedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// seedPolicy loads the embedded policy CSV rule by rule.
func seedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 3 {
			continue
		}

		switch parts[0] {
		case "p":
			if _, err := enforcer.AddPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case "g":
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		}
	}
	return nil
}

// Can reports whether the role has the capability, directly or through
// role inheritance.
func (e *Enforcer) Can(role, capability string) (bool, error) {
	allowed, err := e.enforcer.Enforce(role, capability)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// Require returns a permission-denied error unless the role has the
// capability. Enforcement errors surface as internal, not denied, so a
// broken policy never silently authorizes.
func (e *Enforcer) Require(role, capability string) error {
	allowed, err := e.enforcer.Enforce(role, capability)
	if err != nil {
		return nverr.Wrap(nverr.KindInternal, "authorization check failed", err)
	}
	if !allowed {
		metrics.RecordAuthzDenial(role, capability)
		return nverr.Newf(nverr.KindPermissionDenied, "role %q lacks %q capability", role, capability)
	}
	return nil
}

// Roles returns the roles known to the policy, for admin listings.
func (e *Enforcer) Roles() []string {
	roles, _ := e.enforcer.GetAllSubjects()
	return roles
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
