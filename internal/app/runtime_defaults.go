package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/studyhall/internal/store"
	"github.com/charlesng35/studyhall/pkg/crypto"
)

const (
	bootstrapPasswordBytes = 12
	// bootstrapPasswordPrefix guarantees every character class the password policy asks for.
	bootstrapPasswordPrefix = "Sh1!"

	defaultAuditRetentionDays = 90
)

// ApplyRuntimeDefaults fills settings that must never be empty at runtime. It returns a map
// describing which keys were generated so callers can log the event.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if cfg.Invitations.TTL <= 0 {
		cfg.Invitations.TTL = store.DefaultInvitationTTL
	}
	if cfg.Invitations.CodeLength <= 0 {
		cfg.Invitations.CodeLength = store.DefaultCodeLength
	}
	if cfg.Maintenance.AuditRetentionDays <= 0 {
		cfg.Maintenance.AuditRetentionDays = defaultAuditRetentionDays
	}

	admin := &cfg.Bootstrap.Admin
	if admin.Enabled() && admin.Password == "" {
		token, err := crypto.GenerateToken(bootstrapPasswordBytes)
		if err != nil {
			return nil, fmt.Errorf("generate bootstrap admin password: %w", err)
		}
		admin.Password = bootstrapPasswordPrefix + token
		generated["bootstrap.admin.password"] = true
	}
	admin.Username = strings.TrimSpace(admin.Username)

	return generated, nil
}
