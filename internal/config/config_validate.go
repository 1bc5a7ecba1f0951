// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateCore(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateIPC(); err != nil {
		return err
	}

	if err := c.validatePlayback(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validNodeModes defines the allowed node modes
var validNodeModes = map[string]bool{
	ModeLive:   true,
	ModeReplay: true,
}

// validateCore validates node-level configuration
func (c *Config) validateCore() error {
	if !validNodeModes[c.Core.Mode] {
		return fmt.Errorf("NOVA_MODE must be one of: live, replay")
	}
	if c.Core.DataDir == "" {
		return fmt.Errorf("NOVA_DATA_DIR must not be empty")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxRetention   = 365
	natsMinRetention   = 1
	natsMaxSubscribers = 32
)

// validateNATS validates broker and ingest router configuration
func (c *Config) validateNATS() error {
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NOVA_NATS_URL is invalid: %w", err)
	}

	return c.validateNATSLimits()
}

// validateNATSLimits validates NATS storage and processing limits
func (c *Config) validateNATSLimits() error {
	validators := []func() error{
		c.validateNATSMemory,
		c.validateNATSStore,
		c.validateNATSRetention,
		c.validateNATSSubscribers,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateNATSMemory validates NATS max memory setting
func (c *Config) validateNATSMemory() error {
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NOVA_NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	return nil
}

// validateNATSStore validates NATS max store setting
func (c *Config) validateNATSStore() error {
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NOVA_NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	return nil
}

// validateNATSRetention validates NATS stream retention days
func (c *Config) validateNATSRetention() error {
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NOVA_NATS_RETENTION_DAYS must be between 1 and 365")
	}
	return nil
}

// validateNATSSubscribers validates ingest decoder count
func (c *Config) validateNATSSubscribers() error {
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NOVA_NATS_SUBSCRIBERS must be between 1 and 32")
	}
	return nil
}

// IPC timeout bounds. Timeouts come from config rather than call sites so
// operators can widen them on slow storage without a rebuild.
const (
	ipcMinTimeout = 100 * time.Millisecond
	ipcMaxTimeout = time.Hour
)

// validateIPC validates request/response timeout configuration
func (c *Config) validateIPC() error {
	timeouts := map[string]time.Duration{
		"NOVA_IPC_QUERY_TIMEOUT":      c.IPC.QueryTimeout,
		"NOVA_IPC_STREAM_ACK_TIMEOUT": c.IPC.StreamAckTimeout,
		"NOVA_IPC_COMMAND_TIMEOUT":    c.IPC.CommandTimeout,
		"NOVA_IPC_INGEST_TIMEOUT":     c.IPC.IngestTimeout,
		"NOVA_IPC_EXPORT_TIMEOUT":     c.IPC.ExportTimeout,
	}
	for name, d := range timeouts {
		if d < ipcMinTimeout || d > ipcMaxTimeout {
			return fmt.Errorf("%s must be between %v and %v", name, ipcMinTimeout, ipcMaxTimeout)
		}
	}

	if c.IPC.BreakerMaxFailures < 1 {
		return fmt.Errorf("NOVA_IPC_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

// validBackpressurePolicies defines the allowed backpressure policy names
var validBackpressurePolicies = map[string]bool{
	"catchUp":    true,
	"disconnect": true,
}

// validatePlayback validates playback engine configuration
func (c *Config) validatePlayback() error {
	if c.Playback.ChunkSize < 1 || c.Playback.ChunkSize > 100000 {
		return fmt.Errorf("NOVA_PLAYBACK_CHUNK_SIZE must be between 1 and 100000")
	}
	if c.Playback.ChunkInterval < time.Millisecond || c.Playback.ChunkInterval > time.Second {
		return fmt.Errorf("NOVA_PLAYBACK_CHUNK_INTERVAL must be between 1ms and 1s")
	}
	if c.Playback.QueueCapacity < 1 {
		return fmt.Errorf("NOVA_PLAYBACK_QUEUE_CAPACITY must be at least 1")
	}
	if !validBackpressurePolicies[c.Playback.DefaultBackpressure] {
		return fmt.Errorf("NOVA_PLAYBACK_BACKPRESSURE must be one of: catchUp, disconnect")
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("NOVA_HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

// validateSecurity validates security configuration
func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	if err := c.validateLockout(); err != nil {
		return err
	}

	if err := c.validateAdminBootstrap(); err != nil {
		return err
	}

	return c.validateOIDC()
}

// validateJWTSecret validates the session signing secret. A missing secret is
// tolerated in development (one is generated at startup) but refused in
// production so restarts cannot silently invalidate sessions.
func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("NOVA_JWT_SECRET is required when ENVIRONMENT=production - generate one with: openssl rand -base64 32")
		}
		return nil
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("NOVA_JWT_SECRET must be at least 32 characters for security")
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("NOVA_JWT_SECRET contains a placeholder value - generate a secure secret with: openssl rand -base64 32")
	}
	return nil
}

// validateCORS validates CORS configuration for security best practices.
// In production, wildcard CORS is rejected: wildcard origins plus cookie
// authentication lets any website drive an authenticated session.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("NOVA_CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: NOVA_CORS_ORIGINS=https://yourdomain.com " +
			"or use ENVIRONMENT=development for testing purposes")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration has security concerns
// that should be logged at startup
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}

	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("NOVA_RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("NOVA_RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validateLockout validates login lockout configuration
func (c *Config) validateLockout() error {
	if c.Security.LockoutThreshold < 1 || c.Security.LockoutThreshold > 100 {
		return fmt.Errorf("NOVA_LOCKOUT_THRESHOLD must be between 1 and 100")
	}
	if c.Security.LockoutDuration < time.Second || c.Security.LockoutDuration > 24*time.Hour {
		return fmt.Errorf("NOVA_LOCKOUT_DURATION must be between 1s and 24h")
	}
	return nil
}

// validateAdminBootstrap validates the bootstrap admin credentials when set.
// Both empty is fine (existing user store or registration flow); setting only
// one of the pair is always a mistake.
func (c *Config) validateAdminBootstrap() error {
	user, pass := c.Security.AdminUsername, c.Security.AdminPassword
	if user == "" && pass == "" {
		return nil
	}
	if user == "" || pass == "" {
		return fmt.Errorf("NOVA_ADMIN_USERNAME and NOVA_ADMIN_PASSWORD must be set together")
	}
	if containsPlaceholder(pass) {
		return fmt.Errorf("NOVA_ADMIN_PASSWORD contains a placeholder value - set a secure password")
	}
	if err := c.validatePasswordPolicy(pass, user); err != nil {
		return fmt.Errorf("NOVA_ADMIN_PASSWORD: %w", err)
	}
	return nil
}

// validatePasswordPolicy validates a password against the admin password policy.
func (c *Config) validatePasswordPolicy(password, username string) error {
	policy := DefaultPasswordPolicy()
	if !c.IsProduction() {
		policy = RelaxedPasswordPolicy()
	}
	return policy.ValidateWithError(password, username)
}

// validateOIDC validates OIDC relying-party configuration (only when the
// issuer is set; empty issuer means SSO is off).
func (c *Config) validateOIDC() error {
	if c.Security.OIDC.IssuerURL == "" {
		return nil
	}

	if err := validateOIDCIssuerURL(c.Security.OIDC.IssuerURL); err != nil {
		return fmt.Errorf("OIDC_ISSUER_URL is invalid: %w", err)
	}
	if c.Security.OIDC.ClientID == "" {
		return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC_ISSUER_URL is set")
	}
	if c.Security.OIDC.RedirectURL == "" {
		return fmt.Errorf("OIDC_REDIRECT_URL is required when OIDC_ISSUER_URL is set")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
// Production mode is determined by the ENVIRONMENT environment variable.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value. This prevents accidental deployment
// with insecure default credentials.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"YOUR_PASSWORD",
	"PLACEHOLDER",
	"TODO",
	"FIXME",
	"XXX",
	"EXAMPLE",
}

// containsPlaceholder checks if a value contains common placeholder patterns
// that indicate the user forgot to set a real value.
func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
