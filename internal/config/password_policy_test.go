// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package config

import (
	"strings"
	"testing"
)

func TestPasswordPolicy_Validate_Length(t *testing.T) {
	t.Parallel()

	policy := DefaultPasswordPolicy()

	shortPassword := "Ab1!"
	result := policy.Validate(shortPassword, "")
	if result.Valid {
		t.Error("Expected short password to fail validation")
	}

	foundLengthError := false
	for _, err := range result.Errors {
		if strings.Contains(err, "at least 12 characters") {
			foundLengthError = true
			break
		}
	}
	if !foundLengthError {
		t.Error("Expected length error message")
	}

	longEnough := policy.Validate("Vq7#mXz2$Lw9k", "")
	if !longEnough.Valid {
		t.Errorf("Expected 13-char password with all classes to pass: %v", longEnough.Errors)
	}
}

func TestPasswordPolicy_Validate_CharClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		wantFail bool
		errWord  string
	}{
		{
			name:     "missing uppercase",
			policy:   PasswordPolicy{MinLength: 8, RequireUppercase: true},
			password: "abcdefgh123!",
			wantFail: true,
			errWord:  "uppercase",
		},
		{
			name:     "has uppercase",
			policy:   PasswordPolicy{MinLength: 8, RequireUppercase: true},
			password: "Abcdefgh123!",
		},
		{
			name:     "missing lowercase",
			policy:   PasswordPolicy{MinLength: 8, RequireLowercase: true},
			password: "ABCDEFGH123!",
			wantFail: true,
			errWord:  "lowercase",
		},
		{
			name:     "has lowercase",
			policy:   PasswordPolicy{MinLength: 8, RequireLowercase: true},
			password: "ABCDEFGHa123!",
		},
		{
			name:     "missing digit",
			policy:   PasswordPolicy{MinLength: 8, RequireDigit: true},
			password: "Abcdefgh!",
			wantFail: true,
			errWord:  "digit",
		},
		{
			name:     "has digit",
			policy:   PasswordPolicy{MinLength: 8, RequireDigit: true},
			password: "Abcdefgh1!",
		},
		{
			name:     "missing special",
			policy:   PasswordPolicy{MinLength: 8, RequireSpecial: true},
			password: "Abcdefgh123",
			wantFail: true,
			errWord:  "special",
		},
		{
			name:     "has special",
			policy:   PasswordPolicy{MinLength: 8, RequireSpecial: true},
			password: "Abcdefgh123!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.policy.Validate(tt.password, "")
			if tt.wantFail {
				if result.Valid {
					t.Errorf("Expected %q to fail", tt.password)
				}
				if !containsError(result.Errors, tt.errWord) {
					t.Errorf("Expected %q error message, got %v", tt.errWord, result.Errors)
				}
			} else if !result.Valid {
				t.Errorf("Expected %q to pass: %v", tt.password, result.Errors)
			}
		})
	}
}

func TestPasswordPolicy_Validate_ConsecutiveRepeats(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:             8,
		MaxConsecutiveRepeats: 3,
	}

	result := policy.Validate("aaaa1234", "")
	if result.Valid {
		t.Error("Expected password with 4+ consecutive repeats to fail")
	}
	if !containsError(result.Errors, "consecutive repeated") {
		t.Error("Expected consecutive repeats error message")
	}

	result = policy.Validate("aaa12345", "")
	if !result.Valid {
		t.Errorf("Expected password with 3 consecutive repeats to pass: %v", result.Errors)
	}
}

func TestPasswordPolicy_Validate_CommonPasswords(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:             1, // isolate the common-password check
		ForbidCommonPasswords: true,
	}

	common := []string{
		"password",
		"123456",
		"qwerty",
		"admin",
		"admin123",
		"letmein",
		"password123",
		"nova",
		"nova123",
		"telemetry",
		"truthstore",
		"operator123",
	}

	for _, pass := range common {
		t.Run(pass, func(t *testing.T) {
			result := policy.Validate(pass, "")
			if result.Valid {
				t.Errorf("Expected common password %q to fail", pass)
			}
			if !containsError(result.Errors, "too common") {
				t.Errorf("Expected common password error for %q", pass)
			}
		})
	}
}

func TestPasswordPolicy_Validate_UsernameSimilarity(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength:                1,
		ForbidUsernameSimilarity: true,
	}

	tests := []struct {
		name     string
		password string
		username string
		wantFail bool
	}{
		{"contains username", "myadmin123", "admin", true},
		{"username reversed", "nimda123", "admin", true},
		// "admin" with a->@ substitution is "@dmin", found in the password
		{"username with substitutions", "x@dmin123", "admin", true},
		{"different enough", "XyZ789!#$%", "admin", false},
		{"empty username", "password123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.Validate(tt.password, tt.username)
			if tt.wantFail && result.Valid {
				t.Errorf("Expected password %q with username %q to fail", tt.password, tt.username)
			}
			if !tt.wantFail && !result.Valid {
				t.Errorf("Expected password %q with username %q to pass: %v", tt.password, tt.username, result.Errors)
			}
		})
	}
}

func TestPasswordPolicy_Strength(t *testing.T) {
	t.Parallel()

	policy := PasswordPolicy{
		MinLength: 1, // isolate the strength score
	}

	// Scoring: length 20+/16+/12+/8+ gives 4/3/2/1 points, one point per
	// character class, minus one each for sequential runs and keyboard walks.
	// Thresholds: 8+ excellent, 6+ strong, 4+ good, 2+ fair.
	tests := []struct {
		name        string
		password    string
		minStrength PasswordStrength
	}{
		{"weak - lowercase with sequence", "abcdefgh", PasswordStrengthWeak},
		{"fair - mixed case", "Abcdefgh", PasswordStrengthFair},
		{"fair - mixed and digit with sequence", "Abcdefgh1", PasswordStrengthFair},
		{"good - all classes no pattern", "XyZ789!#%", PasswordStrengthGood},
		{"strong - long with all classes", "Vq7#mXz2$Lw9kRt5&Nb", PasswordStrengthStrong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.Validate(tt.password, "")
			if result.Strength < tt.minStrength {
				t.Errorf("Expected strength >= %v, got %v for password %q",
					tt.minStrength, result.Strength, tt.password)
			}
		})
	}
}

func TestPasswordPolicy_ValidateWithError(t *testing.T) {
	t.Parallel()

	policy := DefaultPasswordPolicy()

	err := policy.ValidateWithError("weak", "admin")
	if err == nil {
		t.Error("Expected error for weak password")
	}

	err = policy.ValidateWithError("SuperStr0ng!Pass#2026", "admin")
	if err != nil {
		t.Errorf("Expected no error for strong password: %v", err)
	}
}

func TestDefaultPasswordPolicy(t *testing.T) {
	t.Parallel()

	policy := DefaultPasswordPolicy()

	if policy.MinLength != 12 {
		t.Errorf("Expected MinLength 12, got %d", policy.MinLength)
	}
	if !policy.RequireUppercase {
		t.Error("Expected RequireUppercase to be true")
	}
	if !policy.RequireLowercase {
		t.Error("Expected RequireLowercase to be true")
	}
	if !policy.RequireDigit {
		t.Error("Expected RequireDigit to be true")
	}
	if !policy.RequireSpecial {
		t.Error("Expected RequireSpecial to be true")
	}
	if !policy.ForbidCommonPasswords {
		t.Error("Expected ForbidCommonPasswords to be true")
	}
	if !policy.ForbidUsernameSimilarity {
		t.Error("Expected ForbidUsernameSimilarity to be true")
	}
}

func TestRelaxedPasswordPolicy(t *testing.T) {
	t.Parallel()

	policy := RelaxedPasswordPolicy()

	if policy.MinLength != 8 {
		t.Errorf("Expected MinLength 8, got %d", policy.MinLength)
	}
	if policy.RequireUppercase {
		t.Error("Expected RequireUppercase to be false for relaxed policy")
	}
	if policy.RequireSpecial {
		t.Error("Expected RequireSpecial to be false for relaxed policy")
	}
}

func TestPasswordStrength_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strength PasswordStrength
		want     string
	}{
		{PasswordStrengthWeak, "weak"},
		{PasswordStrengthFair, "fair"},
		{PasswordStrengthGood, "good"},
		{PasswordStrengthStrong, "strong"},
		{PasswordStrengthExcellent, "excellent"},
		{PasswordStrength(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.strength.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLongestRepeatRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		password string
		want     int
	}{
		{"", 0},
		{"a", 1},
		{"abc", 1},
		{"aabbcc", 2},
		{"aaab", 3},
		{"baaaa", 4},
		{"aabaaa", 3},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := longestRepeatRun(tt.password); got != tt.want {
				t.Errorf("longestRepeatRun(%q) = %d, want %d", tt.password, got, tt.want)
			}
		})
	}
}

func TestHasSequentialChars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		password string
		want     bool
	}{
		{"abcd1234", true},    // has abc, 123
		{"xyz789", true},      // has xyz
		{"321password", true}, // has 321
		{"cbafedg", true},     // has cba, fed
		{"aXbYcZ12", false},   // no sequential
		{"ab", false},         // too short
		{"azbycx", false},     // not sequential
		{"AaBbCc123", true},   // has 123
		{"random!#$%", true},  // #$% is sequential in ASCII
		{"Rand0m!Pwd", false}, // no sequential patterns
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := hasSequentialChars(tt.password); got != tt.want {
				t.Errorf("hasSequentialChars(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestHasKeyboardPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		password string
		want     bool
	}{
		{"qwerty123", true},
		{"password1qaz", true},
		{"asdfghjkl", true},
		{"zxcvbnm123", true},
		{"randompass", false},
		{"SecureP@ss", false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			if got := hasKeyboardPattern(tt.password); got != tt.want {
				t.Errorf("hasKeyboardPattern(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

// containsError checks if any error message contains the given substring.
func containsError(errors []string, substr string) bool {
	for _, err := range errors {
		if strings.Contains(strings.ToLower(err), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}
