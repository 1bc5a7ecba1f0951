// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// PasswordPolicy defines requirements for password strength. The admin
// bootstrap check and the registration flow both validate against one of
// the two built-in policies below.
type PasswordPolicy struct {
	// MinLength is the minimum password length.
	MinLength int

	// RequireUppercase requires at least one uppercase letter.
	RequireUppercase bool

	// RequireLowercase requires at least one lowercase letter.
	RequireLowercase bool

	// RequireDigit requires at least one digit.
	RequireDigit bool

	// RequireSpecial requires at least one special character.
	RequireSpecial bool

	// MaxConsecutiveRepeats is the maximum allowed run of the same
	// character (0 disables the check).
	MaxConsecutiveRepeats int

	// ForbidCommonPasswords blocks known breached/common passwords.
	ForbidCommonPasswords bool

	// ForbidUsernameSimilarity rejects passwords derived from the username.
	ForbidUsernameSimilarity bool
}

// DefaultPasswordPolicy returns the policy applied to admin credentials in
// production. Follows NIST SP 800-63B with a longer minimum for accounts
// that can issue commands.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:                12,
		RequireUppercase:         true,
		RequireLowercase:         true,
		RequireDigit:             true,
		RequireSpecial:           true,
		MaxConsecutiveRepeats:    3,
		ForbidCommonPasswords:    true,
		ForbidUsernameSimilarity: true,
	}
}

// RelaxedPasswordPolicy returns the policy used outside production and for
// self-registered viewer accounts.
func RelaxedPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:                8,
		RequireUppercase:         false,
		RequireLowercase:         true,
		RequireDigit:             true,
		RequireSpecial:           false,
		MaxConsecutiveRepeats:    4,
		ForbidCommonPasswords:    true,
		ForbidUsernameSimilarity: true,
	}
}

// PasswordValidationResult contains details about password validation.
type PasswordValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Strength PasswordStrength
}

// PasswordStrength indicates the overall password strength.
type PasswordStrength int

const (
	PasswordStrengthWeak PasswordStrength = iota
	PasswordStrengthFair
	PasswordStrengthGood
	PasswordStrengthStrong
	PasswordStrengthExcellent
)

// String returns the string representation of password strength.
func (s PasswordStrength) String() string {
	switch s {
	case PasswordStrengthWeak:
		return "weak"
	case PasswordStrengthFair:
		return "fair"
	case PasswordStrengthGood:
		return "good"
	case PasswordStrengthStrong:
		return "strong"
	case PasswordStrengthExcellent:
		return "excellent"
	default:
		return "unknown"
	}
}

// Validate checks a password against the policy and reports every violation,
// not just the first one, so callers can surface the full list to the user.
func (p PasswordPolicy) Validate(password string, username string) PasswordValidationResult {
	result := PasswordValidationResult{
		Valid:  true,
		Errors: make([]string, 0),
	}

	if len(password) < p.MinLength {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("password must be at least %d characters (got %d)", p.MinLength, len(password)))
	}

	cc := analyzeCharClasses(password)
	p.checkCharClasses(&result, cc)

	if p.MaxConsecutiveRepeats > 0 && longestRepeatRun(password) > p.MaxConsecutiveRepeats {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("password cannot have more than %d consecutive repeated characters", p.MaxConsecutiveRepeats))
	}

	if p.ForbidCommonPasswords && isCommonPassword(password) {
		result.Valid = false
		result.Errors = append(result.Errors, "password is too common and easily guessable")
	}

	if p.ForbidUsernameSimilarity && username != "" && isSimilarToUsername(password, username) {
		result.Valid = false
		result.Errors = append(result.Errors, "password is too similar to username")
	}

	result.Strength = scorePasswordStrength(password, cc)

	if result.Valid && result.Strength < PasswordStrengthGood {
		result.Warnings = append(result.Warnings,
			"consider using a stronger password with more character variety")
	}

	return result
}

// ValidateWithError is a convenience wrapper that collapses the result into
// a single error, or nil when the password passes.
func (p PasswordPolicy) ValidateWithError(password string, username string) error {
	result := p.Validate(password, username)
	if !result.Valid {
		return errors.New(strings.Join(result.Errors, "; "))
	}
	return nil
}

// charClasses holds the results of character class analysis.
type charClasses struct {
	hasUpper   bool
	hasLower   bool
	hasDigit   bool
	hasSpecial bool
}

func analyzeCharClasses(password string) charClasses {
	var cc charClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			cc.hasUpper = true
		case unicode.IsLower(r):
			cc.hasLower = true
		case unicode.IsDigit(r):
			cc.hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			cc.hasSpecial = true
		}
	}
	return cc
}

func (p PasswordPolicy) checkCharClasses(result *PasswordValidationResult, cc charClasses) {
	if p.RequireUppercase && !cc.hasUpper {
		result.Valid = false
		result.Errors = append(result.Errors, "password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !cc.hasLower {
		result.Valid = false
		result.Errors = append(result.Errors, "password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !cc.hasDigit {
		result.Valid = false
		result.Errors = append(result.Errors, "password must contain at least one digit")
	}
	if p.RequireSpecial && !cc.hasSpecial {
		result.Valid = false
		result.Errors = append(result.Errors, "password must contain at least one special character (!@#$%^&*...)")
	}
}

// longestRepeatRun returns the length of the longest run of one repeated
// character.
func longestRepeatRun(password string) int {
	if len(password) == 0 {
		return 0
	}
	maxRun := 1
	run := 1
	var last rune
	for i, r := range password {
		if i > 0 && r == last {
			run++
			if run > maxRun {
				maxRun = run
			}
		} else {
			run = 1
		}
		last = r
	}
	return maxRun
}

// scorePasswordStrength estimates strength from length, character variety,
// and the absence of trivial patterns.
func scorePasswordStrength(password string, cc charClasses) PasswordStrength {
	score := 0

	length := len(password)
	switch {
	case length >= 20:
		score += 4
	case length >= 16:
		score += 3
	case length >= 12:
		score += 2
	case length >= 8:
		score++
	}

	for _, present := range []bool{cc.hasUpper, cc.hasLower, cc.hasDigit, cc.hasSpecial} {
		if present {
			score++
		}
	}

	if hasSequentialChars(password) {
		score--
	}
	if hasKeyboardPattern(password) {
		score--
	}

	switch {
	case score >= 8:
		return PasswordStrengthExcellent
	case score >= 6:
		return PasswordStrengthStrong
	case score >= 4:
		return PasswordStrengthGood
	case score >= 2:
		return PasswordStrengthFair
	default:
		return PasswordStrengthWeak
	}
}

// commonPasswords is a set of frequently breached passwords plus defaults
// people tend to pick for telemetry and lab infrastructure.
var commonPasswords = map[string]bool{
	"123456": true, "password": true, "123456789": true, "12345678": true,
	"12345": true, "1234567": true, "1234567890": true, "qwerty": true,
	"abc123": true, "password1": true, "password123": true, "admin": true,
	"admin123": true, "letmein": true, "welcome": true, "monkey": true,
	"dragon": true, "master": true, "login": true, "princess": true,
	"qwerty123": true, "passw0rd": true, "starwars": true, "iloveyou": true,
	"sunshine": true, "trustno1": true, "111111": true, "000000": true,
	"654321": true, "superman": true, "football": true, "baseball": true,
	"shadow": true, "ninja": true, "mustang": true, "secret": true,
	"changeme": true, "default": true, "test": true, "guest": true,
	"root": true, "toor": true, "pass": true, "temp": true,
	"server": true, "database": true, "administrator": true, "letmein123": true,
	"password!": true, "p@ssw0rd": true, "p@ssword": true, "pa55word": true,
	"passw0rd!": true, "password1!": true, "welcome1": true, "welcome123": true,
	"qwertyuiop": true, "asdfghjkl": true, "zxcvbnm": true, "1qaz2wsx": true,
	"qazwsx": true, "abcd1234": true, "1q2w3e4r": true, "987654321": true,
	"password1234": true, "123qwe": true, "123abc": true, "123321": true,
	"123123": true, "112233": true, "aaaaaa": true, "123123123": true,
	"11111111": true, "00000000": true, "test123": true, "testing": true,
	"testing123": true, "nova": true, "nova123": true, "telemetry": true,
	"truthstore": true, "playback": true, "operator": true, "operator123": true,
	"groundstation": true, "mission": true, "homelab": true, "server123": true,
	"admin@123": true, "admin#123": true, "root123": true, "root@123": true,
	"dockeradmin": true, "kubernetes": true, "devops": true, "sysadmin": true,
	"password@123": true, "welcome@123": true, "administrator123": true,
}

func isCommonPassword(password string) bool {
	return commonPasswords[strings.ToLower(password)]
}

// isSimilarToUsername checks if the password embeds the username directly,
// reversed, or with the usual leetspeak substitutions.
func isSimilarToUsername(password, username string) bool {
	lowerPass := strings.ToLower(password)
	lowerUser := strings.ToLower(username)

	if strings.Contains(lowerPass, lowerUser) || strings.Contains(lowerUser, lowerPass) {
		return true
	}

	if strings.Contains(lowerPass, reverseString(lowerUser)) {
		return true
	}

	substitutions := map[rune]rune{
		'a': '@', 'e': '3', 'i': '1', 'o': '0', 's': '$', 't': '7',
	}
	substituted := strings.Map(func(r rune) rune {
		if sub, ok := substitutions[r]; ok {
			return sub
		}
		return r
	}, lowerUser)
	return strings.Contains(lowerPass, substituted)
}

// hasSequentialChars checks for ascending or descending runs of three or
// more characters (abc, 321, ...).
func hasSequentialChars(password string) bool {
	if len(password) < 3 {
		return false
	}

	runes := []rune(strings.ToLower(password))
	sequenceCount := 0

	for i := 1; i < len(runes); i++ {
		diff := int(runes[i]) - int(runes[i-1])
		if diff == 1 || diff == -1 {
			sequenceCount++
			// two diffs in a row means three characters in sequence
			if sequenceCount >= 2 {
				return true
			}
		} else {
			sequenceCount = 0
		}
	}

	return false
}

// hasKeyboardPattern checks for common keyboard walks.
func hasKeyboardPattern(password string) bool {
	lower := strings.ToLower(password)
	patterns := []string{
		"qwerty", "asdf", "zxcv", "qazwsx", "1qaz", "2wsx",
		"!qaz", "@wsx", "qweasd", "asdzxc",
	}
	for _, pattern := range patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
