// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

// Package users is the file-backed account store.
//
// Accounts live in a single users.json rewritten atomically on every
// mutation, which keeps the store inspectable and restorable with
// nothing but a text editor. Passwords are bcrypt hashes; lookups for
// login burn a comparison even for unknown usernames so response
// timing does not enumerate accounts.
//
// Self-registration creates pending accounts that cannot log in until
// an admin approves them with a role and scope set. The store refuses
// to delete or demote the last admin.
package users
