// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// cursorVersion prefixes the string form so the encoding can evolve.
const cursorVersion = "v1"

// Cursor is a position in the truth log: the (CanonicalTime, EventID)
// pair of the last event seen. Cursors are opaque to clients but
// totally ordered on the server; a tail restarted from a cursor
// resumes strictly after it.
type Cursor struct {
	Time    Micros  `json:"canonicalTruthTime"`
	EventID EventID `json:"eventId"`
}

// IsZero reports whether the cursor is the zero position (before the
// first event of any scope).
func (c Cursor) IsZero() bool {
	return c.Time == 0 && c.EventID == ""
}

// Compare orders two cursors: -1 if c precedes o, 0 if equal, +1 if c
// follows o. Time dominates; ties fall to lexicographic EventID.
func (c Cursor) Compare(o Cursor) int {
	switch {
	case c.Time < o.Time:
		return -1
	case c.Time > o.Time:
		return 1
	case c.EventID < o.EventID:
		return -1
	case c.EventID > o.EventID:
		return 1
	default:
		return 0
	}
}

// Before reports whether c strictly precedes o.
func (c Cursor) Before(o Cursor) bool {
	return c.Compare(o) < 0
}

// String encodes the cursor as "v1:<micros>:<eventID>".
func (c Cursor) String() string {
	return cursorVersion + ":" + strconv.FormatInt(int64(c.Time), 10) + ":" + string(c.EventID)
}

// ParseCursor decodes a cursor produced by String. The empty string
// parses to the zero cursor.
func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != cursorVersion {
		return Cursor{}, fmt.Errorf("malformed cursor %q", s)
	}
	us, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("malformed cursor time in %q: %w", s, err)
	}
	return Cursor{Time: Micros(us), EventID: EventID(parts[2])}, nil
}
