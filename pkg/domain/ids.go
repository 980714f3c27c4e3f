// Package domain holds identifier types shared across internal packages.
// Typed IDs keep user and event identifiers from being swapped at call
// sites; the compiler enforces the distinction.
package domain

import (
	"github.com/google/uuid"

	dErrors "aituki/pkg/domain-errors"
)

// UserID identifies a user issued by the identity provider.
type UserID uuid.UUID

// EventID identifies a single audit event.
type EventID uuid.UUID

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id EventID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id UserID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form so JSON payloads carry
// strings rather than byte arrays.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = UserID(parsed)
	return nil
}

// ParseUserID parses a user ID from its string form. IDs must be valid,
// non-empty, non-nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(parsed), nil
}

// NewEventID returns a fresh random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid uuid")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil uuid")
	}
	return parsed, nil
}
