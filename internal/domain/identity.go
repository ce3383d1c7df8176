// Package domain holds the relay vocabulary: identities, room names,
// event names and location updates, with the bounds checks applied to
// them at the edge.
package domain

import "errors"

const (
	MaxIdentityLen = 64
	MaxRoomNameLen = 64
)

var (
	ErrIdentityEmpty   = errors.New("identity empty")
	ErrIdentityTooLong = errors.New("identity too long")
	ErrRoomEmpty       = errors.New("room name empty")
	ErrRoomTooLong     = errors.New("room name too long")
)

// Identity is a caller-declared participant id (a user id or a
// room-scoped peer id). It is trusted as supplied by the client.
type Identity string

// ParseIdentity checks a raw identity from a payload. The value is kept
// byte for byte; only empty and oversized ids are refused.
func ParseIdentity(raw string) (Identity, error) {
	if len(raw) == 0 {
		return "", ErrIdentityEmpty
	}
	if len(raw) > MaxIdentityLen {
		return "", ErrIdentityTooLong
	}
	return Identity(raw), nil
}
