package app

import (
	"fmt"

	"github.com/dkeye/pulse/internal/core"
	"github.com/dkeye/pulse/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a recipient whose send buffer is full.
type Policy interface {
	OnBackPressure(room domain.RoomName, member core.ConnID) BackpressureAction
}

// DropPolicy drops the frame for the slow recipient only.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.RoomName, core.ConnID) BackpressureAction {
	return DropFrame
}

// KickPolicy disconnects slow recipients.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.RoomName, core.ConnID) BackpressureAction {
	return KickMember
}

// ParsePolicy maps the slow_consumer config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown slow consumer policy %q", s)
}

// IdentityPolicy governs a join whose identity is already held by
// another live connection.
type IdentityPolicy int

const (
	// IdentitySupersede moves the index entry to the newer connection and
	// leaves the older one connected but no longer directly addressable.
	IdentitySupersede IdentityPolicy = iota
	// IdentityEvict supersedes and disconnects the older connection.
	IdentityEvict
	// IdentityReject refuses the newer claim.
	IdentityReject
)

func (p IdentityPolicy) String() string {
	switch p {
	case IdentitySupersede:
		return "supersede"
	case IdentityEvict:
		return "evict"
	case IdentityReject:
		return "reject"
	}
	return fmt.Sprintf("IdentityPolicy(%d)", int(p))
}

func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch s {
	case "", "supersede":
		return IdentitySupersede, nil
	case "evict":
		return IdentityEvict, nil
	case "reject":
		return IdentityReject, nil
	}
	return 0, fmt.Errorf("unknown identity policy %q", s)
}
