package core

import (
	"github.com/google/uuid"
)

// ConnID is an opaque per-connection handle, unique for the process lifetime.
type ConnID string

func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}
