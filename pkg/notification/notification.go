package notification

import (
	"time"
)

type Sender interface {
	CanSend() bool
	Send(title string, description string, runTime time.Duration, fields []Field) error
	BuildField(options BuildOptions) Field
	Name() string
}

type Field struct {
	Name  string
	Value string
}

// BuildOptions describes one duplicate group.
type BuildOptions struct {
	Original   string
	Duplicates []string
	// Size of a single copy in bytes.
	Size uint64
	// Hardlinks counts duplicates that share the original's storage.
	Hardlinks int
}
