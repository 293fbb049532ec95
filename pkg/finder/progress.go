package finder

import (
	"github.com/pkg/errors"
)

// ErrCancelled is the conventional error a Progress returns from Begin or
// Advance to stop a scan.
var ErrCancelled = errors.New("scan cancelled")

type Stage int

const (
	StageDiscover Stage = iota
	StageGroupBySize
	StageGroupByCrc32
)

func (s Stage) String() string {
	switch s {
	case StageDiscover:
		return "discover"
	case StageGroupBySize:
		return "group_by_size"
	case StageGroupByCrc32:
		return "group_by_crc32"
	default:
		return "unknown"
	}
}

// Progress receives stage changes and per item ticks. A non-nil error from
// Begin or Advance cancels the scan and is returned by Find unchanged.
type Progress interface {
	// Begin starts a stage; total is negative when it is not known upfront.
	Begin(stage Stage, total int) error
	Advance(stage Stage, path string) error
}

type NopProgress struct{}

func (NopProgress) Begin(Stage, int) error {
	return nil
}

func (NopProgress) Advance(Stage, string) error {
	return nil
}
