package cmd

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/dupefind/pkg/finder"
)

const progressInterval = 5 * time.Second

// logProgress reports scan progress through the logger at a fixed interval.
type logProgress struct {
	log   *logrus.Entry
	stage finder.Stage
	total int
	done  int
	last  time.Time
	now   func() time.Time
}

func newLogProgress(log *logrus.Entry) *logProgress {
	return &logProgress{
		log: log,
		now: time.Now,
	}
}

func (p *logProgress) Begin(stage finder.Stage, total int) error {
	p.stage = stage
	p.total = total
	p.done = 0
	p.last = p.now()

	if total < 0 {
		p.log.Debugf("Stage %s started", stage)
		return nil
	}

	p.log.Debugf("Stage %s started with %d files", stage, total)
	return nil
}

func (p *logProgress) Advance(stage finder.Stage, path string) error {
	p.done++
	p.log.Tracef("Stage %s: %s", stage, path)

	if now := p.now(); now.Sub(p.last) >= progressInterval {
		p.last = now
		if p.total < 0 {
			p.log.Infof("Stage %s: %d files processed", stage, p.done)
		} else {
			p.log.Infof("Stage %s: %d/%d files processed", stage, p.done, p.total)
		}
	}

	return nil
}
