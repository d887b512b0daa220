package entitlement

import (
	"context"
	"time"

	"github.com/vendstars/VendStarsEconomy/internal/settings"
	log "github.com/sirupsen/logrus"
)

// Quota computation already settles a user's lapsed packs on read, so the
// sweeper only matters for users who stopped visiting: it keeps the pack
// table's statuses honest for admin listings and reporting.

// PackSweeper periodically settles lapsed entitlement packs.
type PackSweeper struct {
	tracker *Tracker
}

// NewPackSweeper constructs a PackSweeper.
func NewPackSweeper(tracker *Tracker) *PackSweeper {
	if tracker == nil {
		return nil
	}
	return &PackSweeper{tracker: tracker}
}

// Start launches the sweep loop in a background goroutine.
func (s *PackSweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("pack expiry sweeper started (interval=%s)", s.interval())
}

func (s *PackSweeper) interval() time.Duration {
	seconds := settings.IntValue(settings.PackSweepIntervalSecondsKey, settings.DefaultPackSweepIntervalSeconds)
	if seconds <= 0 {
		seconds = settings.DefaultPackSweepIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (s *PackSweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.sweepOnce(ctx)
		timer := time.NewTimer(s.interval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (s *PackSweeper) sweepOnce(ctx context.Context) {
	settled, errSweep := s.tracker.ExpireDue(ctx)
	if errSweep != nil {
		log.WithError(errSweep).Warn("pack expiry sweep failed")
		return
	}
	if settled > 0 {
		log.Infof("pack expiry sweep settled %d packs", settled)
	}
}
