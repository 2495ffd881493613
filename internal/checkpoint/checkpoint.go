// Package checkpoint periodically flushes the buffer pool to disk on a
// cron schedule, bounding how much dirty data can accumulate between
// explicit Flush requests.
package checkpoint

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/koba789/qpkv/internal/buffer"
)

// Flusher is the subset of buffer.Manager the scheduler needs. Defined
// as an interface so tests can supply a fake without a real disk file.
type Flusher interface {
	Flush() error
}

var _ Flusher = (*buffer.Manager)(nil)

// Scheduler runs a recurring checkpoint flush.
type Scheduler struct {
	bpm  Flusher
	cron *cron.Cron
}

// New creates a Scheduler that flushes bpm on the given cron spec (e.g.
// "@every 30s" or a standard five-field expression).
func New(bpm Flusher, spec string) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{bpm: bpm, cron: c}
	if _, err := c.AddFunc(spec, s.runCheckpoint); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the schedule in the background. Non-blocking.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for any in-flight checkpoint to finish, then halts the
// schedule.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runCheckpoint() {
	start := time.Now()
	if err := s.bpm.Flush(); err != nil {
		log.Printf("checkpoint: flush failed: %v", err)
		return
	}
	log.Printf("checkpoint: flush completed in %s", time.Since(start))
}
