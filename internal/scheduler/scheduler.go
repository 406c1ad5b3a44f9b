// Package scheduler manages deferred trade settlements and recurring
// re-engagement pings.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs one-shot timers (trade settlement) and cron jobs
// (re-engagement pings). One-shot tasks are tracked by key and cancelled only
// by Stop; user actions cannot cancel a scheduled settlement.
type Scheduler struct {
	cron *cron.Cron

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// New creates a new Scheduler instance.
func New() *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		timers: make(map[string]*time.Timer),
	}
}

// ScheduleOnce fires task once after delay. A duplicate key is refused: the
// trade engine never ends up with two credits for one round.
func (s *Scheduler) ScheduleOnce(key string, delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.timers[key]; exists {
		log.Warn().Str("key", key).Msg("Duplicate one-shot task refused")
		return
	}

	s.wg.Add(1)
	s.timers[key] = time.AfterFunc(delay, func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("key", key).Msg("Recovered from panic in scheduled task")
			}
		}()

		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()

		task()
	})

	log.Debug().Str("key", key).Dur("delay", delay).Msg("One-shot task scheduled")
}

// AddRecurring registers a cron job with a fixed interval.
func (s *Scheduler) AddRecurring(interval time.Duration, task func()) error {
	_, err := s.cron.AddFunc("@every "+interval.String(), task)
	return err
}

// Start begins running recurring jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("Scheduler started")
}

// Stop cancels all pending one-shot timers and stops the cron loop. Timers
// that already fired are allowed to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for key, timer := range s.timers {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.timers, key)
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

// PendingCount returns the number of one-shot tasks not yet fired.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
