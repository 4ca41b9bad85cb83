package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pagebuilder/internal/config"
)

// Publisher is what the scheduler drives. PageService implements it.
type Publisher interface {
	PublishSlug(ctx context.Context, slug string) error
	RefreshLive(ctx context.Context) error
}

// ─────────────────────────────────────────────────────────────
// Scheduler: cron-driven publishes and live refresh
// ─────────────────────────────────────────────────────────────

// Scheduler runs scheduled publishes and periodically refetches the live
// page so the in-sync indicator notices publishes made elsewhere.
type Scheduler struct {
	pages   Publisher
	cfg     config.ScheduleConfig
	timeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

func NewScheduler(pages Publisher, cfg config.ScheduleConfig, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{pages: pages, cfg: cfg, timeout: timeout}
}

// Start (re)builds the cron table. Entries with an invalid expression are
// skipped and reported together; the valid ones still run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Stop()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.Default()))))
	var errs []error

	if s.cfg.LiveRefresh != "" {
		_, err := c.AddFunc(s.cfg.LiveRefresh, func() {
			runCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := s.pages.RefreshLive(runCtx); err != nil {
				log.Printf("scheduler: live refresh failed: %v", err)
			}
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("live refresh %q: %w", s.cfg.LiveRefresh, err))
		}
	}

	for _, p := range s.cfg.Publish {
		slug := p.Slug
		_, err := c.AddFunc(p.Cron, func() {
			log.Printf("scheduler: publishing %s", slug)
			runCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := s.pages.PublishSlug(runCtx, slug); err != nil {
				log.Printf("scheduler: publish %s failed: %v", slug, err)
			}
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("publish %s %q: %w", slug, p.Cron, err))
		}
	}

	c.Start()
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	log.Printf("scheduler: %d job(s) scheduled", len(c.Entries()))
	return errors.Join(errs...)
}

// Entries is the number of scheduled jobs.
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

// Stop halts the scheduler and waits for running jobs. Safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
