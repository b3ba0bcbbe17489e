package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/region-weather-dashboard/internal/store"
	"github.com/i474232898/region-weather-dashboard/internal/weather"
)

// Scheduler periodically refreshes the prefetched data file by re-fetching
// every configured region and rewriting the CSV. Regions are fetched
// sequentially; the service's polite delay applies inside the job.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *weather.Service
	store     *store.CSVStore
	regions   []weather.Region
	start     time.Time
	interval  time.Duration
}

// New creates a new Scheduler. The refresh window runs from start to the
// current day at job time.
func New(regions []weather.Region, start time.Time, interval time.Duration, service *weather.Service, csvStore *store.CSVStore) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		store:     csvStore,
		regions:   regions,
		start:     start,
		interval:  interval,
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
// An interval of zero disables the refresh entirely.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("scheduler: prefetch refresh disabled")
		return nil
	}
	if len(s.regions) == 0 {
		log.Println("scheduler: no regions configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.refresh)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) refresh() {
	log.Println("scheduler: running prefetch refresh")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	table, err := s.service.FetchMany(ctx, s.regions, s.start, end, true)
	if err != nil {
		log.Printf("scheduler: prefetch refresh failed: %v", err)
		return
	}
	if err := s.store.Write(table); err != nil {
		log.Printf("scheduler: failed to write %s: %v", s.store.Path(), err)
		return
	}

	log.Printf("scheduler: refreshed %s with %d rows", s.store.Path(), len(table))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
