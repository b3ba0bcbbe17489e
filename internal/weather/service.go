package weather

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Service orchestrates per-region fetches through the TTL cache and fans out
// across a region list sequentially, pausing between regions to stay polite
// toward the upstream API. There is deliberately no concurrent fanout: the
// inter-region delay is a throughput throttle for upstream rate limits.
type Service struct {
	provider    Provider
	cache       *Cache[Table]
	politeDelay time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewService creates a new Service.
func NewService(provider Provider, cache *Cache[Table], politeDelay time.Duration) *Service {
	return &Service{
		provider:    provider,
		cache:       cache,
		politeDelay: politeDelay,
		sleep:       sleepBlocking,
	}
}

// WithSleep overrides the inter-region delay function.
func (s *Service) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Service {
	s.sleep = sleep
	return s
}

// FetchRegion fetches one region's observations through the cache.
// A force-live call skips the cache read but still stores the fresh result,
// so subsequent cached reads see the newest data.
func (s *Service) FetchRegion(ctx context.Context, region Region, start, end time.Time, forceLive bool) (Table, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	key := cacheKey(region.Name, start, end)
	if !forceLive {
		return s.cache.GetOrLoad(key, func() (Table, error) {
			return s.provider.Fetch(ctx, region, start, end)
		})
	}

	table, err := s.provider.Fetch(ctx, region, start, end)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, table)
	return table, nil
}

// FetchMany fetches every region in the given order and concatenates the
// per-region tables. Any region's failure fails the whole call; no partial
// result is returned.
func (s *Service) FetchMany(ctx context.Context, regions []Region, start, end time.Time, forceLive bool) (Table, error) {
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	var combined Table
	for i, region := range regions {
		if i > 0 && s.politeDelay > 0 {
			if err := s.sleep(ctx, s.politeDelay); err != nil {
				return nil, err
			}
		}

		log.Printf("fetching %s (%d/%d)", region.Name, i+1, len(regions))
		table, err := s.FetchRegion(ctx, region, start, end, forceLive)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", region.Name, err)
		}
		combined = append(combined, table...)
	}

	return combined, nil
}

func cacheKey(region string, start, end time.Time) string {
	return region + "|" + start.Format(DateLayout) + "|" + end.Format(DateLayout)
}

func sleepBlocking(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
