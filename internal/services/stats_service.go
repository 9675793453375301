package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mushroomlog/mushroomlog/internal/cache"
	"github.com/mushroomlog/mushroomlog/internal/stats"
	"github.com/mushroomlog/mushroomlog/internal/timeutil"
)

// StatsQuery is the parsed ?range=&start=&end=&species= filter.
type StatsQuery struct {
	Filter    stats.DateFilter
	SpeciesID string
}

func (q StatsQuery) cacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%s", q.Filter.Type, q.Filter.StartDate, q.Filter.EndDate, q.SpeciesID)
}

type StatsService struct {
	Batches *BatchService
	Configs *ConfigService
	Cache   *cache.Cache
}

func NewStatsService(batches *BatchService, configs *ConfigService, c *cache.Cache) *StatsService {
	return &StatsService{Batches: batches, Configs: configs, Cache: c}
}

// Summary computes yield, health and pipeline for the filtered batches.
// Results are cached per filter until the next batch or config write.
func (s *StatsService) Summary(ctx context.Context, userID string, q StatsQuery) (*stats.Summary, error) {
	if _, _, err := q.Filter.Window(timeutil.Now()); err != nil {
		return nil, invalid("%v", err)
	}

	key := cache.StatsKey(userID, q.cacheKey())
	if data, ok := s.Cache.GetCached(ctx, key); ok {
		var sum stats.Summary
		if err := json.Unmarshal(data, &sum); err == nil {
			return &sum, nil
		}
	}

	batches, err := s.Batches.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Configs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := stats.Summarize(batches, q.Filter, q.SpeciesID, cfg, timeutil.Now())
	if err != nil {
		return nil, invalid("%v", err)
	}

	if data, err := json.Marshal(sum); err == nil {
		s.Cache.SetCached(ctx, key, data, cache.StatsTTL)
	}
	return sum, nil
}
