package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"wastecollect-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const analyticsKeyPrefix = "analytics:summary:"

// RouteLister is the read side of RouteStore used for reporting
type RouteLister interface {
	List(ctx context.Context, filter models.RouteFilter) ([]models.Route, error)
}

// AnalyticsService aggregates completion analytics across completed routes.
// Summaries are cached in Redis when a client is configured.
type AnalyticsService struct {
	routes RouteLister
	rdb    *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewAnalyticsService creates the service. rdb may be nil to disable caching.
func NewAnalyticsService(routes RouteLister, rdb *redis.Client, ttl time.Duration) *AnalyticsService {
	return &AnalyticsService{
		routes: routes,
		rdb:    rdb,
		ttl:    ttl,
		now:    time.Now,
	}
}

func analyticsCacheKey(filter models.AnalyticsFilter) string {
	return fmt.Sprintf("%s%s:%s:%s", analyticsKeyPrefix, filter.FromDate, filter.ToDate, filter.CollectorID)
}

// Summary returns aggregate figures for completed routes matching filter
func (s *AnalyticsService) Summary(ctx context.Context, filter models.AnalyticsFilter) (*models.AnalyticsSummary, error) {
	if err := normalizeDateRange(&filter.FromDate, &filter.ToDate); err != nil {
		return nil, err
	}

	key := analyticsCacheKey(filter)
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			var cached models.AnalyticsSummary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️  Redis get error: %v", err)
		}
	}

	routes, err := s.routes.List(ctx, models.RouteFilter{
		Status:     models.RouteStatusCompleted,
		AssignedTo: filter.CollectorID,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed routes: %w", err)
	}

	summary := Summarize(routes)
	summary.Filter = filter
	summary.GeneratedAt = s.now().Unix()

	if s.rdb != nil {
		b, _ := json.Marshal(summary)
		if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
			log.Printf("⚠️  Redis set error: %v", err)
		}
	}
	return summary, nil
}

// Invalidate removes every cached summary
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}

	iter := s.rdb.Scan(ctx, 0, analyticsKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan analytics keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Summarize folds the frozen per-route analytics of completed routes.
// Routes in any other status are ignored.
func Summarize(routes []models.Route) *models.AnalyticsSummary {
	summary := &models.AnalyticsSummary{ByCollector: []models.CollectorSummary{}}

	type collectorTotals struct {
		models.CollectorSummary
		efficiencySum int
	}
	byCollector := make(map[string]*collectorTotals)

	efficiencySum := 0
	durationSum, durationCount := 0, 0

	for _, route := range routes {
		if route.Status != models.RouteStatusCompleted {
			continue
		}
		summary.TotalRoutes++
		summary.TotalBinsCollected += route.BinsCollected
		summary.TotalWasteCollected += route.WasteCollected
		summary.TotalRecyclableWaste += route.RecyclableWaste
		efficiencySum += route.Efficiency
		if route.RouteDuration != nil {
			durationSum += *route.RouteDuration
			durationCount++
		}

		if route.AssignedTo == nil {
			continue
		}
		totals, ok := byCollector[*route.AssignedTo]
		if !ok {
			totals = &collectorTotals{CollectorSummary: models.CollectorSummary{CollectorID: *route.AssignedTo}}
			byCollector[*route.AssignedTo] = totals
		}
		totals.Routes++
		totals.BinsCollected += route.BinsCollected
		totals.WasteCollected += route.WasteCollected
		totals.RecyclableWaste += route.RecyclableWaste
		totals.efficiencySum += route.Efficiency
	}

	summary.RecyclingRate = percentOf(summary.TotalRecyclableWaste, summary.TotalWasteCollected)
	summary.AverageEfficiency = roundedMean(efficiencySum, summary.TotalRoutes)
	summary.AverageDuration = roundedMean(durationSum, durationCount)

	for _, totals := range byCollector {
		totals.AverageEfficiency = roundedMean(totals.efficiencySum, totals.Routes)
		summary.ByCollector = append(summary.ByCollector, totals.CollectorSummary)
	}
	sort.Slice(summary.ByCollector, func(i, j int) bool {
		return summary.ByCollector[i].CollectorID < summary.ByCollector[j].CollectorID
	})
	return summary
}

func roundedMean(sum, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count)))
}
