package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"wastecollect-backend/internal/models"

	"github.com/google/uuid"
)

const (
	// mutationTimeout bounds a save retry loop whose context has no deadline
	mutationTimeout = 10 * time.Second
	retryBaseDelay  = 2 * time.Millisecond
	retryMaxDelay   = 100 * time.Millisecond
)

// RouteStore persists routes. Update must only succeed when the stored
// version equals route.Version, and then increments route.Version.
type RouteStore interface {
	Create(ctx context.Context, route *models.Route) error
	Get(ctx context.Context, id string) (*models.Route, error)
	List(ctx context.Context, filter models.RouteFilter) ([]models.Route, error)
	Update(ctx context.Context, route *models.Route) error
	Delete(ctx context.Context, id string) error
	NameExists(ctx context.Context, name string) (bool, error)
}

// BinCatalog resolves bins by id. Unknown ids are absent from the result.
type BinCatalog interface {
	GetBinsByIDs(ctx context.Context, ids []string) (map[string]*models.Bin, error)
}

// CollectionRecorder is optionally implemented by a BinCatalog that tracks
// when each bin was last emptied.
type CollectionRecorder interface {
	MarkCollected(ctx context.Context, binID string, collectedAt int64) error
}

// UserDirectory resolves identities. A missing user is (nil, nil).
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Actor is the authenticated caller of a route operation
type Actor struct {
	ID   string
	Role string
}

// CollectResult is returned by CollectBin
type CollectResult struct {
	Route           *models.Route
	BinID           string
	CollectedWeight *float64
}

// RouteService implements the route lifecycle: scheduling, assignment,
// start, per-bin collection and completion.
type RouteService struct {
	store    RouteStore
	bins     BinCatalog
	users    UserDirectory
	notifier RouteNotifier
	now      func() time.Time
	locks    *routeLocks
}

// NewRouteService creates a route service. notifier may be nil.
func NewRouteService(store RouteStore, bins BinCatalog, users UserDirectory, notifier RouteNotifier) *RouteService {
	return &RouteService{
		store:    store,
		bins:     bins,
		users:    users,
		notifier: notifier,
		now:      time.Now,
		locks:    newRouteLocks(),
	}
}

// WithClock replaces the time source (tests)
func (s *RouteService) WithClock(now func() time.Time) *RouteService {
	s.now = now
	return s
}

// CreateRoute validates the request and stores a new scheduled route
func (s *RouteService) CreateRoute(ctx context.Context, actor Actor, req models.CreateRouteRequest) (*models.Route, error) {
	name := strings.TrimSpace(req.RouteName)
	if name == "" {
		return nil, ValidationError("Route name is required")
	}
	if len(req.Bins) == 0 {
		return nil, ValidationError("At least one bin is required")
	}
	if utf8.RuneCountInString(name) > models.MaxRouteNameLength {
		return nil, ValidationError("Route name cannot exceed %d characters", models.MaxRouteNameLength)
	}
	if err := validateBinInputs(req.Bins); err != nil {
		return nil, err
	}
	date, err := normalizeDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	scheduledTime := strings.TrimSpace(req.ScheduledTime)
	if scheduledTime == "" {
		return nil, ValidationError("Scheduled time is required")
	}
	if err := validateNotes(req.Notes); err != nil {
		return nil, err
	}

	exists, err := s.store.NameExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check route name: %w", err)
	}
	if exists {
		return nil, ConflictError("Route with this name already exists")
	}

	if err := s.ensureBinsExist(ctx, req.Bins); err != nil {
		return nil, err
	}

	var assignedTo *string
	if req.AssignedTo != nil && strings.TrimSpace(*req.AssignedTo) != "" {
		collectorID := strings.TrimSpace(*req.AssignedTo)
		if err := s.ensureCollector(ctx, collectorID); err != nil {
			return nil, err
		}
		assignedTo = &collectorID
	}

	now := s.now().Unix()
	route := &models.Route{
		ID:            uuid.New().String(),
		RouteName:     name,
		CreatedBy:     actor.ID,
		AssignedTo:    assignedTo,
		ScheduledDate: date,
		ScheduledTime: scheduledTime,
		Notes:         req.Notes,
		Status:        models.RouteStatusScheduled,
		Bins:          newVisits(req.Bins),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, route); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, ConflictError("Route with this name already exists")
		}
		return nil, fmt.Errorf("failed to create route: %w", err)
	}

	log.Printf("✅ Route created: %s (%s) with %d bins", route.RouteName, route.ID, len(route.Bins))
	s.notify(ctx, EventRouteCreated, route, actor)
	return route, nil
}

// GetRoute returns a single route
func (s *RouteService) GetRoute(ctx context.Context, routeID string) (*models.Route, error) {
	return s.load(ctx, routeID)
}

// ListRoutes returns routes matching filter
func (s *RouteService) ListRoutes(ctx context.Context, filter models.RouteFilter) ([]models.Route, error) {
	if err := normalizeDateRange(&filter.FromDate, &filter.ToDate); err != nil {
		return nil, err
	}

	routes, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// ListCollectorRoutes returns the routes assigned to the calling collector
func (s *RouteService) ListCollectorRoutes(ctx context.Context, actor Actor, status models.RouteStatus) ([]models.Route, error) {
	return s.ListRoutes(ctx, models.RouteFilter{AssignedTo: actor.ID, Status: status})
}

// UpdateRoute patches scheduling fields, notes, bins or assignee of a scheduled route
func (s *RouteService) UpdateRoute(ctx context.Context, actor Actor, routeID string, patch models.UpdateRouteRequest) (*models.Route, error) {
	route, err := s.mutate(ctx, routeID, func(route *models.Route) error {
		if route.Status != models.RouteStatusScheduled {
			return InvalidStateError("Cannot update route that is in-progress or completed")
		}
		if patch.RouteName != nil && strings.TrimSpace(*patch.RouteName) != route.RouteName {
			return ValidationError("Route name cannot be changed")
		}

		if patch.ScheduledDate != nil {
			date, err := normalizeDate(*patch.ScheduledDate)
			if err != nil {
				return err
			}
			route.ScheduledDate = date
		}
		if patch.ScheduledTime != nil {
			scheduledTime := strings.TrimSpace(*patch.ScheduledTime)
			if scheduledTime == "" {
				return ValidationError("Scheduled time is required")
			}
			route.ScheduledTime = scheduledTime
		}
		if patch.Notes != nil {
			if err := validateNotes(patch.Notes); err != nil {
				return err
			}
			route.Notes = patch.Notes
		}
		if patch.Bins != nil {
			if len(patch.Bins) == 0 {
				return ValidationError("At least one bin is required")
			}
			if err := validateBinInputs(patch.Bins); err != nil {
				return err
			}
			if err := s.ensureBinsExist(ctx, patch.Bins); err != nil {
				return err
			}
			route.Bins = newVisits(patch.Bins)
		}
		if patch.AssignedTo != nil {
			collectorID := strings.TrimSpace(*patch.AssignedTo)
			if collectorID == "" {
				route.AssignedTo = nil
			} else {
				if err := s.ensureCollector(ctx, collectorID); err != nil {
					return err
				}
				route.AssignedTo = &collectorID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, EventRouteUpdated, route, actor)
	return route, nil
}

// AssignCollector sets the route's collector. Only scheduled routes can be reassigned.
func (s *RouteService) AssignCollector(ctx context.Context, actor Actor, routeID, collectorID string) (*models.Route, error) {
	collectorID = strings.TrimSpace(collectorID)
	route, err := s.mutate(ctx, routeID, func(route *models.Route) error {
		if route.Status != models.RouteStatusScheduled {
			return InvalidStateError("Cannot reassign route that is in-progress or completed")
		}
		if err := s.ensureCollector(ctx, collectorID); err != nil {
			return err
		}
		route.AssignedTo = &collectorID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Route %s assigned to collector %s", route.ID, collectorID)
	s.notify(ctx, EventRouteAssigned, route, actor)
	return route, nil
}

// StartRoute moves a scheduled route to in-progress once the checklist is fully checked
func (s *RouteService) StartRoute(ctx context.Context, actor Actor, routeID string, req models.StartRouteRequest) (*models.Route, error) {
	route, err := s.mutate(ctx, routeID, func(route *models.Route) error {
		if route.Status != models.RouteStatusScheduled {
			return InvalidStateError("Route is not in scheduled status")
		}
		if !route.IsAssignedTo(actor.ID) {
			return ForbiddenError("This route is not assigned to you")
		}

		items, err := parseChecklist(req.PreRouteChecklist)
		if err != nil {
			return err
		}

		now := s.now().Unix()
		route.Status = models.RouteStatusInProgress
		route.StartedAt = &now
		route.PreRouteChecklist = &models.PreRouteChecklist{
			Completed:   true,
			Items:       items,
			CompletedAt: &now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🚛 Route started: %s by %s", route.ID, actor.ID)
	s.notify(ctx, EventRouteStarted, route, actor)
	return route, nil
}

// CollectBin marks one bin visit as collected
func (s *RouteService) CollectBin(ctx context.Context, actor Actor, routeID, binID string, req models.CollectBinRequest) (*CollectResult, error) {
	route, err := s.mutate(ctx, routeID, func(route *models.Route) error {
		idx, err := visitForCollector(route, actor, binID, "Route must be in-progress to collect bins")
		if err != nil {
			return err
		}

		if req.InvalidWeight || (req.ActualWeight != nil && *req.ActualWeight < 0) {
			return ValidationError("Actual weight must be a positive number")
		}
		if req.InvalidFillLevel || (req.FillLevel != nil && (*req.FillLevel < 0 || *req.FillLevel > 100)) {
			return ValidationError("Fill level must be between 0 and 100")
		}
		if err := ensurePending(route.Bins[idx]); err != nil {
			return err
		}

		fillLevel := req.FillLevel
		if fillLevel == nil {
			// Snapshot the catalog's current reading
			catalog, err := s.bins.GetBinsByIDs(ctx, []string{binID})
			if err != nil {
				return fmt.Errorf("failed to load bin: %w", err)
			}
			if bin, ok := catalog[binID]; ok && bin.FillLevel != nil {
				level := *bin.FillLevel
				fillLevel = &level
			}
		}

		now := s.now().Unix()
		visit := &route.Bins[idx]
		visit.Status = models.BinVisitCollected
		visit.CollectedAt = &now
		visit.FillLevelAtCollection = fillLevel
		visit.ActualWeight = req.ActualWeight
		return nil
	})
	if err != nil {
		return nil, err
	}

	if recorder, ok := s.bins.(CollectionRecorder); ok {
		visit := route.Bins[route.FindVisit(binID)]
		if err := recorder.MarkCollected(ctx, binID, *visit.CollectedAt); err != nil {
			log.Printf("⚠️  Failed to update bin %s after collection: %v", binID, err)
		}
	}

	s.notify(ctx, EventBinCollected, route, actor)
	return &CollectResult{Route: route, BinID: binID, CollectedWeight: req.ActualWeight}, nil
}

// SkipBin marks one bin visit as skipped with a reason
func (s *RouteService) SkipBin(ctx context.Context, actor Actor, routeID, binID string, req models.SkipBinRequest) (*models.Route, error) {
	route, err := s.mutate(ctx, routeID, func(route *models.Route) error {
		idx, err := visitForCollector(route, actor, binID, "Route must be in-progress to skip bins")
		if err != nil {
			return err
		}

		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			return ValidationError("Reason is required for skipping a bin")
		}
		if utf8.RuneCountInString(reason) > models.MaxNotesLength {
			return ValidationError("Reason cannot exceed %d characters", models.MaxNotesLength)
		}
		if err := ensurePending(route.Bins[idx]); err != nil {
			return err
		}

		visit := &route.Bins[idx]
		visit.Status = models.BinVisitSkipped
		visit.Notes = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, EventBinSkipped, route, actor)
	return route, nil
}

// CompleteRoute closes an in-progress route and freezes its analytics
func (s *RouteService) CompleteRoute(ctx context.Context, actor Actor, routeID string) (*models.Route, *models.CompletionAnalytics, error) {
	var analytics models.CompletionAnalytics
	route, err := s.mutate(ctx, routeID, func(route *models.Route) error {
		if !route.IsAssignedTo(actor.ID) {
			return ForbiddenError("This route is not assigned to you")
		}
		if route.Status != models.RouteStatusInProgress {
			return InvalidStateError("Route must be in-progress to complete")
		}

		counters := route.Counters()
		if counters.PendingBins > 0 {
			return &RouteError{
				Kind:    KindValidation,
				Message: "All bins must be collected or skipped before completing the route",
				Details: map[string]interface{}{
					"total_bins":     counters.TotalBins,
					"collected_bins": counters.CollectedBins,
					"pending_bins":   counters.PendingBins,
					"skipped_bins":   counters.SkippedBins,
				},
			}
		}

		catalog, err := s.bins.GetBinsByIDs(ctx, visitBinIDs(route.Bins))
		if err != nil {
			return fmt.Errorf("failed to load bins: %w", err)
		}
		analytics = ComputeCompletionAnalytics(route.Bins, catalog)

		now := s.now()
		completedAt := now.Unix()
		route.Status = models.RouteStatusCompleted
		route.CompletedAt = &completedAt
		route.BinsCollected = analytics.BinsCollected
		route.WasteCollected = analytics.WasteCollected
		route.RecyclableWaste = analytics.RecyclableWaste
		route.Efficiency = analytics.Efficiency
		route.EndTime = &completedAt
		if route.StartedAt != nil {
			startTime := *route.StartedAt
			duration := durationMinutes(startTime, now)
			route.StartTime = &startTime
			route.RouteDuration = &duration
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("🏁 Route completed: %s (%d bins, %d kg, %d%% efficiency)",
		route.ID, analytics.BinsCollected, analytics.WasteCollected, analytics.Efficiency)
	s.notify(ctx, EventRouteCompleted, route, actor)
	return route, &analytics, nil
}

// CancelRoute cancels a route that has not completed
func (s *RouteService) CancelRoute(ctx context.Context, actor Actor, routeID string) (*models.Route, error) {
	route, err := s.mutate(ctx, routeID, func(route *models.Route) error {
		switch route.Status {
		case models.RouteStatusCompleted:
			return InvalidStateError("Cannot cancel a completed route")
		case models.RouteStatusCancelled:
			return InvalidStateError("Route is already cancelled")
		}
		route.Status = models.RouteStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, EventRouteCancelled, route, actor)
	return route, nil
}

// DeleteRoute removes a route
func (s *RouteService) DeleteRoute(ctx context.Context, actor Actor, routeID string) error {
	unlock := s.locks.lock(routeID)
	defer unlock()

	route, err := s.load(ctx, routeID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, routeID); err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			return NotFoundError("Route not found")
		}
		return fmt.Errorf("failed to delete route: %w", err)
	}

	log.Printf("🗑️  Route deleted: %s", routeID)
	s.notify(ctx, EventRouteDeleted, route, actor)
	return nil
}

// mutate runs load -> apply -> conditional save, re-running apply on a fresh
// copy whenever another writer saved the route in between. Writers in this
// process are serialized per route; conflicts with other processes back off
// with jitter until ctx ends.
func (s *RouteService) mutate(ctx context.Context, routeID string, apply func(route *models.Route) error) (*models.Route, error) {
	unlock := s.locks.lock(routeID)
	defer unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, mutationTimeout)
		defer cancel()
	}

	delay := retryBaseDelay
	for attempt := 1; ; attempt++ {
		current, err := s.load(ctx, routeID)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := apply(next); err != nil {
			return nil, err
		}
		next.UpdatedAt = s.now().Unix()

		err = s.store.Update(ctx, next)
		if errors.Is(err, ErrVersionConflict) {
			log.Printf("⚠️  Version conflict on route %s (attempt %d), retrying", routeID, attempt)
			if !sleepJittered(ctx, delay) {
				return nil, fmt.Errorf("route %s: %w after %d attempts: %v", routeID, ErrVersionConflict, attempt, ctx.Err())
			}
			delay = min(delay*2, retryMaxDelay)
			continue
		}
		if errors.Is(err, ErrRouteNotFound) {
			return nil, NotFoundError("Route not found")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save route: %w", err)
		}
		return next, nil
	}
}

// sleepJittered waits between d/2 and d. It reports false if ctx ended first.
func sleepJittered(ctx context.Context, d time.Duration) bool {
	half := d / 2
	timer := time.NewTimer(half + time.Duration(rand.Int63n(int64(half+1))))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *RouteService) load(ctx context.Context, routeID string) (*models.Route, error) {
	route, err := s.store.Get(ctx, routeID)
	if errors.Is(err, ErrRouteNotFound) {
		return nil, NotFoundError("Route not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load route: %w", err)
	}
	return route, nil
}

func (s *RouteService) ensureBinsExist(ctx context.Context, inputs []models.RouteBinInput) error {
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		ids[i] = in.BinID
	}

	catalog, err := s.bins.GetBinsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load bins: %w", err)
	}
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			return ValidationError("Bin not found: %s", id)
		}
	}
	return nil
}

func (s *RouteService) ensureCollector(ctx context.Context, userID string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || user.Role != models.RoleCollector {
		return ValidationError("Assigned user must have collector role")
	}
	return nil
}

func (s *RouteService) notify(ctx context.Context, eventType string, route *models.Route, actor Actor) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, RouteEvent{
		Type:       eventType,
		Route:      route,
		ActorID:    actor.ID,
		OccurredAt: s.now().Unix(),
	})
}

// visitForCollector runs the shared collect/skip preconditions in order:
// assignment, route status, bin present in the route.
func visitForCollector(route *models.Route, actor Actor, binID, statusMessage string) (int, error) {
	if !route.IsAssignedTo(actor.ID) {
		return -1, ForbiddenError("This route is not assigned to you")
	}
	if route.Status != models.RouteStatusInProgress {
		return -1, InvalidStateError(statusMessage)
	}
	idx := route.FindVisit(binID)
	if idx < 0 {
		return -1, NotFoundError("Bin not found in this route")
	}
	return idx, nil
}

func ensurePending(visit models.BinVisit) error {
	if visit.Status != models.BinVisitPending {
		return InvalidStateError(fmt.Sprintf("Bin has already been %s", visit.Status))
	}
	return nil
}

func validateBinInputs(inputs []models.RouteBinInput) error {
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.BinID) == "" {
			return ValidationError("Bin id is required")
		}
		if in.Order < 1 {
			return ValidationError("Bin order must be at least 1")
		}
		if _, dup := seen[in.BinID]; dup {
			return ValidationError("Duplicate bin in route: %s", in.BinID)
		}
		seen[in.BinID] = struct{}{}
	}
	return nil
}

func validateNotes(notes *string) error {
	if notes != nil && utf8.RuneCountInString(*notes) > models.MaxNotesLength {
		return ValidationError("Notes cannot exceed %d characters", models.MaxNotesLength)
	}
	return nil
}

// normalizeDate accepts YYYY-MM-DD or RFC3339 and returns YYYY-MM-DD
func normalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ValidationError("Scheduled date is required")
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Format("2006-01-02"), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format("2006-01-02"), nil
	}
	return "", ValidationError("Scheduled date must be a valid date (YYYY-MM-DD)")
}

// normalizeDateRange normalizes optional inclusive date bounds in place
func normalizeDateRange(from, to *string) error {
	for _, date := range []*string{from, to} {
		if *date == "" {
			continue
		}
		normalized, err := normalizeDate(*date)
		if err != nil {
			return ValidationError("Invalid date filter: %s", *date)
		}
		*date = normalized
	}
	if *from != "" && *to != "" && *from > *to {
		return ValidationError("from date must not be after to date")
	}
	return nil
}

func newVisits(inputs []models.RouteBinInput) models.BinVisits {
	visits := make(models.BinVisits, len(inputs))
	for i, in := range inputs {
		visits[i] = models.BinVisit{
			BinID:  strings.TrimSpace(in.BinID),
			Order:  in.Order,
			Status: models.BinVisitPending,
		}
	}
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].Order < visits[j].Order })
	return visits
}

func visitBinIDs(visits models.BinVisits) []string {
	ids := make([]string, len(visits))
	for i, v := range visits {
		ids[i] = v.BinID
	}
	return ids
}
