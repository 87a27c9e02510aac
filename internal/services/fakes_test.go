package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"wastecollect-backend/internal/models"
)

// memStore is an in-memory RouteStore with the same version check as Postgres
type memStore struct {
	mu     sync.Mutex
	routes map[string]*models.Route

	// conflicts makes the next N updates fail with ErrVersionConflict
	conflicts int
	updates   int
}

func newMemStore() *memStore {
	return &memStore{routes: make(map[string]*models.Route)}
}

func (m *memStore) Create(ctx context.Context, route *models.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.routes {
		if r.RouteName == route.RouteName {
			return ErrDuplicateName
		}
	}
	m.routes[route.ID] = route.Clone()
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return nil, ErrRouteNotFound
	}
	return r.Clone(), nil
}

func (m *memStore) List(ctx context.Context, filter models.RouteFilter) ([]models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Route{}
	for _, r := range m.routes {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && !r.IsAssignedTo(filter.AssignedTo) {
			continue
		}
		if filter.FromDate != "" && r.ScheduledDate < filter.FromDate {
			continue
		}
		if filter.ToDate != "" && r.ScheduledDate > filter.ToDate {
			continue
		}
		out = append(out, *r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteName < out[j].RouteName })
	return out, nil
}

func (m *memStore) Update(ctx context.Context, route *models.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	stored, ok := m.routes[route.ID]
	if !ok {
		return ErrRouteNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		stored.Version++
		return ErrVersionConflict
	}
	if stored.Version != route.Version {
		return ErrVersionConflict
	}
	route.Version++
	m.routes[route.ID] = route.Clone()
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return ErrRouteNotFound
	}
	delete(m.routes, id)
	return nil
}

func (m *memStore) NameExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.routes {
		if r.RouteName == name {
			return true, nil
		}
	}
	return false, nil
}

type fakeBins struct {
	mu        sync.Mutex
	bins      map[string]*models.Bin
	collected map[string]int64
}

func newFakeBins(bins ...*models.Bin) *fakeBins {
	f := &fakeBins{bins: make(map[string]*models.Bin), collected: make(map[string]int64)}
	for _, b := range bins {
		f.bins[b.ID] = b
	}
	return f
}

func (f *fakeBins) GetBinsByIDs(ctx context.Context, ids []string) (map[string]*models.Bin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*models.Bin)
	for _, id := range ids {
		if b, ok := f.bins[id]; ok {
			cp := *b
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeBins) MarkCollected(ctx context.Context, binID string, collectedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collected[binID] = collectedAt
	return nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return f[id], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []RouteEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event RouteEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

var (
	testAdmin      = Actor{ID: "admin-1", Role: models.RoleAdmin}
	testCollector  = Actor{ID: "collector-1", Role: models.RoleCollector}
	otherCollector = Actor{ID: "collector-2", Role: models.RoleCollector}
)

// testFixture wires a RouteService to in-memory dependencies with a fixed clock
type testFixture struct {
	svc      *RouteService
	store    *memStore
	bins     *fakeBins
	notifier *recordingNotifier
	now      time.Time
}

func newFixture() *testFixture {
	f := &testFixture{
		store: newMemStore(),
		bins: newFakeBins(
			&models.Bin{ID: "bin-a", BinType: models.BinTypeGeneral, Capacity: 100, FillLevel: intPtr(50)},
			&models.Bin{ID: "bin-b", BinType: models.BinTypeRecyclable, Capacity: 200, FillLevel: intPtr(25)},
			&models.Bin{ID: "bin-c", BinType: models.BinTypeOrganic, Capacity: 80, FillLevel: intPtr(90)},
		),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
	users := fakeUsers{
		testAdmin.ID:      {ID: testAdmin.ID, Role: models.RoleAdmin},
		testCollector.ID:  {ID: testCollector.ID, Role: models.RoleCollector},
		otherCollector.ID: {ID: otherCollector.ID, Role: models.RoleCollector},
		"resident-1":      {ID: "resident-1", Role: models.RoleResident},
	}
	f.svc = NewRouteService(f.store, f.bins, users, f.notifier).WithClock(func() time.Time { return f.now })
	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *testFixture) createRoute(name string, binIDs ...string) *models.Route {
	bins := make([]models.RouteBinInput, len(binIDs))
	for i, id := range binIDs {
		bins[i] = models.RouteBinInput{BinID: id, Order: i + 1}
	}
	route, err := f.svc.CreateRoute(context.Background(), testAdmin, models.CreateRouteRequest{
		RouteName:     name,
		Bins:          bins,
		ScheduledDate: "2026-03-02",
		ScheduledTime: "08:00",
		AssignedTo:    strPtr(testCollector.ID),
	})
	if err != nil {
		panic(err)
	}
	return route
}

func checkedList() models.StartRouteRequest {
	return models.StartRouteRequest{PreRouteChecklist: []byte(
		`{"items":[{"label":"Brakes","checked":true},{"label":"Lights","checked":true}]}`,
	)}
}

func (f *testFixture) startedRoute(name string, binIDs ...string) *models.Route {
	route := f.createRoute(name, binIDs...)
	started, err := f.svc.StartRoute(context.Background(), testCollector, route.ID, checkedList())
	if err != nil {
		panic(err)
	}
	return started
}

func (l *routeLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
