package handlers

import (
	"context"
	"sync"

	"wastecollect-backend/internal/models"
	"wastecollect-backend/internal/services"
)

type memRoutes struct {
	mu     sync.Mutex
	routes map[string]*models.Route
}

func (m *memRoutes) Create(ctx context.Context, route *models.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.routes {
		if r.RouteName == route.RouteName {
			return services.ErrDuplicateName
		}
	}
	m.routes[route.ID] = route.Clone()
	return nil
}

func (m *memRoutes) Get(ctx context.Context, id string) (*models.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return nil, services.ErrRouteNotFound
	}
	return r.Clone(), nil
}

func (m *memRoutes) List(ctx context.Context, filter models.RouteFilter) ([]models.Route, error) {
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
		out = append(out, *r.Clone())
	}
	return out, nil
}

func (m *memRoutes) Update(ctx context.Context, route *models.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.routes[route.ID]
	if !ok {
		return services.ErrRouteNotFound
	}
	if stored.Version != route.Version {
		return services.ErrVersionConflict
	}
	route.Version++
	m.routes[route.ID] = route.Clone()
	return nil
}

func (m *memRoutes) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return services.ErrRouteNotFound
	}
	delete(m.routes, id)
	return nil
}

func (m *memRoutes) NameExists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.routes {
		if r.RouteName == name {
			return true, nil
		}
	}
	return false, nil
}

type memBins struct {
	mu   sync.Mutex
	bins map[string]*models.Bin
}

func (b *memBins) GetBinsByIDs(ctx context.Context, ids []string) (map[string]*models.Bin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]*models.Bin)
	for _, id := range ids {
		if bin, ok := b.bins[id]; ok {
			cp := *bin
			out[id] = &cp
		}
	}
	return out, nil
}

func (b *memBins) ListBins(ctx context.Context) ([]models.Bin, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Bin, 0, len(b.bins))
	for _, bin := range b.bins {
		out = append(out, *bin)
	}
	return out, nil
}

func (b *memBins) CreateBin(ctx context.Context, bin *models.Bin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bin.BinNumber = len(b.bins) + 1
	b.bins[bin.ID] = bin
	return nil
}

type memUsers struct {
	mu     sync.Mutex
	users  map[string]*models.User
	tokens map[string]string
}

func (u *memUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.users[id], nil
}

func (u *memUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (u *memUsers) CreateUser(ctx context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users[user.ID] = user
	return nil
}

func (u *memUsers) SaveFCMToken(ctx context.Context, userID, token, deviceType string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tokens[token] = userID
	return nil
}
