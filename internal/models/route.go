package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
)

// RouteStatus represents where a route is in its lifecycle
type RouteStatus string

const (
	RouteStatusScheduled  RouteStatus = "scheduled"   // Created, not started
	RouteStatusInProgress RouteStatus = "in-progress" // Collector is working the route
	RouteStatusCompleted  RouteStatus = "completed"   // Analytics computed and frozen
	RouteStatusCancelled  RouteStatus = "cancelled"   // Cancelled by an admin
)

// IsValidRouteStatus checks a status against the known lifecycle states
func IsValidRouteStatus(s RouteStatus) bool {
	switch s {
	case RouteStatusScheduled, RouteStatusInProgress, RouteStatusCompleted, RouteStatusCancelled:
		return true
	}
	return false
}

// BinVisitStatus represents the state of a single bin stop
type BinVisitStatus string

const (
	BinVisitPending   BinVisitStatus = "pending"
	BinVisitCollected BinVisitStatus = "collected"
	BinVisitSkipped   BinVisitStatus = "skipped"
)

const (
	MaxRouteNameLength = 100
	MaxNotesLength     = 500
)

// BinVisit is one bin stop embedded in a route.
// Order is a display hint; visits can be processed in any order.
type BinVisit struct {
	BinID                 string         `json:"bin_id"`
	Order                 int            `json:"order"`
	Status                BinVisitStatus `json:"status"`
	CollectedAt           *int64         `json:"collected_at,omitempty"` // Unix timestamp
	FillLevelAtCollection *int           `json:"fill_level_at_collection,omitempty"`
	ActualWeight          *float64       `json:"actual_weight,omitempty"` // kg, entered by the collector
	Notes                 *string        `json:"notes,omitempty"`         // Skip reason
}

// BinVisits is stored as a JSONB column
type BinVisits []BinVisit

func (v BinVisits) Value() (driver.Value, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

func (v *BinVisits) Scan(src interface{}) error {
	switch data := src.(type) {
	case nil:
		*v = BinVisits{}
		return nil
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return errors.New("bins: unsupported column type")
	}
}

// PreRouteChecklist is stored as a JSONB column once the route starts.
// Items hold each submitted check exactly as the client sent it.
type PreRouteChecklist struct {
	Completed   bool              `json:"completed"`
	Items       []json.RawMessage `json:"items"`
	CompletedAt *int64            `json:"completed_at,omitempty"`
}

func (c PreRouteChecklist) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *PreRouteChecklist) Scan(src interface{}) error {
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, c)
	case string:
		return json.Unmarshal([]byte(data), c)
	default:
		return errors.New("pre_route_checklist: unsupported column type")
	}
}

// Route is the aggregate root for a collection plan
type Route struct {
	ID            string      `json:"id" db:"id"`
	RouteName     string      `json:"route_name" db:"route_name"`
	CreatedBy     string      `json:"created_by" db:"created_by"`
	AssignedTo    *string     `json:"assigned_to,omitempty" db:"assigned_to"`
	ScheduledDate string      `json:"scheduled_date" db:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime string      `json:"scheduled_time" db:"scheduled_time"`
	Notes         *string     `json:"notes,omitempty" db:"notes"`
	Status        RouteStatus `json:"status" db:"status"`

	StartedAt         *int64             `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *int64             `json:"completed_at,omitempty" db:"completed_at"`
	PreRouteChecklist *PreRouteChecklist `json:"pre_route_checklist,omitempty" db:"pre_route_checklist"`

	Bins BinVisits `json:"bins" db:"bins"`

	// Written once when the route completes
	BinsCollected   int     `json:"bins_collected" db:"bins_collected"`
	WasteCollected  int     `json:"waste_collected" db:"waste_collected"`         // kg
	RecyclableWaste int     `json:"recyclable_waste" db:"recyclable_waste"`       // kg
	Efficiency      int     `json:"efficiency" db:"efficiency"`                   // 0-100
	Satisfaction    float64 `json:"satisfaction" db:"satisfaction"`               // 0-5
	RouteDuration   *int    `json:"route_duration,omitempty" db:"route_duration"` // minutes
	StartTime       *int64  `json:"start_time,omitempty" db:"start_time"`
	EndTime         *int64  `json:"end_time,omitempty" db:"end_time"`

	Version   int   `json:"version" db:"version"`
	CreatedAt int64 `json:"created_at" db:"created_at"`
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// RouteCounters are derived from the visit list on every read
type RouteCounters struct {
	TotalBins     int  `json:"total_bins"`
	CollectedBins int  `json:"collected_bins"`
	PendingBins   int  `json:"pending_bins"`
	SkippedBins   int  `json:"skipped_bins"`
	Progress      int  `json:"progress"`
	IsComplete    bool `json:"is_complete"`
}

// RouteResponse is what we send to the client: the stored route plus its counters
type RouteResponse struct {
	Route
	RouteCounters
}

// CompletionAnalytics mirrors the analytics fields written at completion
type CompletionAnalytics struct {
	BinsCollected   int `json:"bins_collected"`
	WasteCollected  int `json:"waste_collected"`
	RecyclableWaste int `json:"recyclable_waste"`
	Efficiency      int `json:"efficiency"`
}

// Counters computes the virtual counters from the visit list.
// A completed route always reports IsComplete, including one with no bins.
func (r *Route) Counters() RouteCounters {
	c := RouteCounters{TotalBins: len(r.Bins)}
	for _, v := range r.Bins {
		switch v.Status {
		case BinVisitCollected:
			c.CollectedBins++
		case BinVisitSkipped:
			c.SkippedBins++
		default:
			c.PendingBins++
		}
	}

	if c.TotalBins > 0 {
		c.Progress = int(math.Round(float64(c.CollectedBins) / float64(c.TotalBins) * 100))
	}
	c.IsComplete = c.PendingBins == 0 && (c.TotalBins > 0 || r.Status == RouteStatusCompleted)
	return c
}

// ToRouteResponse converts a Route to RouteResponse
func (r *Route) ToRouteResponse() RouteResponse {
	return RouteResponse{Route: *r, RouteCounters: r.Counters()}
}

// FindVisit returns the index of the visit for binID, or -1
func (r *Route) FindVisit(binID string) int {
	for i := range r.Bins {
		if r.Bins[i].BinID == binID {
			return i
		}
	}
	return -1
}

// IsAssignedTo reports whether userID is the route's collector
func (r *Route) IsAssignedTo(userID string) bool {
	return r.AssignedTo != nil && *r.AssignedTo == userID
}

// Clone returns a deep copy so a mutation can be discarded on failure
func (r *Route) Clone() *Route {
	cp := *r
	cp.AssignedTo = cloneString(r.AssignedTo)
	cp.Notes = cloneString(r.Notes)
	cp.StartedAt = cloneInt64(r.StartedAt)
	cp.CompletedAt = cloneInt64(r.CompletedAt)
	cp.StartTime = cloneInt64(r.StartTime)
	cp.EndTime = cloneInt64(r.EndTime)
	if r.RouteDuration != nil {
		d := *r.RouteDuration
		cp.RouteDuration = &d
	}
	if r.PreRouteChecklist != nil {
		cl := *r.PreRouteChecklist
		cl.Items = make([]json.RawMessage, len(r.PreRouteChecklist.Items))
		for i, item := range r.PreRouteChecklist.Items {
			cl.Items[i] = append(json.RawMessage(nil), item...)
		}
		cl.CompletedAt = cloneInt64(r.PreRouteChecklist.CompletedAt)
		cp.PreRouteChecklist = &cl
	}

	cp.Bins = make(BinVisits, len(r.Bins))
	for i, v := range r.Bins {
		nv := v
		nv.CollectedAt = cloneInt64(v.CollectedAt)
		nv.Notes = cloneString(v.Notes)
		if v.FillLevelAtCollection != nil {
			f := *v.FillLevelAtCollection
			nv.FillLevelAtCollection = &f
		}
		if v.ActualWeight != nil {
			w := *v.ActualWeight
			nv.ActualWeight = &w
		}
		cp.Bins[i] = nv
	}
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// RouteBinInput is one bin reference in a create/update request
type RouteBinInput struct {
	BinID string `json:"bin_id"`
	Order int    `json:"order"`
}

// CreateRouteRequest is the request body for POST /api/routes
type CreateRouteRequest struct {
	RouteName     string          `json:"route_name"`
	Bins          []RouteBinInput `json:"bins"`
	ScheduledDate string          `json:"scheduled_date"`
	ScheduledTime string          `json:"scheduled_time"`
	Notes         *string         `json:"notes,omitempty"`
	AssignedTo    *string         `json:"assigned_to,omitempty"`
}

// UpdateRouteRequest is the request body for PUT /api/routes/:id
// RouteName is accepted only so a rename attempt can be rejected explicitly.
type UpdateRouteRequest struct {
	RouteName     *string         `json:"route_name,omitempty"`
	Bins          []RouteBinInput `json:"bins,omitempty"`
	ScheduledDate *string         `json:"scheduled_date,omitempty"`
	ScheduledTime *string         `json:"scheduled_time,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	AssignedTo    *string         `json:"assigned_to,omitempty"`
}

// AssignRouteRequest is the request body for PUT /api/routes/:id/assign
type AssignRouteRequest struct {
	CollectorID string `json:"collector_id"`
}

// StartRouteRequest is the request body for PUT /api/routes/:id/start.
// The checklist stays raw so a wrong shape is reported as a checklist
// error after the route's own checks, not as a bad body.
type StartRouteRequest struct {
	PreRouteChecklist json.RawMessage `json:"pre_route_checklist"`
}

// CollectBinRequest is the request body for PUT /api/routes/:id/bins/:binId/collect
type CollectBinRequest struct {
	ActualWeight *float64 `json:"actual_weight,omitempty"`
	FillLevel    *int     `json:"fill_level,omitempty"`

	// Set when the field was sent but is not a number of the right kind
	InvalidWeight    bool `json:"-"`
	InvalidFillLevel bool `json:"-"`
}

func (r *CollectBinRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		ActualWeight json.RawMessage `json:"actual_weight"`
		FillLevel    json.RawMessage `json:"fill_level"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = CollectBinRequest{}
	if isPresent(raw.ActualWeight) {
		var weight float64
		if err := json.Unmarshal(raw.ActualWeight, &weight); err != nil {
			r.InvalidWeight = true
		} else {
			r.ActualWeight = &weight
		}
	}
	if isPresent(raw.FillLevel) {
		var level int
		if err := json.Unmarshal(raw.FillLevel, &level); err != nil {
			r.InvalidFillLevel = true
		} else {
			r.FillLevel = &level
		}
	}
	return nil
}

func isPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// SkipBinRequest is the request body for PUT /api/routes/:id/bins/:binId/skip
type SkipBinRequest struct {
	Reason string `json:"reason"`
}

// RouteFilter narrows route listings
type RouteFilter struct {
	Status     RouteStatus
	AssignedTo string
	FromDate   string // inclusive, YYYY-MM-DD
	ToDate     string // inclusive, YYYY-MM-DD
}
