package models

import (
	"encoding/json"
	"testing"
)

func visits(statuses ...BinVisitStatus) BinVisits {
	out := make(BinVisits, len(statuses))
	for i, s := range statuses {
		out[i] = BinVisit{BinID: string(rune('a' + i)), Order: i + 1, Status: s}
	}
	return out
}

func TestRouteCounters(t *testing.T) {
	tests := []struct {
		name  string
		route Route
		want  RouteCounters
	}{
		{
			name:  "fresh route",
			route: Route{Status: RouteStatusScheduled, Bins: visits(BinVisitPending, BinVisitPending)},
			want:  RouteCounters{TotalBins: 2, PendingBins: 2},
		},
		{
			name:  "partially done",
			route: Route{Status: RouteStatusInProgress, Bins: visits(BinVisitCollected, BinVisitSkipped, BinVisitPending)},
			want:  RouteCounters{TotalBins: 3, CollectedBins: 1, SkippedBins: 1, PendingBins: 1, Progress: 33},
		},
		{
			name:  "skips count toward completion but not progress",
			route: Route{Status: RouteStatusInProgress, Bins: visits(BinVisitSkipped, BinVisitCollected)},
			want:  RouteCounters{TotalBins: 2, CollectedBins: 1, SkippedBins: 1, Progress: 50, IsComplete: true},
		},
		{
			name:  "empty scheduled route is not complete",
			route: Route{Status: RouteStatusScheduled},
			want:  RouteCounters{},
		},
		{
			name:  "empty completed route is complete",
			route: Route{Status: RouteStatusCompleted},
			want:  RouteCounters{IsComplete: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.route.Counters(); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRouteCloneIsDeep(t *testing.T) {
	collector := "collector-1"
	weight := 4.5
	started := int64(100)
	original := &Route{
		AssignedTo: &collector,
		StartedAt:  &started,
		Bins:       BinVisits{{BinID: "a", Status: BinVisitCollected, ActualWeight: &weight}},
		PreRouteChecklist: &PreRouteChecklist{
			Completed: true,
			Items:     []json.RawMessage{json.RawMessage(`{"label":"Brakes","checked":true}`)},
		},
	}

	clone := original.Clone()
	*clone.AssignedTo = "collector-2"
	*clone.StartedAt = 200
	clone.Bins[0].Status = BinVisitPending
	*clone.Bins[0].ActualWeight = 9
	clone.PreRouteChecklist.Items[0][1] = 'X'

	if *original.AssignedTo != "collector-1" || *original.StartedAt != 100 {
		t.Fatalf("scalar pointers shared with clone")
	}
	if original.Bins[0].Status != BinVisitCollected || *original.Bins[0].ActualWeight != 4.5 {
		t.Fatalf("visits shared with clone: %+v", original.Bins[0])
	}
	if string(original.PreRouteChecklist.Items[0]) != `{"label":"Brakes","checked":true}` {
		t.Fatalf("checklist shared with clone")
	}
}

func TestRouteResponseFlattensCounters(t *testing.T) {
	route := Route{ID: "r1", Status: RouteStatusInProgress, Bins: visits(BinVisitCollected, BinVisitPending)}
	raw, err := json.Marshal(route.ToRouteResponse())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var body map[string]interface{}
	json.Unmarshal(raw, &body)
	if body["id"] != "r1" || body["total_bins"] != float64(2) || body["progress"] != float64(50) || body["is_complete"] != false {
		t.Fatalf("body = %s", raw)
	}
}

func TestBinVisitsScan(t *testing.T) {
	var v BinVisits
	if err := v.Scan(nil); err != nil || v == nil || len(v) != 0 {
		t.Fatalf("scan nil: %v %v", v, err)
	}
	if err := v.Scan(`[{"bin_id":"a","order":1,"status":"skipped","notes":"blocked"}]`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if len(v) != 1 || v[0].Status != BinVisitSkipped || *v[0].Notes != "blocked" {
		t.Fatalf("scanned %+v", v)
	}
	if err := v.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}

	var empty BinVisits
	value, _ := empty.Value()
	if string(value.([]byte)) != "[]" {
		t.Fatalf("nil visits stored as %s", value)
	}
}

func TestIsValidRouteStatus(t *testing.T) {
	for _, s := range []RouteStatus{RouteStatusScheduled, RouteStatusInProgress, RouteStatusCompleted, RouteStatusCancelled} {
		if !IsValidRouteStatus(s) {
			t.Errorf("%s should be valid", s)
		}
	}
	if IsValidRouteStatus("done") {
		t.Errorf("done should be invalid")
	}
}

func TestCollectBinRequestFlagsWrongTypes(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		weight       *float64
		fill         *int
		badWeight    bool
		badFillLevel bool
	}{
		{name: "empty", body: `{}`},
		{name: "nulls", body: `{"actual_weight":null,"fill_level":null}`},
		{name: "numbers", body: `{"actual_weight":12.5,"fill_level":40}`, weight: ptr(12.5), fill: ptr(40)},
		{name: "weight as word", body: `{"actual_weight":"ten"}`, badWeight: true},
		{name: "weight as numeric string", body: `{"actual_weight":"10"}`, badWeight: true},
		{name: "fractional fill", body: `{"fill_level":50.5}`, badFillLevel: true},
		{name: "fill as bool", body: `{"actual_weight":3,"fill_level":true}`, weight: ptr(3.0), badFillLevel: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CollectBinRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.InvalidWeight != tt.badWeight || req.InvalidFillLevel != tt.badFillLevel {
				t.Fatalf("flags = weight:%v fill:%v", req.InvalidWeight, req.InvalidFillLevel)
			}
			if (req.ActualWeight == nil) != (tt.weight == nil) || (tt.weight != nil && *req.ActualWeight != *tt.weight) {
				t.Fatalf("weight = %v, want %v", req.ActualWeight, tt.weight)
			}
			if (req.FillLevel == nil) != (tt.fill == nil) || (tt.fill != nil && *req.FillLevel != *tt.fill) {
				t.Fatalf("fill = %v, want %v", req.FillLevel, tt.fill)
			}
		})
	}

	var req CollectBinRequest
	if err := json.Unmarshal([]byte(`[1,2]`), &req); err == nil {
		t.Fatalf("expected error for non-object body")
	}
}

func ptr[T any](v T) *T { return &v }
