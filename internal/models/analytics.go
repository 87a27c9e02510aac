package models

// AnalyticsFilter narrows the set of completed routes being summarised
type AnalyticsFilter struct {
	FromDate    string `json:"from_date,omitempty"` // inclusive, YYYY-MM-DD
	ToDate      string `json:"to_date,omitempty"`   // inclusive, YYYY-MM-DD
	CollectorID string `json:"collector_id,omitempty"`
}

// AnalyticsSummary re-aggregates the fields written when routes complete
type AnalyticsSummary struct {
	TotalRoutes          int                `json:"total_routes"`
	TotalBinsCollected   int                `json:"total_bins_collected"`
	TotalWasteCollected  int                `json:"total_waste_collected"`  // kg
	TotalRecyclableWaste int                `json:"total_recyclable_waste"` // kg
	RecyclingRate        int                `json:"recycling_rate"`         // percent
	AverageEfficiency    int                `json:"average_efficiency"`     // percent
	AverageDuration      int                `json:"average_duration"`       // minutes
	ByCollector          []CollectorSummary `json:"by_collector"`
	Filter               AnalyticsFilter    `json:"filter"`
	GeneratedAt          int64              `json:"generated_at"`
}

// CollectorSummary is the per-collector slice of an AnalyticsSummary
type CollectorSummary struct {
	CollectorID       string `json:"collector_id"`
	Routes            int    `json:"routes"`
	BinsCollected     int    `json:"bins_collected"`
	WasteCollected    int    `json:"waste_collected"`
	RecyclableWaste   int    `json:"recyclable_waste"`
	AverageEfficiency int    `json:"average_efficiency"`
}
