package services

import (
	"math"
	"time"

	"wastecollect-backend/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeCompletionAnalytics derives the summary written onto a route when it completes.
// catalog maps bin id -> bin; bins missing from the catalog contribute only their actual weight.
func ComputeCompletionAnalytics(visits models.BinVisits, catalog map[string]*models.Bin) models.CompletionAnalytics {
	var result models.CompletionAnalytics
	waste := decimal.Zero
	recyclable := decimal.Zero

	for _, visit := range visits {
		if visit.Status != models.BinVisitCollected {
			continue
		}
		result.BinsCollected++

		bin := catalog[visit.BinID]
		contribution := visitWeight(visit, bin)
		waste = waste.Add(contribution)
		if bin != nil && bin.BinType == models.BinTypeRecyclable {
			recyclable = recyclable.Add(contribution)
		}
	}

	result.WasteCollected = int(waste.Round(0).IntPart())
	result.RecyclableWaste = int(recyclable.Round(0).IntPart())
	result.Efficiency = percentOf(result.BinsCollected, len(visits))
	return result
}

// visitWeight is the collector-entered weight when present (0 included),
// otherwise fill level at collection times the bin's capacity.
func visitWeight(visit models.BinVisit, bin *models.Bin) decimal.Decimal {
	if visit.ActualWeight != nil {
		return decimal.NewFromFloat(*visit.ActualWeight)
	}
	if bin == nil || visit.FillLevelAtCollection == nil {
		return decimal.Zero
	}
	fill := decimal.NewFromInt(int64(*visit.FillLevelAtCollection))
	return fill.Div(hundred).Mul(decimal.NewFromFloat(bin.Capacity))
}

// percentOf returns round(part/total*100), 0 when total is 0
func percentOf(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// durationMinutes rounds the elapsed time between two Unix timestamps to whole minutes
func durationMinutes(startedAt int64, endedAt time.Time) int {
	elapsed := endedAt.Sub(time.Unix(startedAt, 0))
	return int(math.Round(elapsed.Minutes()))
}
