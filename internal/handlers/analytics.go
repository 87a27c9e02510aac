package handlers

import (
	"net/http"

	"wastecollect-backend/internal/models"
	"wastecollect-backend/internal/services"
	"wastecollect-backend/pkg/utils"
)

// GetAnalyticsSummary handles GET /api/analytics/summary?from=&to=&collector_id=
func GetAnalyticsSummary(analytics *services.AnalyticsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := models.AnalyticsFilter{
			FromDate:    q.Get("from"),
			ToDate:      q.Get("to"),
			CollectorID: q.Get("collector_id"),
		}

		summary, err := analytics.Summary(r.Context(), filter)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "", summary)
	}
}
