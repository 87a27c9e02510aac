package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"wastecollect-backend/internal/middleware"
	"wastecollect-backend/internal/models"
	"wastecollect-backend/internal/services"
	"wastecollect-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// CreateRoute handles POST /api/routes
func CreateRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req models.CreateRouteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		log.Printf("📥 REQUEST: POST /api/routes - %q (%d bins) by %s", req.RouteName, len(req.Bins), actor.ID)

		route, err := svc.CreateRoute(r.Context(), actor, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusCreated, "Route created successfully", route.ToRouteResponse())
	}
}

// ListRoutes handles GET /api/routes?status=&assigned_to=&from=&to=
func ListRoutes(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := models.RouteFilter{
			Status:     models.RouteStatus(q.Get("status")),
			AssignedTo: q.Get("assigned_to"),
			FromDate:   q.Get("from"),
			ToDate:     q.Get("to"),
		}
		if filter.Status != "" && !models.IsValidRouteStatus(filter.Status) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}

		routes, err := svc.ListRoutes(r.Context(), filter)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "", toRouteResponses(routes))
	}
}

// GetMyRoutes handles GET /api/routes/my-routes for the calling collector
func GetMyRoutes(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		status := models.RouteStatus(r.URL.Query().Get("status"))
		if status != "" && !models.IsValidRouteStatus(status) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}

		routes, err := svc.ListCollectorRoutes(r.Context(), actor, status)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "", toRouteResponses(routes))
	}
}

// GetRoute handles GET /api/routes/{id}
func GetRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}

		route, err := svc.GetRoute(r.Context(), routeID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "", route.ToRouteResponse())
	}
}

// UpdateRoute handles PUT /api/routes/{id}
func UpdateRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}

		var req models.UpdateRouteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		route, err := svc.UpdateRoute(r.Context(), actor, routeID, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Route updated successfully", route.ToRouteResponse())
	}
}

// AssignRoute handles PUT /api/routes/{id}/assign
func AssignRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}

		var req models.AssignRouteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		log.Printf("📥 REQUEST: PUT /api/routes/%s/assign - collector %s", routeID, req.CollectorID)

		route, err := svc.AssignCollector(r.Context(), actor, routeID, req.CollectorID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Route assigned successfully", route.ToRouteResponse())
	}
}

// CancelRoute handles PUT /api/routes/{id}/cancel
func CancelRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}

		route, err := svc.CancelRoute(r.Context(), actor, routeID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Route cancelled", route.ToRouteResponse())
	}
}

// DeleteRoute handles DELETE /api/routes/{id}
func DeleteRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteRoute(r.Context(), actor, routeID); err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Route deleted successfully", nil)
	}
}

// StartRoute handles PUT /api/routes/{id}/start
func StartRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}

		var req models.StartRouteRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		route, err := svc.StartRoute(r.Context(), actor, routeID, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Route started successfully", route.ToRouteResponse())
	}
}

// CollectBin handles PUT /api/routes/{id}/bins/{binId}/collect
func CollectBin(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}
		binID := chi.URLParam(r, "binId")

		var req models.CollectBinRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := svc.CollectBin(r.Context(), actor, routeID, binID, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Bin collected successfully", map[string]interface{}{
			"route":            result.Route.ToRouteResponse(),
			"bin_id":           result.BinID,
			"collected_weight": result.CollectedWeight,
		})
	}
}

// SkipBin handles PUT /api/routes/{id}/bins/{binId}/skip
func SkipBin(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}
		binID := chi.URLParam(r, "binId")

		var req models.SkipBinRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		route, err := svc.SkipBin(r.Context(), actor, routeID, binID, req)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Bin skipped", route.ToRouteResponse())
	}
}

// CompleteRoute handles PUT /api/routes/{id}/complete
func CompleteRoute(svc *services.RouteService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}
		routeID, ok := routeIDParam(w, r)
		if !ok {
			return
		}

		route, analytics, err := svc.CompleteRoute(r.Context(), actor, routeID)
		if err != nil {
			respondServiceError(w, err)
			return
		}

		utils.RespondSuccess(w, http.StatusOK, "Route completed successfully", map[string]interface{}{
			"route":     route.ToRouteResponse(),
			"analytics": analytics,
		})
	}
}

func toRouteResponses(routes []models.Route) []models.RouteResponse {
	out := make([]models.RouteResponse, len(routes))
	for i := range routes {
		out[i] = routes[i].ToRouteResponse()
	}
	return out
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return services.Actor{}, false
	}
	return services.Actor{ID: claims.UserID, Role: claims.Role}, true
}

// decodeJSON reads the request body into dst. An empty body leaves dst zeroed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("❌ Invalid request body: %v", err)
		utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
