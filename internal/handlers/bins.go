package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"wastecollect-backend/internal/models"
	"wastecollect-backend/pkg/utils"

	"github.com/google/uuid"
)

// BinStore is the bin catalog the handlers need
type BinStore interface {
	ListBins(ctx context.Context) ([]models.Bin, error)
	CreateBin(ctx context.Context, bin *models.Bin) error
}

// GetBins handles GET /api/bins
func GetBins(bins BinStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := bins.ListBins(r.Context())
		if err != nil {
			log.Printf("❌ Failed to fetch bins: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch bins")
			return
		}

		responses := make([]models.BinResponse, len(list))
		for i := range list {
			responses[i] = list[i].ToBinResponse()
		}

		utils.RespondSuccess(w, http.StatusOK, "", responses)
	}
}

// CreateBin handles POST /api/bins. Residents become the owner of bins they register.
func CreateBin(bins BinStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFromRequest(w, r)
		if !ok {
			return
		}

		var req models.CreateBinRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if req.BinType == "" {
			req.BinType = models.BinTypeGeneral
		}
		if !models.IsValidBinType(req.BinType) {
			utils.RespondError(w, http.StatusBadRequest, "Bin type must be General, Recyclable, Organic or Hazardous")
			return
		}
		if req.Capacity <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "Capacity must be a positive number")
			return
		}
		if req.FillLevel != nil && (*req.FillLevel < 0 || *req.FillLevel > 100) {
			utils.RespondError(w, http.StatusBadRequest, "Fill level must be between 0 and 100")
			return
		}
		if strings.TrimSpace(req.CurrentStreet) == "" || strings.TrimSpace(req.City) == "" || strings.TrimSpace(req.Zip) == "" {
			utils.RespondError(w, http.StatusBadRequest, "Street, city and zip are required")
			return
		}

		now := time.Now().Unix()
		bin := &models.Bin{
			ID:            uuid.New().String(),
			BinNumber:     req.BinNumber,
			BinType:       req.BinType,
			Capacity:      req.Capacity,
			FillLevel:     req.FillLevel,
			CurrentStreet: strings.TrimSpace(req.CurrentStreet),
			City:          strings.TrimSpace(req.City),
			Zip:           strings.TrimSpace(req.Zip),
			Status:        "Active",
			Latitude:      req.Latitude,
			Longitude:     req.Longitude,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if actor.Role == models.RoleResident {
			owner := actor.ID
			bin.OwnerID = &owner
		}

		if err := bins.CreateBin(r.Context(), bin); err != nil {
			log.Printf("❌ Failed to create bin: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create bin")
			return
		}

		log.Printf("✅ Bin #%d registered (%s, %.0f kg)", bin.BinNumber, bin.BinType, bin.Capacity)
		utils.RespondSuccess(w, http.StatusCreated, "Bin created successfully", bin.ToBinResponse())
	}
}
