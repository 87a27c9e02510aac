package models

import "time"

// Bin types recognised by the catalog
const (
	BinTypeGeneral    = "General"
	BinTypeRecyclable = "Recyclable"
	BinTypeOrganic    = "Organic"
	BinTypeHazardous  = "Hazardous"
)

type Bin struct {
	ID            string   `json:"id" db:"id"`
	BinNumber     int      `json:"bin_number" db:"bin_number"`
	BinType       string   `json:"bin_type" db:"bin_type"`
	Capacity      float64  `json:"capacity" db:"capacity"` // kg
	FillLevel     *int     `json:"fill_level,omitempty" db:"fill_level"`
	OwnerID       *string  `json:"owner_id,omitempty" db:"owner_id"` // Resident who registered the bin
	CurrentStreet string   `json:"current_street" db:"current_street"`
	City          string   `json:"city" db:"city"`
	Zip           string   `json:"zip" db:"zip"`
	Status        string   `json:"status" db:"status"`
	LastCollected *int64   `json:"last_collected,omitempty" db:"last_collected"` // Unix timestamp
	Latitude      *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64 `json:"longitude,omitempty" db:"longitude"`
	CreatedAt     int64    `json:"created_at" db:"created_at"` // Unix timestamp
	UpdatedAt     int64    `json:"updated_at" db:"updated_at"` // Unix timestamp
}

// BinResponse is what we send to the client with ISO timestamps
type BinResponse struct {
	ID               string   `json:"id"`
	BinNumber        int      `json:"bin_number"`
	BinType          string   `json:"bin_type"`
	Capacity         float64  `json:"capacity"`
	FillLevel        *int     `json:"fill_level,omitempty"`
	OwnerID          *string  `json:"owner_id,omitempty"`
	CurrentStreet    string   `json:"current_street"`
	City             string   `json:"city"`
	Zip              string   `json:"zip"`
	Status           string   `json:"status"`
	LastCollectedIso *string  `json:"lastCollectedIso,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
}

// CreateBinRequest is the request body for POST /api/bins
type CreateBinRequest struct {
	BinNumber     int      `json:"bin_number"`
	BinType       string   `json:"bin_type"`
	Capacity      float64  `json:"capacity"`
	FillLevel     *int     `json:"fill_level,omitempty"`
	CurrentStreet string   `json:"current_street"`
	City          string   `json:"city"`
	Zip           string   `json:"zip"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// IsValidBinType checks a bin type against the catalog's known types
func IsValidBinType(t string) bool {
	switch t {
	case BinTypeGeneral, BinTypeRecyclable, BinTypeOrganic, BinTypeHazardous:
		return true
	}
	return false
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	resp := BinResponse{
		ID:            b.ID,
		BinNumber:     b.BinNumber,
		BinType:       b.BinType,
		Capacity:      b.Capacity,
		FillLevel:     b.FillLevel,
		OwnerID:       b.OwnerID,
		CurrentStreet: b.CurrentStreet,
		City:          b.City,
		Zip:           b.Zip,
		Status:        b.Status,
		Latitude:      b.Latitude,
		Longitude:     b.Longitude,
	}

	if b.LastCollected != nil {
		iso := time.Unix(*b.LastCollected, 0).UTC().Format(time.RFC3339)
		resp.LastCollectedIso = &iso
	}

	return resp
}
