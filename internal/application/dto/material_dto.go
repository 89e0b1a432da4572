package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateMaterialRequest body para POST /api/materials.
type CreateMaterialRequest struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Threshold decimal.Decimal `json:"threshold"`
	Unit      string          `json:"unit"`
}

// UpdateMaterialRequest body para PUT /api/materials/:id.
type UpdateMaterialRequest struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Threshold decimal.Decimal `json:"threshold"`
	Unit      string          `json:"unit"`
}

// MaterialResponse materia prima o item de pool intermedio.
type MaterialResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Threshold      decimal.Decimal `json:"threshold"`
	Unit           string          `json:"unit"`
	IsMoulded      bool            `json:"is_moulded"`
	IsMachined     bool            `json:"is_machined"`
	IsAssembled    bool            `json:"is_assembled"`
	SourceBatchID  string          `json:"source_batch_id,omitempty"`
	BelowThreshold bool            `json:"below_threshold"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
