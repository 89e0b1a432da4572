package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BOMLineDTO material por pieza de una etapa del producto.
type BOMLineDTO struct {
	RawMaterialID string          `json:"raw_material_id"`
	Name          string          `json:"name"`
	Stage         string          `json:"stage"`
	QtyPerPiece   decimal.Decimal `json:"qty_per_piece"`
	Unit          string          `json:"unit"`
	Source        string          `json:"source"` // raw | final
}

// ProductLotDTO lote del libro de producto terminado.
type ProductLotDTO struct {
	BatchID   string          `json:"batch_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateProductRequest body para POST /api/products.
type CreateProductRequest struct {
	Name                string       `json:"name"`
	SKU                 string       `json:"sku"`
	Unit                string       `json:"unit"`
	ManufacturingStages []string     `json:"manufacturing_stages"`
	BOMPerPiece         []BOMLineDTO `json:"bom_per_piece"`
}

// UpdateProductRequest body para PUT /api/products/:id.
type UpdateProductRequest struct {
	Name                string       `json:"name"`
	Unit                string       `json:"unit"`
	ManufacturingStages []string     `json:"manufacturing_stages"`
	BOMPerPiece         []BOMLineDTO `json:"bom_per_piece"`
}

// ProductResponse producto terminado.
type ProductResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	SKU                 string          `json:"sku"`
	Unit                string          `json:"unit"`
	AvailableQuantity   decimal.Decimal `json:"available_quantity"`
	ManufacturingStages []string        `json:"manufacturing_stages"`
	BOMPerPiece         []BOMLineDTO    `json:"bom_per_piece"`
	MouldedMaterialID   string          `json:"moulded_material_id,omitempty"`
	MachinedMaterialID  string          `json:"machined_material_id,omitempty"`
	AssembledMaterialID string          `json:"assembled_material_id,omitempty"`
	Lots                []ProductLotDTO `json:"lots,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
