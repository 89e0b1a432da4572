package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origen de un material del BOM.
const (
	BOMSourceRaw   = "raw"   // materia prima o pool intermedio
	BOMSourceFinal = "final" // producto terminado consumido como insumo
)

// BOMLine material requerido por pieza en una etapa del producto.
type BOMLine struct {
	RawMaterialID string          `json:"raw_material_id"`
	Name          string          `json:"name"`
	Stage         string          `json:"stage"`
	QtyPerPiece   decimal.Decimal `json:"qty_per_piece"`
	Unit          string          `json:"unit"`
	Source        string          `json:"source"` // raw | final
}

// ProductLot entrada del libro de lotes de producto terminado.
// El consumo es FIFO por CreatedAt; los lotes en cero se eliminan.
type ProductLot struct {
	BatchID   string          `json:"batch_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
}

// Product definición de producto terminado (Final Stock).
// ManufacturingStages es la secuencia autoritativa de etapas; los enlaces
// Moulded/Machined/AssembledMaterialID apuntan a los pools intermedios
// auto-gestionados. Lots lleva los lotes de producción para FIFO; Quantity es
// el saldo plano de items legados sin lotes.
type Product struct {
	ID                  string
	Name                string
	SKU                 string
	Unit                string
	Quantity            decimal.Decimal // saldo plano legado (sin lotes)
	ManufacturingStages []string
	BOMPerPiece         []BOMLine
	MouldedMaterialID   string
	MachinedMaterialID  string
	AssembledMaterialID string
	Lots                []ProductLot
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AvailableQuantity cantidad disponible: suma del libro de lotes si no está
// vacío, si no el saldo plano legado.
func (p *Product) AvailableQuantity() decimal.Decimal {
	if len(p.Lots) == 0 {
		return p.Quantity
	}
	total := decimal.Zero
	for _, lot := range p.Lots {
		total = total.Add(lot.Quantity)
	}
	return total
}

// PoolMaterialID devuelve el enlace al pool intermedio de la etapa indicada.
func (p *Product) PoolMaterialID(stage string) string {
	switch stage {
	case StageMolding:
		return p.MouldedMaterialID
	case StageMachining:
		return p.MachinedMaterialID
	case StageAssembling:
		return p.AssembledMaterialID
	}
	return ""
}

// SetPoolMaterialID actualiza el enlace al pool intermedio de la etapa.
func (p *Product) SetPoolMaterialID(stage, itemID string) {
	switch stage {
	case StageMolding:
		p.MouldedMaterialID = itemID
	case StageMachining:
		p.MachinedMaterialID = itemID
	case StageAssembling:
		p.AssembledMaterialID = itemID
	}
}
