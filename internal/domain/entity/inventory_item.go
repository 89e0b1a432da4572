package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem materia prima o item de pool intermedio.
// Los flags IsMoulded/IsMachined/IsAssembled distinguen los pools intermedios
// (unidades que completaron una etapa pero no la siguiente) de la materia prima.
type InventoryItem struct {
	ID            string
	Name          string
	Quantity      decimal.Decimal
	Threshold     decimal.Decimal
	Unit          string
	IsMoulded     bool
	IsMachined    bool
	IsAssembled   bool
	SourceBatchID string // lote que creó el item de pool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsIntermediatePool indica si el item pertenece a un pool intermedio.
func (i *InventoryItem) IsIntermediatePool() bool {
	return i.IsMoulded || i.IsMachined || i.IsAssembled
}

// BelowThreshold indica si el saldo está por debajo del umbral de reposición.
func (i *InventoryItem) BelowThreshold() bool {
	return i.Threshold.GreaterThan(decimal.Zero) && i.Quantity.LessThan(i.Threshold)
}

// PoolItemName nombre del item de pool intermedio para un producto y etapa
// ("Moulded X", "Machined X", "Assembled X").
func PoolItemName(stage, productName string) string {
	switch stage {
	case StageMolding:
		return "Moulded " + productName
	case StageMachining:
		return "Machined " + productName
	case StageAssembling:
		return "Assembled " + productName
	}
	return productName
}
