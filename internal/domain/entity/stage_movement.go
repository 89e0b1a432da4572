package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de producción.
const (
	MovementConsumption     = "CONSUMPTION"      // descuento de insumo en una etapa
	MovementPoolIn          = "POOL_IN"          // alta en pool intermedio
	MovementFinalStockIn    = "FINAL_STOCK_IN"   // alta en producto terminado
	MovementReworkSpawn     = "REWORK_SPAWN"     // creación de lote compensatorio
	MovementShortageFloored = "SHORTAGE_FLOORED" // consumo recortado por saldo insuficiente
)

// StageMovement registro de auditoría de un efecto de inventario producido por
// el avance de una etapa. Captura saldo anterior y nuevo para poder
// reconstruir el movimiento de inventario.
type StageMovement struct {
	ID           string
	BatchID      string
	BatchCode    string
	Stage        string
	MaterialID   string
	MaterialName string
	Kind         string
	Quantity     decimal.Decimal // magnitud del movimiento (positiva)
	OldQuantity  decimal.Decimal
	NewQuantity  decimal.Decimal
	Note         string
	CreatedAt    time.Time
	CreatedBy    string
}
