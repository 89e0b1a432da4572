package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubmitStageRequest body para POST /api/production/batches/:id/stages/:stage.
type SubmitStageRequest struct {
	Accepted decimal.Decimal `json:"accepted"`
	Rejected decimal.Decimal `json:"rejected,omitempty"`
	// MaterialConsumptions consumos reales explícitos por material; los
	// ausentes usan la ley por defecto (aceptadas × tasa por pieza).
	MaterialConsumptions map[string]decimal.Decimal `json:"material_consumptions,omitempty"`
	// ConfirmedGoodMaterials insumos de ensamble marcados "confirmado bueno"
	// (solo Testing): se excluyen del lote compensatorio.
	ConfirmedGoodMaterials []string `json:"confirmed_good_materials,omitempty"`
}

// BulkStageItem entrega de un lote dentro de una operación masiva.
type BulkStageItem struct {
	BatchID string `json:"batch_id"`
	SubmitStageRequest
}

// BulkStageRequest body para finish / end-cycle de una etapa.
type BulkStageRequest struct {
	Batches []BulkStageItem `json:"batches"`
}

// StageResultResponse resultado de una entrega de etapa.
type StageResultResponse struct {
	BatchID             string                     `json:"batch_id"`
	BatchCode           string                     `json:"batch_code"`
	Status              string                     `json:"status"`
	RoutedTo            string                     `json:"routed_to,omitempty"`
	Consumptions        map[string]decimal.Decimal `json:"consumptions,omitempty"`
	CompensatingBatchID string                     `json:"compensating_batch_id,omitempty"`
}

// BulkOutcomeResponse resultado por lote de una operación masiva.
type BulkOutcomeResponse struct {
	BatchID string               `json:"batch_id"`
	Error   string               `json:"error,omitempty"`
	Result  *StageResultResponse `json:"result,omitempty"`
}

// StageMovementResponse entrada del libro de movimientos de producción.
type StageMovementResponse struct {
	ID           string          `json:"id"`
	BatchID      string          `json:"batch_id"`
	BatchCode    string          `json:"batch_code"`
	Stage        string          `json:"stage"`
	MaterialID   string          `json:"material_id,omitempty"`
	MaterialName string          `json:"material_name"`
	Kind         string          `json:"kind"`
	Quantity     decimal.Decimal `json:"quantity"`
	OldQuantity  decimal.Decimal `json:"old_quantity"`
	NewQuantity  decimal.Decimal `json:"new_quantity"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CreatedBy    string          `json:"created_by"`
}
