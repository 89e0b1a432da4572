package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateBatchRequest body para POST /api/batches (planificar una corrida).
// SelectedProcesses es opcional: vacío usa las etapas del producto.
type CreateBatchRequest struct {
	ProductID         string          `json:"product_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	SelectedProcesses []string        `json:"selected_processes,omitempty"`
}

// BatchMaterialDTO material del BOM expandido del lote.
type BatchMaterialDTO struct {
	MaterialID string          `json:"material_id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
	Stage      string          `json:"stage"`
}

// StageRecordDTO registro de una etapa del lote.
type StageRecordDTO struct {
	Accepted             decimal.Decimal            `json:"accepted"`
	Rejected             decimal.Decimal            `json:"rejected"`
	ActualConsumption    decimal.Decimal            `json:"actual_consumption"`
	Completed            bool                       `json:"completed"`
	StartedAt            *time.Time                 `json:"started_at,omitempty"`
	FinishedAt           *time.Time                 `json:"finished_at,omitempty"`
	MaterialConsumptions map[string]decimal.Decimal `json:"material_consumptions,omitempty"`
}

// BatchResponse lote de producción.
type BatchResponse struct {
	ID                             string                    `json:"id"`
	Code                           string                    `json:"code"`
	ProductID                      string                    `json:"product_id"`
	ProductName                    string                    `json:"product_name"`
	QuantityToBuild                decimal.Decimal           `json:"quantity_to_build"`
	Materials                      []BatchMaterialDTO        `json:"materials"`
	SelectedProcesses              []string                  `json:"selected_processes"`
	ProcessingStages               map[string]StageRecordDTO `json:"processing_stages"`
	Status                         string                    `json:"status"`
	CurrentStage                   string                    `json:"current_stage,omitempty"`
	AutoCreatedFromTestingRejected bool                      `json:"auto_created_from_testing_rejected"`
	ParentBatchID                  string                    `json:"parent_batch_id,omitempty"`
	CreatedAt                      time.Time                 `json:"created_at"`
	UpdatedAt                      time.Time                 `json:"updated_at"`
}
