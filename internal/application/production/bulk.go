package production

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	domainprod "github.com/jhoicas/Produccion-api/internal/domain/production"
)

// StockShortage faltante de stock detectado por el prechequeo de FinishStage.
type StockShortage struct {
	BatchID      string          `json:"batch_id"`
	BatchCode    string          `json:"batch_code"`
	MaterialID   string          `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
}

// StockShortageError error de validación con todos los faltantes encontrados
// antes de aplicar escritura alguna.
type StockShortageError struct {
	Shortages []StockShortage
}

// Error lista los faltantes por lote y material.
func (e *StockShortageError) Error() string {
	var b strings.Builder
	b.WriteString("stock insuficiente:")
	for _, s := range e.Shortages {
		fmt.Fprintf(&b, " [%s] %s requiere %s, disponible %s;",
			s.BatchCode, s.MaterialName, s.Required.String(), s.Available.String())
	}
	return b.String()
}

// BatchOutcome resultado por lote de una operación masiva. Las operaciones
// masivas no son transaccionales entre lotes: un fallo posterior no revierte
// los lotes ya aplicados.
type BatchOutcome struct {
	BatchID   string
	BatchCode string
	Result    *StageResult
	Err       error
}

// FinishStage variante masiva de SubmitStage para la cola de una etapa.
// Antes de escribir nada hace un prechequeo de suficiencia de stock sobre
// todos los lotes seleccionados (la demanda se acumula material por material)
// y valida los rechazos de Testing; cualquier faltante bloquea la llamada
// completa. Superado el prechequeo, aplica lote por lote en secuencia: el lote
// que falla se salta y el resto continúa.
func (e *Engine) FinishStage(ctx context.Context, userID, stage string, subs []StageSubmission) ([]BatchOutcome, error) {
	if err := e.precheck(stage, subs); err != nil {
		return nil, err
	}
	return e.applyAll(ctx, userID, stage, subs), nil
}

// EndCycle variante masiva sin prechequeo de stock: el consumo se recorta al
// saldo disponible igual que en SubmitStage.
func (e *Engine) EndCycle(ctx context.Context, userID, stage string, subs []StageSubmission) []BatchOutcome {
	return e.applyAll(ctx, userID, stage, subs)
}

func (e *Engine) applyAll(ctx context.Context, userID, stage string, subs []StageSubmission) []BatchOutcome {
	outcomes := make([]BatchOutcome, 0, len(subs))
	for _, sub := range subs {
		sub.Stage = stage
		outcome := BatchOutcome{BatchID: sub.BatchID}
		result, err := e.SubmitStage(ctx, userID, sub)
		if err != nil {
			outcome.Err = err
			e.log.Error().Err(err).Str("batch_id", sub.BatchID).Str("stage", stage).Msg("lote omitido en operación masiva")
		} else {
			outcome.Result = result
			outcome.BatchCode = result.Batch.Code
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// precheck valida sin escribir: suficiencia de stock acumulada entre todos los
// lotes seleccionados y rechazos de Testing con insumos por reprocesar.
func (e *Engine) precheck(stage string, subs []StageSubmission) error {
	if !entity.IsValidStage(stage) {
		return domain.ErrInvalidInput
	}

	var shortages []StockShortage
	demanded := make(map[string]decimal.Decimal)  // demanda acumulada por material
	available := make(map[string]decimal.Decimal) // saldo inicial por material

	for _, sub := range subs {
		batch, err := e.batchRepo.GetByID(sub.BatchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return domain.ErrNotFound
		}
		rec := batch.StageRecordFor(stage)
		if rec.Completed {
			return domain.ErrStageAlreadyFinalized
		}
		product, err := e.productRepo.GetByID(batch.ProductID)
		if err != nil {
			return err
		}

		if stage == entity.StageTesting && sub.Rejected.GreaterThan(decimal.Zero) {
			if _, err := reworkMaterials(batch, product, sub.Rejected, sub.ConfirmedGoodMaterials); err != nil {
				return err
			}
			continue // Testing no consume insumos del BOM
		}
		if stage == entity.StageTesting {
			continue
		}

		for _, material := range batch.MaterialsForStage(stage) {
			amount, ok := sub.MaterialConsumptions[material.MaterialID]
			if !ok {
				amount = domainprod.DefaultConsumption(sub.Accepted, material.Quantity, batch.QuantityToBuild)
			}
			if amount.LessThanOrEqual(decimal.Zero) {
				continue
			}

			if _, seen := available[material.MaterialID]; !seen {
				src, err := ResolveSource(e.itemRepo, e.productRepo, material.MaterialID)
				if err != nil {
					// Material irresoluble: disponible cero para el prechequeo
					available[material.MaterialID] = decimal.Zero
				} else {
					available[material.MaterialID] = src.Available()
				}
			}

			already := demanded[material.MaterialID]
			remaining := available[material.MaterialID].Sub(already)
			if amount.GreaterThan(remaining) {
				if remaining.LessThan(decimal.Zero) {
					remaining = decimal.Zero
				}
				shortages = append(shortages, StockShortage{
					BatchID:      batch.ID,
					BatchCode:    batch.Code,
					MaterialID:   material.MaterialID,
					MaterialName: material.Name,
					Required:     amount,
					Available:    remaining,
				})
			}
			demanded[material.MaterialID] = already.Add(amount)
		}
	}

	if len(shortages) > 0 {
		return &StockShortageError{Shortages: shortages}
	}
	return nil
}
