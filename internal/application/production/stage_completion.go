package production

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	domainprod "github.com/jhoicas/Produccion-api/internal/domain/production"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
	"github.com/jhoicas/Produccion-api/pkg/logger"
)

// Engine motor de cierre de etapas: valida la entrega de una etapa, aplica
// aceptadas/rechazadas, dispara el consumo de insumos, rutea lo aceptado al
// destino correcto (pool intermedio o producto terminado) y crea el lote
// compensatorio cuando Testing rechaza unidades.
//
// Todas las escrituras de una entrega se confirman en una sola transacción con
// bloqueo de fila sobre el lote y cada item de inventario tocado.
type Engine struct {
	txRunner    TxRunner
	batchRepo   repository.BatchRepository
	productRepo repository.ProductRepository
	itemRepo    repository.InventoryItemRepository
	feed        *StageFeed
	log         *logger.Logger
}

// NewEngine construye el motor. feed puede ser nil si no hay vistas suscritas.
func NewEngine(
	txRunner TxRunner,
	batchRepo repository.BatchRepository,
	productRepo repository.ProductRepository,
	itemRepo repository.InventoryItemRepository,
	feed *StageFeed,
	log *logger.Logger,
) *Engine {
	return &Engine{
		txRunner:    txRunner,
		batchRepo:   batchRepo,
		productRepo: productRepo,
		itemRepo:    itemRepo,
		feed:        feed,
		log:         log,
	}
}

// StageSubmission entrega de una etapa para un lote.
// Rejected solo aplica en Testing. MaterialConsumptions trae consumos reales
// explícitos por material; los ausentes usan la ley por defecto.
// ConfirmedGoodMaterials marca insumos de ensamble exonerados por el operador
// (no se reconsumen en el lote compensatorio).
type StageSubmission struct {
	BatchID                string
	Stage                  string
	Accepted               decimal.Decimal
	Rejected               decimal.Decimal
	MaterialConsumptions   map[string]decimal.Decimal
	ConfirmedGoodMaterials []string
}

// StageResult resultado de una entrega procesada.
type StageResult struct {
	Batch             *entity.Batch
	Flow              domainprod.Flow
	Status            string
	RoutedTo          string // "final_stock", "pool:<nombre>" o "" si no hubo ruteo
	Consumptions      map[string]decimal.Decimal
	CompensatingBatch *entity.Batch // lote creado por rechazo en Testing, si aplica
}

// SubmitStage procesa la entrega de una etapa. La transición a completed es
// única y terminal: reenviar una etapa ya finalizada devuelve
// ErrStageAlreadyFinalized sin repetir efectos de inventario.
func (e *Engine) SubmitStage(ctx context.Context, userID string, in StageSubmission) (*StageResult, error) {
	if !entity.IsValidStage(in.Stage) {
		return nil, domain.ErrInvalidInput
	}
	if in.Accepted.LessThan(decimal.Zero) || in.Rejected.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	// El rechazo solo existe en Testing
	if in.Stage != entity.StageTesting && in.Rejected.GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	// Completed es terminal: una entrega sin unidades (aceptadas + rechazadas
	// en cero) finalizaría la etapa sin salida y la dejaría bloqueada.
	if !in.Accepted.Add(in.Rejected).GreaterThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}

	var result *StageResult
	err := e.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		productRepo repository.ProductRepository,
		itemRepo repository.InventoryItemRepository,
		movementRepo repository.StageMovementRepository,
	) error {
		res, err := e.submitInTx(batchRepo, productRepo, itemRepo, movementRepo, userID, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publishAfterSubmit(in.Stage, result)

	e.log.Info().
		Str("batch", result.Batch.Code).
		Str("stage", in.Stage).
		Str("accepted", in.Accepted.String()).
		Str("rejected", in.Rejected.String()).
		Str("routed_to", result.RoutedTo).
		Msg("etapa finalizada")
	return result, nil
}

// submitInTx lógica de la entrega dentro de la transacción.
func (e *Engine) submitInTx(
	batchRepo repository.BatchRepository,
	productRepo repository.ProductRepository,
	itemRepo repository.InventoryItemRepository,
	movementRepo repository.StageMovementRepository,
	userID string,
	in StageSubmission,
) (*StageResult, error) {
	now := time.Now()

	batch, err := batchRepo.GetByIDForUpdate(in.BatchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrNotFound
	}

	rec := batch.StageRecordFor(in.Stage)
	if rec.Completed {
		return nil, domain.ErrStageAlreadyFinalized
	}

	// El producto puede no existir ya (lote huérfano legado); el flujo cae a
	// los niveles siguientes y el ruteo a producto terminado se omite.
	product, err := productRepo.GetByIDForUpdate(batch.ProductID)
	if err != nil {
		return nil, err
	}
	flow := domainprod.ResolveFlow(product, batch)
	if !flow.Contains(in.Stage) {
		return nil, domain.ErrStageNotInFlow
	}

	accepted := e.lockedAccepted(batch, flow, in.Stage, rec, in.Accepted)

	// Validación de reproceso antes de cualquier efecto: rechazo en Testing con
	// todos los insumos de ensamble exonerados no tiene nada que reprocesar.
	var rework []entity.BatchMaterial
	if in.Stage == entity.StageTesting && in.Rejected.GreaterThan(decimal.Zero) {
		var reworkErr error
		rework, reworkErr = reworkMaterials(batch, product, in.Rejected, in.ConfirmedGoodMaterials)
		if reworkErr != nil {
			return nil, reworkErr
		}
	}

	result := &StageResult{Batch: batch, Flow: flow}

	// Consumo de insumos: todas las etapas salvo Testing, que consume el pool
	// ensamblado vía su propio total aceptadas+rechazadas.
	if in.Stage != entity.StageTesting {
		consumptions, err := applyStageConsumption(
			batch, in.Stage, accepted, in.MaterialConsumptions,
			itemRepo, productRepo, movementRepo, userID, now,
		)
		if err != nil {
			return nil, err
		}
		result.Consumptions = consumptions
	}

	// Ruteo de lo aceptado al destino que corresponde al flujo.
	if accepted.GreaterThan(decimal.Zero) {
		routedTo, err := e.routeAccepted(batch, product, flow, in.Stage, accepted, itemRepo, productRepo, movementRepo, userID, now)
		if err != nil {
			return nil, err
		}
		result.RoutedTo = routedTo
	}

	// Cierre del registro de etapa: transición única a completed.
	rec.Accepted = accepted
	rec.Rejected = in.Rejected
	if in.Stage == entity.StageTesting {
		rec.ActualConsumption = accepted.Add(in.Rejected)
		rec.MaterialConsumptions = nil
	} else {
		rec.MaterialConsumptions = result.Consumptions
		total := decimal.Zero
		for _, c := range result.Consumptions {
			total = total.Add(c)
		}
		rec.ActualConsumption = total
	}
	if rec.StartedAt == nil {
		rec.StartedAt = &now
	}
	rec.Completed = true
	rec.FinishedAt = &now
	batch.UpdatedAt = now
	if err := batchRepo.Update(batch); err != nil {
		return nil, err
	}

	// Lote compensatorio: rechazo en Testing con insumos por reprocesar.
	if len(rework) > 0 {
		seq, err := batchRepo.NextCodeSeq(now.Format("20060102"))
		if err != nil {
			return nil, err
		}
		child := buildCompensatingBatch(batch, rework, in.Rejected, userID, now, seq)
		if err := batchRepo.Create(child); err != nil {
			return nil, err
		}
		mov := newMovement(batch, in.Stage, "", batch.ProductName,
			entity.MovementReworkSpawn, in.Rejected, decimal.Zero, decimal.Zero, userID, now)
		mov.Note = "lote compensatorio " + child.Code + " (" + child.ID + ")"
		if err := movementRepo.Create(mov); err != nil {
			return nil, err
		}
		result.CompensatingBatch = child
	}

	result.Status = batch.Status(flow.Stages)
	return result, nil
}

// lockedAccepted aplica el bloqueo de cantidad en Assembling: los lotes
// compensatorios (y los Assembling-únicos cuya cantidad aceptada ya es igual a
// la cantidad a fabricar) conservan la relación 1:1 entre tamaño del lote y
// salida esperada, ignorando el valor enviado.
func (e *Engine) lockedAccepted(batch *entity.Batch, flow domainprod.Flow, stage string, rec *entity.StageRecord, submitted decimal.Decimal) decimal.Decimal {
	if stage != entity.StageAssembling {
		return submitted
	}
	if batch.AutoCreatedFromTestingRejected {
		return batch.QuantityToBuild
	}
	if flow.IsSingle(entity.StageAssembling) &&
		rec.Accepted.GreaterThan(decimal.Zero) &&
		rec.Accepted.Equal(batch.QuantityToBuild) {
		return rec.Accepted
	}
	return submitted
}

// routeAccepted decide el destino de lo aceptado según la forma del flujo:
//   - flujo de una sola etapa: directo a producto terminado, sin pools;
//   - Molding: pool "Moulded";
//   - Machining: producto terminado si el flujo es Molding+Machining, si no pool "Machined";
//   - Assembling: siempre pool "Assembled" (aunque siga Testing);
//   - Testing: producto terminado cuando es la última etapa del flujo.
func (e *Engine) routeAccepted(
	batch *entity.Batch,
	product *entity.Product,
	flow domainprod.Flow,
	stage string,
	accepted decimal.Decimal,
	itemRepo repository.InventoryItemRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StageMovementRepository,
	userID string,
	now time.Time,
) (string, error) {
	toFinal := false
	switch {
	case flow.IsSingle(stage):
		toFinal = true
	case stage == entity.StageMachining && flow.Shape == domainprod.FlowMoldMachineOnly:
		toFinal = true
	case stage == entity.StageTesting && flow.IsLast(entity.StageTesting):
		toFinal = true
	case stage == entity.StageTesting:
		// Testing intermedio: sin destino
		return "", nil
	}

	if toFinal {
		if product == nil {
			e.log.Warn().Str("batch", batch.Code).Msg("lote sin producto: se omite alta en producto terminado")
			return "", nil
		}
		return e.routeToFinalStock(batch, product, stage, accepted, productRepo, movementRepo, userID, now)
	}
	return e.routeToPool(batch, product, stage, accepted, itemRepo, productRepo, movementRepo, userID, now)
}

// routeToFinalStock agrega un lote al libro del producto terminado.
func (e *Engine) routeToFinalStock(
	batch *entity.Batch,
	product *entity.Product,
	stage string,
	accepted decimal.Decimal,
	productRepo repository.ProductRepository,
	movementRepo repository.StageMovementRepository,
	userID string,
	now time.Time,
) (string, error) {
	oldQty := product.AvailableQuantity()
	product.Lots = append(product.Lots, entity.ProductLot{
		BatchID:   batch.ID,
		Quantity:  accepted,
		CreatedAt: now,
	})
	product.UpdatedAt = now
	if err := productRepo.Update(product); err != nil {
		return "", err
	}
	mov := newMovement(batch, stage, product.ID, product.Name,
		entity.MovementFinalStockIn, accepted, oldQty, product.AvailableQuantity(), userID, now)
	if err := movementRepo.Create(mov); err != nil {
		return "", err
	}
	return "final_stock", nil
}

// routeToPool crea o incrementa el item de pool intermedio de la etapa
// ("Moulded/Machined/Assembled {producto}") y actualiza el enlace del producto
// cuando el pool se crea por primera vez.
func (e *Engine) routeToPool(
	batch *entity.Batch,
	product *entity.Product,
	stage string,
	accepted decimal.Decimal,
	itemRepo repository.InventoryItemRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StageMovementRepository,
	userID string,
	now time.Time,
) (string, error) {
	item, created, err := e.findOrCreatePool(batch, product, stage, itemRepo, now)
	if err != nil {
		return "", err
	}

	oldQty := item.Quantity
	item.Quantity = item.Quantity.Add(accepted)
	item.UpdatedAt = now
	if created {
		if err := itemRepo.Create(item); err != nil {
			return "", err
		}
		if product != nil {
			product.SetPoolMaterialID(stage, item.ID)
			product.UpdatedAt = now
			if err := productRepo.Update(product); err != nil {
				return "", err
			}
		}
	} else {
		if err := itemRepo.Update(item); err != nil {
			return "", err
		}
	}

	mov := newMovement(batch, stage, item.ID, item.Name,
		entity.MovementPoolIn, accepted, oldQty, item.Quantity, userID, now)
	if err := movementRepo.Create(mov); err != nil {
		return "", err
	}
	return "pool:" + item.Name, nil
}

// findOrCreatePool localiza el pool intermedio: por el enlace del producto, por
// nombre (items legados sin enlace) o lo crea nuevo con los flags de la etapa.
func (e *Engine) findOrCreatePool(
	batch *entity.Batch,
	product *entity.Product,
	stage string,
	itemRepo repository.InventoryItemRepository,
	now time.Time,
) (item *entity.InventoryItem, created bool, err error) {
	if product != nil {
		if linkID := product.PoolMaterialID(stage); linkID != "" {
			item, err = itemRepo.GetByIDForUpdate(linkID)
			if err != nil {
				return nil, false, err
			}
			if item != nil {
				return item, false, nil
			}
		}
	}

	name := entity.PoolItemName(stage, batch.ProductName)
	item, err = itemRepo.GetByName(name)
	if err != nil {
		return nil, false, err
	}
	if item != nil {
		return item, false, nil
	}

	item = &entity.InventoryItem{
		ID:            uuid.New().String(),
		Name:          name,
		Quantity:      decimal.Zero,
		Unit:          "und",
		IsMoulded:     stage == entity.StageMolding,
		IsMachined:    stage == entity.StageMachining,
		IsAssembled:   stage == entity.StageAssembling,
		SourceBatchID: batch.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return item, true, nil
}

// publishAfterSubmit notifica a las colas de trabajo suscritas: el lote salió
// de la etapa entregada y, si el flujo continúa, entró a la siguiente.
func (e *Engine) publishAfterSubmit(stage string, result *StageResult) {
	if e.feed == nil || result == nil {
		return
	}
	e.feed.Publish(StageEvent{
		Stage:     stage,
		BatchID:   result.Batch.ID,
		BatchCode: result.Batch.Code,
		Type:      EventBatchLeft,
		At:        time.Now(),
	})
	if next, ok := result.Batch.CurrentStage(result.Flow.Stages); ok {
		e.feed.Publish(StageEvent{
			Stage:     next,
			BatchID:   result.Batch.ID,
			BatchCode: result.Batch.Code,
			Type:      EventBatchEntered,
			At:        time.Now(),
		})
	}
	if child := result.CompensatingBatch; child != nil {
		e.feed.Publish(StageEvent{
			Stage:     entity.StageAssembling,
			BatchID:   child.ID,
			BatchCode: child.Code,
			Type:      EventBatchEntered,
			At:        time.Now(),
		})
	}
}
