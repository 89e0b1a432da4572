package production

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	domainprod "github.com/jhoicas/Produccion-api/internal/domain/production"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

// applyStageConsumption descuenta del inventario los insumos de una etapa y
// registra un movimiento de auditoría por cada descuento. Devuelve el mapa de
// consumo real por material (lo efectivamente descontado).
//
// Por material: usa el consumo explícito si la entrega lo trae; si no, la ley
// por defecto aceptadas × (planificado / cantidad a fabricar). El descuento se
// recorta al saldo disponible (piso en cero) y el recorte queda auditado.
// Un material irresoluble no descuenta nada: se audita la condición y se sigue
// con los demás insumos.
func applyStageConsumption(
	batch *entity.Batch,
	stage string,
	accepted decimal.Decimal,
	explicit map[string]decimal.Decimal,
	itemRepo repository.InventoryItemRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StageMovementRepository,
	userID string,
	now time.Time,
) (map[string]decimal.Decimal, error) {
	consumptions := make(map[string]decimal.Decimal)

	for _, material := range batch.MaterialsForStage(stage) {
		amount, ok := explicit[material.MaterialID]
		if !ok {
			amount = domainprod.DefaultConsumption(accepted, material.Quantity, batch.QuantityToBuild)
		}
		if amount.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}

		src, err := resolveSourceForUpdate(itemRepo, productRepo, material.MaterialID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Corte duro para este material: sin fuente no hay descuento,
				// pero la condición queda en el libro para conciliación.
				consumptions[material.MaterialID] = decimal.Zero
				mov := newMovement(batch, stage, material.MaterialID, material.Name,
					entity.MovementShortageFloored, amount, decimal.Zero, decimal.Zero, userID, now)
				mov.Note = "insumo no encontrado en inventario"
				if err := movementRepo.Create(mov); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		oldQty := src.Available()
		deducted, err := deductFromSource(src, amount, itemRepo, productRepo, now)
		if err != nil {
			return nil, err
		}
		consumptions[material.MaterialID] = deducted

		mov := newMovement(batch, stage, material.MaterialID, src.Name(),
			entity.MovementConsumption, deducted, oldQty, src.Available(), userID, now)
		if deducted.LessThan(amount) {
			mov.Note = "consumo recortado por saldo insuficiente"
		}
		if err := movementRepo.Create(mov); err != nil {
			return nil, err
		}
	}

	return consumptions, nil
}

// deductFromSource aplica el descuento según la clase de fuente y persiste.
// raw: resta directa del campo de cantidad. final con lotes: FIFO por fecha de
// creación, los lotes drenados se eliminan. final sin lotes (legado): resta
// directa del saldo plano.
func deductFromSource(
	src *ResolvedSource,
	amount decimal.Decimal,
	itemRepo repository.InventoryItemRepository,
	productRepo repository.ProductRepository,
	now time.Time,
) (decimal.Decimal, error) {
	switch src.Kind {
	case SourceRaw:
		newQty, deducted := domainprod.Deduct(src.Item.Quantity, amount)
		src.Item.Quantity = newQty
		src.Item.UpdatedAt = now
		if err := itemRepo.Update(src.Item); err != nil {
			return decimal.Zero, err
		}
		return deducted, nil

	case SourceFinal:
		product := src.Product
		var deducted decimal.Decimal
		if len(product.Lots) == 0 {
			var newQty decimal.Decimal
			newQty, deducted = domainprod.Deduct(product.Quantity, amount)
			product.Quantity = newQty
		} else {
			deducted = consumeFromLots(product, amount)
		}
		product.UpdatedAt = now
		if err := productRepo.Update(product); err != nil {
			return decimal.Zero, err
		}
		return deducted, nil
	}
	return decimal.Zero, domain.ErrInvalidInput
}

// consumeFromLots consume FIFO del libro de lotes (los más antiguos primero) y
// elimina los lotes que quedan en cero. Devuelve lo efectivamente consumido.
func consumeFromLots(product *entity.Product, amount decimal.Decimal) decimal.Decimal {
	sort.SliceStable(product.Lots, func(i, j int) bool {
		return product.Lots[i].CreatedAt.Before(product.Lots[j].CreatedAt)
	})

	remaining := amount
	deducted := decimal.Zero
	kept := product.Lots[:0]
	for _, lot := range product.Lots {
		if remaining.GreaterThan(decimal.Zero) {
			newQty, taken := domainprod.Deduct(lot.Quantity, remaining)
			lot.Quantity = newQty
			remaining = remaining.Sub(taken)
			deducted = deducted.Add(taken)
		}
		if lot.Quantity.GreaterThan(decimal.Zero) {
			kept = append(kept, lot)
		}
	}
	product.Lots = kept
	return deducted
}

func newMovement(
	batch *entity.Batch,
	stage, materialID, materialName, kind string,
	quantity, oldQty, newQty decimal.Decimal,
	userID string,
	now time.Time,
) *entity.StageMovement {
	return &entity.StageMovement{
		ID:           uuid.New().String(),
		BatchID:      batch.ID,
		BatchCode:    batch.Code,
		Stage:        stage,
		MaterialID:   materialID,
		MaterialName: materialName,
		Kind:         kind,
		Quantity:     quantity,
		OldQuantity:  oldQty,
		NewQuantity:  newQty,
		CreatedAt:    now,
		CreatedBy:    userID,
	}
}
