package production

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	domainprod "github.com/jhoicas/Produccion-api/internal/domain/production"
)

// reworkMaterials deriva los insumos de ensamble que el lote compensatorio
// debe reconsumir para la cantidad rechazada en Testing.
//
// La lista base sale del BOM del producto (filas de Assembling escaladas por
// pieza) o, si el producto no tiene BOM, de los materiales de Assembling ya
// expandidos en el lote (re-escalados por rechazadas / cantidad a fabricar).
// Los materiales marcados "confirmado bueno" por el operador se excluyen: no
// causaron el rechazo y no deben reconsumirse.
//
// Sin insumos de ensamble no hay nada que generar (nil, nil). Con insumos pero
// todos exonerados devuelve ErrNothingToRework: el rechazo quedaría sin causa
// asignada y eso es un error de captura, no un caso silencioso.
func reworkMaterials(
	batch *entity.Batch,
	product *entity.Product,
	rejected decimal.Decimal,
	confirmedGood []string,
) ([]entity.BatchMaterial, error) {
	good := make(map[string]bool, len(confirmedGood))
	for _, id := range confirmedGood {
		good[id] = true
	}

	var base []entity.BatchMaterial
	if product != nil && len(product.BOMPerPiece) > 0 {
		for _, line := range product.BOMPerPiece {
			if line.Stage != entity.StageAssembling {
				continue
			}
			base = append(base, entity.BatchMaterial{
				MaterialID: line.RawMaterialID,
				Name:       line.Name,
				Quantity:   line.QtyPerPiece.Mul(rejected),
				Unit:       line.Unit,
				Stage:      entity.StageAssembling,
			})
		}
	} else {
		for _, m := range batch.MaterialsForStage(entity.StageAssembling) {
			base = append(base, entity.BatchMaterial{
				MaterialID: m.MaterialID,
				Name:       m.Name,
				Quantity:   domainprod.DefaultConsumption(rejected, m.Quantity, batch.QuantityToBuild),
				Unit:       m.Unit,
				Stage:      entity.StageAssembling,
			})
		}
	}

	if len(base) == 0 {
		return nil, nil
	}

	var out []entity.BatchMaterial
	for _, m := range base {
		if !good[m.MaterialID] {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNothingToRework
	}
	return out, nil
}

// buildCompensatingBatch arma el lote que re-entra a Assembling por la cantidad
// rechazada. El registro de Assembling llega pre-sembrado con accepted igual a
// la cantidad rechazada; el motor bloquea ese valor al procesar la etapa.
func buildCompensatingBatch(
	parent *entity.Batch,
	materials []entity.BatchMaterial,
	rejected decimal.Decimal,
	userID string,
	now time.Time,
	seq int,
) *entity.Batch {
	child := &entity.Batch{
		ID:              uuid.New().String(),
		Code:            fmt.Sprintf("LOTE-%s-%04d", now.Format("20060102"), seq),
		ProductID:       parent.ProductID,
		ProductName:     parent.ProductName,
		QuantityToBuild: rejected,
		Materials:       materials,
		SelectedProcesses: []string{
			entity.StageAssembling,
			entity.StageTesting,
		},
		ProcessingStages: map[string]*entity.StageRecord{
			entity.StageAssembling: {
				Accepted:          rejected,
				Rejected:          decimal.Zero,
				ActualConsumption: decimal.Zero,
			},
			entity.StageTesting: {
				Accepted:          decimal.Zero,
				Rejected:          decimal.Zero,
				ActualConsumption: decimal.Zero,
			},
		},
		AutoCreatedFromTestingRejected: true,
		ParentBatchID:                  parent.ID,
		CreatedBy:                      userID,
		CreatedAt:                      now,
		UpdatedAt:                      now,
	}
	return child
}
