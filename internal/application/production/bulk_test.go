package production

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
)

// FinishStage: el prechequeo acumula la demanda de todos los lotes y bloquea
// la llamada completa listando cada faltante, sin aplicar escritura alguna.
func TestFinishStage_PrechequeoBloqueaConFaltantes(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "prod-a", Name: "A", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	// 150 disponibles; cada lote pide 100 → el segundo queda corto
	s.items["mat-x"] = &entity.InventoryItem{ID: "mat-x", Name: "Mat X", Quantity: di(150), Unit: "kg"}

	b1 := newTestBatch("f1", "LOTE-F1", product, 10, []entity.BatchMaterial{
		{MaterialID: "mat-x", Name: "Mat X", Quantity: di(100), Unit: "kg", Stage: entity.StageMolding},
	})
	b2 := newTestBatch("f2", "LOTE-F2", product, 10, []entity.BatchMaterial{
		{MaterialID: "mat-x", Name: "Mat X", Quantity: di(100), Unit: "kg", Stage: entity.StageMolding},
	})
	s.batches[b1.ID] = b1
	s.batches[b2.ID] = b2

	_, err := eng.FinishStage(context.Background(), testUser, entity.StageMolding, []StageSubmission{
		{BatchID: "f1", Accepted: di(10)},
		{BatchID: "f2", Accepted: di(10)},
	})

	var shortageErr *StockShortageError
	require.True(t, errors.As(err, &shortageErr), "esperaba StockShortageError, obtuve %v", err)
	require.Len(t, shortageErr.Shortages, 1)
	assert.Equal(t, "LOTE-F2", shortageErr.Shortages[0].BatchCode)
	assert.True(t, di(100).Equal(shortageErr.Shortages[0].Required))
	assert.True(t, di(50).Equal(shortageErr.Shortages[0].Available))

	// Ninguna escritura aplicada
	assert.True(t, di(150).Equal(s.items["mat-x"].Quantity))
	assert.False(t, b1.ProcessingStages[entity.StageMolding].Completed)
}

// FinishStage con stock suficiente aplica todos los lotes en secuencia.
func TestFinishStage_AplicaTodosLosLotes(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "prod-b", Name: "B", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	s.items["mat-y"] = &entity.InventoryItem{ID: "mat-y", Name: "Mat Y", Quantity: di(300), Unit: "kg"}

	b1 := newTestBatch("f3", "LOTE-F3", product, 10, []entity.BatchMaterial{
		{MaterialID: "mat-y", Name: "Mat Y", Quantity: di(100), Unit: "kg", Stage: entity.StageMolding},
	})
	b2 := newTestBatch("f4", "LOTE-F4", product, 10, []entity.BatchMaterial{
		{MaterialID: "mat-y", Name: "Mat Y", Quantity: di(100), Unit: "kg", Stage: entity.StageMolding},
	})
	s.batches[b1.ID] = b1
	s.batches[b2.ID] = b2

	outcomes, err := eng.FinishStage(context.Background(), testUser, entity.StageMolding, []StageSubmission{
		{BatchID: "f3", Accepted: di(10)},
		{BatchID: "f4", Accepted: di(10)},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
	}
	assert.True(t, di(100).Equal(s.items["mat-y"].Quantity))
	assert.True(t, di(20).Equal(product.AvailableQuantity()))
}

// FinishStage bloquea la llamada completa si un rechazo de Testing llega con
// todos los insumos exonerados (validación uniforme con SubmitStage).
func TestFinishStage_RechazoTodoExoneradoBloqueaLlamada(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{
		ID:                  "prod-c",
		Name:                "C",
		ManufacturingStages: []string{entity.StageAssembling, entity.StageTesting},
		BOMPerPiece: []entity.BOMLine{
			{RawMaterialID: "mat-z", Name: "Mat Z", Stage: entity.StageAssembling, QtyPerPiece: di(1), Unit: "und"},
		},
	}
	s.products[product.ID] = product
	b := newTestBatch("f5", "LOTE-F5", product, 10, nil)
	b.StageRecordFor(entity.StageAssembling).Completed = true
	s.batches[b.ID] = b

	_, err := eng.FinishStage(context.Background(), testUser, entity.StageTesting, []StageSubmission{
		{BatchID: "f5", Accepted: di(8), Rejected: di(2), ConfirmedGoodMaterials: []string{"mat-z"}},
	})
	assert.ErrorIs(t, err, domain.ErrNothingToRework)
	assert.False(t, b.ProcessingStages[entity.StageTesting].Completed)
}

// EndCycle no prechequea: el consumo se recorta al disponible y el lote que
// falla se salta sin frenar a los demás.
func TestEndCycle_SinPrechequeoYContinuaTrasError(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "prod-d", Name: "D", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	s.items["mat-w"] = &entity.InventoryItem{ID: "mat-w", Name: "Mat W", Quantity: di(50), Unit: "kg"}

	good := newTestBatch("f6", "LOTE-F6", product, 10, []entity.BatchMaterial{
		{MaterialID: "mat-w", Name: "Mat W", Quantity: di(100), Unit: "kg", Stage: entity.StageMolding},
	})
	s.batches[good.ID] = good

	outcomes := eng.EndCycle(context.Background(), testUser, entity.StageMolding, []StageSubmission{
		{BatchID: "no-existe", Accepted: di(5)},
		{BatchID: "f6", Accepted: di(10)},
	})
	require.Len(t, outcomes, 2)

	assert.ErrorIs(t, outcomes[0].Err, domain.ErrNotFound, "el lote inexistente se salta")
	assert.NoError(t, outcomes[1].Err, "el siguiente lote se aplica igual")

	// Consumo calculado 100 recortado a los 50 disponibles
	assert.True(t, s.items["mat-w"].Quantity.IsZero())
	assert.True(t, good.ProcessingStages[entity.StageMolding].Completed)
}
