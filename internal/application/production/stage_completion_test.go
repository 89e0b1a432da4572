package production

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	domainprod "github.com/jhoicas/Produccion-api/internal/domain/production"
)

const testUser = "operario-1"

// Escenario 1: producto de una sola etapa (Molding). Lo aceptado va directo a
// producto terminado; no se crea pool "Moulded".
func TestSubmitStage_UnaSolaEtapaRuteaAProductoTerminado(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{
		ID:                  "prod-widget",
		Name:                "Widget",
		ManufacturingStages: []string{entity.StageMolding},
	}
	s.products[product.ID] = product
	batch := newTestBatch("b1", "LOTE-0001", product, 100, nil)
	s.batches[batch.ID] = batch

	res, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{
		BatchID:  "b1",
		Stage:    entity.StageMolding,
		Accepted: di(90),
	})
	require.NoError(t, err)

	assert.Equal(t, "final_stock", res.RoutedTo)
	assert.True(t, di(90).Equal(product.AvailableQuantity()), "producto terminado debe quedar en 90")
	require.Len(t, product.Lots, 1)
	assert.Equal(t, "b1", product.Lots[0].BatchID)

	// Sin pool intermedio
	pool, _ := (&memItemRepo{s}).GetByName("Moulded Widget")
	assert.Nil(t, pool, "no debe crearse pool Moulded para flujo de una etapa")

	assert.Equal(t, entity.BatchStatusCompleted, res.Status)
}

// Escenario 2: pipeline completo Molding→Machining→Assembling→Testing.
func TestSubmitStage_PipelineCompleto(t *testing.T) {
	eng, s := newTestEngine(nil)
	ctx := context.Background()

	product := &entity.Product{
		ID:   "prod-x",
		Name: "X",
		ManufacturingStages: []string{
			entity.StageMolding, entity.StageMachining, entity.StageAssembling, entity.StageTesting,
		},
		BOMPerPiece: []entity.BOMLine{
			{RawMaterialID: "mat-resina", Name: "Resina", Stage: entity.StageMolding, QtyPerPiece: di(2), Unit: "kg"},
			{RawMaterialID: "mat-tornillo", Name: "Tornillo", Stage: entity.StageAssembling, QtyPerPiece: di(4), Unit: "und"},
		},
	}
	s.products[product.ID] = product
	s.items["mat-resina"] = &entity.InventoryItem{ID: "mat-resina", Name: "Resina", Quantity: di(500), Unit: "kg"}
	s.items["mat-tornillo"] = &entity.InventoryItem{ID: "mat-tornillo", Name: "Tornillo", Quantity: di(1000), Unit: "und"}

	batch := newTestBatch("b2", "LOTE-0002", product, 50, []entity.BatchMaterial{
		{MaterialID: "mat-resina", Name: "Resina", Quantity: di(100), Unit: "kg", Stage: entity.StageMolding},
		{MaterialID: "mat-tornillo", Name: "Tornillo", Quantity: di(200), Unit: "und", Stage: entity.StageAssembling},
	})
	s.batches[batch.ID] = batch

	// Molding: accepted=50 → pool Moulded X += 50
	res, err := eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b2", Stage: entity.StageMolding, Accepted: di(50)})
	require.NoError(t, err)
	assert.Equal(t, "pool:Moulded X", res.RoutedTo)
	moulded, _ := (&memItemRepo{s}).GetByName("Moulded X")
	require.NotNil(t, moulded)
	assert.True(t, di(50).Equal(moulded.Quantity))
	assert.Equal(t, moulded.ID, product.MouldedMaterialID, "el producto debe enlazar el pool creado")
	// Consumo por defecto: 50 × (100/50) = 100 kg de resina
	assert.True(t, di(400).Equal(s.items["mat-resina"].Quantity))

	// Machining: accepted=48 → pool Machined X (Testing todavía sigue)
	res, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b2", Stage: entity.StageMachining, Accepted: di(48)})
	require.NoError(t, err)
	assert.Equal(t, "pool:Machined X", res.RoutedTo)

	// Assembling: accepted=45 → pool Assembled X, tornillos 45×4=180
	res, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b2", Stage: entity.StageAssembling, Accepted: di(45)})
	require.NoError(t, err)
	assert.Equal(t, "pool:Assembled X", res.RoutedTo)
	assert.True(t, di(820).Equal(s.items["mat-tornillo"].Quantity))

	// Testing: accepted=40, rejected=5 → producto terminado += 40 y lote compensatorio de 5
	res, err = eng.SubmitStage(ctx, testUser, StageSubmission{
		BatchID:  "b2",
		Stage:    entity.StageTesting,
		Accepted: di(40),
		Rejected: di(5),
	})
	require.NoError(t, err)
	assert.Equal(t, "final_stock", res.RoutedTo)
	assert.True(t, di(40).Equal(product.AvailableQuantity()))

	child := res.CompensatingBatch
	require.NotNil(t, child, "rechazo con insumos sin exonerar debe crear lote compensatorio")
	assert.True(t, di(5).Equal(child.QuantityToBuild))
	assert.Equal(t, []string{entity.StageAssembling, entity.StageTesting}, child.SelectedProcesses)
	assert.True(t, child.AutoCreatedFromTestingRejected)
	assert.Equal(t, "b2", child.ParentBatchID)
	// Assembling pre-sembrado con accepted = rechazadas
	require.NotNil(t, child.ProcessingStages[entity.StageAssembling])
	assert.True(t, di(5).Equal(child.ProcessingStages[entity.StageAssembling].Accepted))
	assert.False(t, child.ProcessingStages[entity.StageAssembling].Completed)
	// Insumos escalados por pieza: 4 tornillos × 5 rechazadas = 20
	require.Len(t, child.Materials, 1)
	assert.True(t, di(20).Equal(child.Materials[0].Quantity))

	// Testing guarda actualConsumption = accepted + rejected
	rec := batch.ProcessingStages[entity.StageTesting]
	assert.True(t, di(45).Equal(rec.ActualConsumption))
	assert.Nil(t, rec.MaterialConsumptions)
}

// Escenario 3: producto Molding+Machining. Machining despacha directo a
// producto terminado, sin pool "Machined".
func TestSubmitStage_MoldingMachiningDespachaDirecto(t *testing.T) {
	eng, s := newTestEngine(nil)
	ctx := context.Background()

	product := &entity.Product{
		ID:                  "prod-y",
		Name:                "Y",
		ManufacturingStages: []string{entity.StageMolding, entity.StageMachining},
	}
	s.products[product.ID] = product
	batch := newTestBatch("b3", "LOTE-0003", product, 20, nil)
	s.batches[batch.ID] = batch

	res, err := eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b3", Stage: entity.StageMolding, Accepted: di(20)})
	require.NoError(t, err)
	assert.Equal(t, "pool:Moulded Y", res.RoutedTo, "Molding sí pasa por pool: Machining todavía sigue")

	res, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b3", Stage: entity.StageMachining, Accepted: di(18)})
	require.NoError(t, err)
	assert.Equal(t, "final_stock", res.RoutedTo)
	assert.True(t, di(18).Equal(product.AvailableQuantity()))

	machined, _ := (&memItemRepo{s}).GetByName("Machined Y")
	assert.Nil(t, machined, "no debe existir pool Machined en flujo Molding+Machining")
}

// Escenario 4: ley de consumo por defecto y piso en cero.
func TestSubmitStage_ConsumoPorDefectoYPisoEnCero(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "prod-z", Name: "Z", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	// Solo 45 disponibles aunque el consumo calculado sea 60
	s.items["mat-a"] = &entity.InventoryItem{ID: "mat-a", Name: "Mat A", Quantity: di(45), Unit: "kg"}

	batch := newTestBatch("b4", "LOTE-0004", product, 100, []entity.BatchMaterial{
		{MaterialID: "mat-a", Name: "Mat A", Quantity: di(200), Unit: "kg", Stage: entity.StageMolding},
	})
	s.batches[batch.ID] = batch

	res, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{
		BatchID:  "b4",
		Stage:    entity.StageMolding,
		Accepted: di(30), // 30 × (200/100) = 60 > 45 disponibles
	})
	require.NoError(t, err)

	assert.True(t, s.items["mat-a"].Quantity.IsZero(), "el saldo queda en cero, nunca negativo")
	assert.True(t, di(45).Equal(res.Consumptions["mat-a"]), "se consume solo lo disponible")

	// El recorte queda auditado
	movs, _ := (&memMovementRepo{s}).ListByBatch("b4", 0, 0)
	var consumo *entity.StageMovement
	for _, m := range movs {
		if m.Kind == entity.MovementConsumption {
			consumo = m
		}
	}
	require.NotNil(t, consumo)
	assert.Equal(t, "consumo recortado por saldo insuficiente", consumo.Note)
	assert.True(t, di(45).Equal(consumo.OldQuantity))
	assert.True(t, consumo.NewQuantity.IsZero())
}

// Consumo explícito enviado por el operador reemplaza la ley por defecto.
func TestSubmitStage_ConsumoExplicitoPrevalece(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "prod-w", Name: "W", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	s.items["mat-b"] = &entity.InventoryItem{ID: "mat-b", Name: "Mat B", Quantity: di(100), Unit: "kg"}

	batch := newTestBatch("b5", "LOTE-0005", product, 10, []entity.BatchMaterial{
		{MaterialID: "mat-b", Name: "Mat B", Quantity: di(30), Unit: "kg", Stage: entity.StageMolding},
	})
	s.batches[batch.ID] = batch

	res, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{
		BatchID:              "b5",
		Stage:                entity.StageMolding,
		Accepted:             di(10),
		MaterialConsumptions: map[string]decimal.Decimal{"mat-b": di(25)},
	})
	require.NoError(t, err)
	assert.True(t, di(25).Equal(res.Consumptions["mat-b"]))
	assert.True(t, di(75).Equal(s.items["mat-b"].Quantity))
}

// Escenario 5: rechazo en Testing con TODOS los insumos de ensamble
// exonerados: no se crea lote compensatorio y la entrega se rechaza uniforme.
func TestSubmitStage_RechazoConTodoExoneradoFalla(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{
		ID:                  "prod-v",
		Name:                "V",
		ManufacturingStages: []string{entity.StageAssembling, entity.StageTesting},
		BOMPerPiece: []entity.BOMLine{
			{RawMaterialID: "mat-c", Name: "Mat C", Stage: entity.StageAssembling, QtyPerPiece: di(1), Unit: "und"},
		},
	}
	s.products[product.ID] = product
	batch := newTestBatch("b6", "LOTE-0006", product, 10, nil)
	batch.StageRecordFor(entity.StageAssembling).Completed = true
	s.batches[batch.ID] = batch

	_, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{
		BatchID:                "b6",
		Stage:                  entity.StageTesting,
		Accepted:               di(7),
		Rejected:               di(3),
		ConfirmedGoodMaterials: []string{"mat-c"},
	})
	assert.ErrorIs(t, err, domain.ErrNothingToRework)

	// Sin efectos: Testing no quedó completado ni entró nada a producto terminado
	assert.False(t, batch.ProcessingStages[entity.StageTesting].Completed)
	assert.True(t, product.AvailableQuantity().IsZero())
	assert.Len(t, (&memBatchRepo{s}).mustList(), 1)
}

func (r *memBatchRepo) mustList() []*entity.Batch {
	out, _ := r.ListActive(0, 0)
	return out
}

// Transición completed única: reenviar una etapa finalizada es
// ErrStageAlreadyFinalized y no repite efectos de inventario.
func TestSubmitStage_EtapaFinalizadaEsTerminal(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "prod-u", Name: "U", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	batch := newTestBatch("b7", "LOTE-0007", product, 10, nil)
	s.batches[batch.ID] = batch

	_, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{BatchID: "b7", Stage: entity.StageMolding, Accepted: di(10)})
	require.NoError(t, err)
	require.True(t, di(10).Equal(product.AvailableQuantity()))

	_, err = eng.SubmitStage(context.Background(), testUser, StageSubmission{BatchID: "b7", Stage: entity.StageMolding, Accepted: di(99)})
	assert.ErrorIs(t, err, domain.ErrStageAlreadyFinalized)
	assert.True(t, di(10).Equal(product.AvailableQuantity()), "el reenvío no debe repetir efectos de inventario")
	assert.True(t, di(10).Equal(batch.ProcessingStages[entity.StageMolding].Accepted), "el registro tampoco se sobreescribe")
}

// Consumo FIFO del libro de lotes: primero los lotes más antiguos, los
// drenados se eliminan.
func TestSubmitStage_ConsumoFIFODeProductoTerminado(t *testing.T) {
	eng, s := newTestEngine(nil)

	old := time.Now().Add(-48 * time.Hour)
	mid := time.Now().Add(-24 * time.Hour)
	feedstock := &entity.Product{
		ID:   "prod-insumo",
		Name: "Subcomponente",
		Lots: []entity.ProductLot{
			{BatchID: "viejo", Quantity: di(30), CreatedAt: old},
			{BatchID: "medio", Quantity: di(50), CreatedAt: mid},
		},
	}
	s.products[feedstock.ID] = feedstock

	product := &entity.Product{ID: "prod-t", Name: "T", ManufacturingStages: []string{entity.StageAssembling}}
	s.products[product.ID] = product

	batch := newTestBatch("b8", "LOTE-0008", product, 10, []entity.BatchMaterial{
		{MaterialID: "prod-insumo", Name: "Subcomponente", Quantity: di(40), Unit: "und", Stage: entity.StageAssembling},
	})
	s.batches[batch.ID] = batch

	// Consumo por defecto: 10 × (40/10) = 40 → drena el lote de 30 y toma 10 del de 50
	_, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{BatchID: "b8", Stage: entity.StageAssembling, Accepted: di(10)})
	require.NoError(t, err)

	require.Len(t, feedstock.Lots, 1, "el lote drenado debe eliminarse del libro")
	assert.Equal(t, "medio", feedstock.Lots[0].BatchID)
	assert.True(t, di(40).Equal(feedstock.Lots[0].Quantity))
}

// Bloqueo de Assembling en lote compensatorio: el valor enviado se ignora y se
// fuerza la cantidad a fabricar.
func TestSubmitStage_AssemblingBloqueadoEnLoteCompensatorio(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{
		ID:                  "prod-s",
		Name:                "S",
		ManufacturingStages: []string{entity.StageAssembling, entity.StageTesting},
	}
	s.products[product.ID] = product

	child := newTestBatch("b9", "LOTE-0009", product, 5, nil)
	child.AutoCreatedFromTestingRejected = true
	child.StageRecordFor(entity.StageAssembling).Accepted = di(5)
	s.batches[child.ID] = child

	res, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{
		BatchID:  "b9",
		Stage:    entity.StageAssembling,
		Accepted: di(99), // intento de sobreescritura
	})
	require.NoError(t, err)
	assert.True(t, di(5).Equal(res.Batch.ProcessingStages[entity.StageAssembling].Accepted),
		"accepted queda fijado a la cantidad del lote compensatorio")

	assembled, _ := (&memItemRepo{s}).GetByName("Assembled S")
	require.NotNil(t, assembled)
	assert.True(t, di(5).Equal(assembled.Quantity))
}

// Validaciones de entrada: etapa inválida, negativos y rechazo fuera de Testing.
func TestSubmitStage_Validaciones(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "p", Name: "P", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	batch := newTestBatch("b10", "LOTE-0010", product, 10, nil)
	s.batches[batch.ID] = batch

	ctx := context.Background()

	_, err := eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b10", Stage: "Painting", Accepted: di(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b10", Stage: entity.StageMolding, Accepted: di(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b10", Stage: entity.StageMolding, Accepted: di(1), Rejected: di(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "rechazo solo existe en Testing")

	_, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "no-existe", Stage: entity.StageMolding, Accepted: di(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b10", Stage: entity.StageTesting, Accepted: di(1)})
	assert.ErrorIs(t, err, domain.ErrStageNotInFlow, "Testing no pertenece al flujo de una sola etapa Molding")
}

// Una entrega sin unidades (aceptadas y rechazadas en cero) se rechaza:
// completed es terminal y un POST vacío dejaría la etapa bloqueada sin salida.
func TestSubmitStage_EntregaEnCeroNoFinalizaLaEtapa(t *testing.T) {
	eng, s := newTestEngine(nil)
	ctx := context.Background()

	product := &entity.Product{ID: "prod-q", Name: "Q", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	batch := newTestBatch("b12", "LOTE-0012", product, 10, nil)
	s.batches[batch.ID] = batch

	_, err := eng.SubmitStage(ctx, testUser, StageSubmission{
		BatchID: "b12",
		Stage:   entity.StageMolding,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	if rec := batch.ProcessingStages[entity.StageMolding]; rec != nil {
		assert.False(t, rec.Completed, "aceptadas + rechazadas en cero no debe marcar la etapa como completada")
	}

	// La etapa sigue abierta: una entrega real posterior se procesa normal
	res, err := eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: "b12", Stage: entity.StageMolding, Accepted: di(10)})
	require.NoError(t, err)
	assert.Equal(t, entity.BatchStatusCompleted, res.Status)
}

// Ciclo de vida del lote compensatorio: entra a la cola de Assembling (no a
// Molding, aunque el pipeline del producto sea completo) y al cerrar sus dos
// etapas seleccionadas queda Completed.
func TestSubmitStage_LoteCompensatorioColaYEstado(t *testing.T) {
	eng, s := newTestEngine(nil)
	ctx := context.Background()

	product := &entity.Product{
		ID:   "prod-n",
		Name: "N",
		ManufacturingStages: []string{
			entity.StageMolding, entity.StageMachining, entity.StageAssembling, entity.StageTesting,
		},
		BOMPerPiece: []entity.BOMLine{
			{RawMaterialID: "mat-d", Name: "Mat D", Stage: entity.StageAssembling, QtyPerPiece: di(2), Unit: "und"},
		},
	}
	s.products[product.ID] = product
	s.items["mat-d"] = &entity.InventoryItem{ID: "mat-d", Name: "Mat D", Quantity: di(100), Unit: "und"}

	batch := newTestBatch("b13", "LOTE-0013", product, 10, []entity.BatchMaterial{
		{MaterialID: "mat-d", Name: "Mat D", Quantity: di(20), Unit: "und", Stage: entity.StageAssembling},
	})
	batch.StageRecordFor(entity.StageMolding).Completed = true
	batch.StageRecordFor(entity.StageMachining).Completed = true
	batch.StageRecordFor(entity.StageAssembling).Completed = true
	s.batches[batch.ID] = batch

	res, err := eng.SubmitStage(ctx, testUser, StageSubmission{
		BatchID: "b13", Stage: entity.StageTesting, Accepted: di(7), Rejected: di(3),
	})
	require.NoError(t, err)
	child := res.CompensatingBatch
	require.NotNil(t, child)

	// La cola y el estado del hijo se derivan de sus procesos seleccionados,
	// aunque el flujo resuelto del producto sea el pipeline completo.
	fullFlow := domainprod.ResolveFlow(product, child)
	current, ok := child.CurrentStage(fullFlow.Stages)
	require.True(t, ok)
	assert.Equal(t, entity.StageAssembling, current, "el hijo entra a la cola de Assembling, no a Molding")
	assert.Equal(t, entity.BatchStatusPlanned, child.Status(fullFlow.Stages))

	// Assembling del hijo (accepted bloqueado a 3) y luego Testing sin rechazo
	_, err = eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: child.ID, Stage: entity.StageAssembling, Accepted: di(3)})
	require.NoError(t, err)
	current, ok = child.CurrentStage(fullFlow.Stages)
	require.True(t, ok)
	assert.Equal(t, entity.StageTesting, current)
	assert.Equal(t, entity.BatchStatusInProgress, child.Status(fullFlow.Stages))

	resT, err := eng.SubmitStage(ctx, testUser, StageSubmission{BatchID: child.ID, Stage: entity.StageTesting, Accepted: di(3)})
	require.NoError(t, err)
	assert.Equal(t, entity.BatchStatusCompleted, resT.Status, "con sus dos etapas cerradas el hijo queda Completed")

	_, ok = child.CurrentStage(fullFlow.Stages)
	assert.False(t, ok, "sin etapas pendientes el hijo sale de todas las colas")
}

// Dos lotes compensatorios generados el mismo día reciben consecutivos
// distintos del contador atómico del día, nunca códigos duplicados.
func TestSubmitStage_CodigosCompensatoriosConsecutivos(t *testing.T) {
	eng, s := newTestEngine(nil)
	ctx := context.Background()

	product := &entity.Product{
		ID:                  "prod-m",
		Name:                "M",
		ManufacturingStages: []string{entity.StageAssembling, entity.StageTesting},
		BOMPerPiece: []entity.BOMLine{
			{RawMaterialID: "mat-e", Name: "Mat E", Stage: entity.StageAssembling, QtyPerPiece: di(1), Unit: "und"},
		},
	}
	s.products[product.ID] = product

	day := time.Now().Format("20060102")
	var codes []string
	for _, id := range []string{"b14", "b15"} {
		batch := newTestBatch(id, "LOTE-"+id, product, 10, nil)
		batch.StageRecordFor(entity.StageAssembling).Completed = true
		s.batches[batch.ID] = batch

		res, err := eng.SubmitStage(ctx, testUser, StageSubmission{
			BatchID: id, Stage: entity.StageTesting, Accepted: di(8), Rejected: di(2),
		})
		require.NoError(t, err)
		require.NotNil(t, res.CompensatingBatch)
		codes = append(codes, res.CompensatingBatch.Code)
	}

	assert.Equal(t, "LOTE-"+day+"-0001", codes[0])
	assert.Equal(t, "LOTE-"+day+"-0002", codes[1])
	assert.NotEqual(t, codes[0], codes[1])
}

// Material irresoluble: corte duro para ese material (sin descuento), la
// condición queda auditada y la etapa igual se completa.
func TestSubmitStage_MaterialNoEncontradoSeAuditaYSigue(t *testing.T) {
	eng, s := newTestEngine(nil)

	product := &entity.Product{ID: "prod-r", Name: "R", ManufacturingStages: []string{entity.StageMolding}}
	s.products[product.ID] = product
	batch := newTestBatch("b11", "LOTE-0011", product, 10, []entity.BatchMaterial{
		{MaterialID: "fantasma", Name: "Fantasma", Quantity: di(10), Unit: "kg", Stage: entity.StageMolding},
	})
	s.batches[batch.ID] = batch

	res, err := eng.SubmitStage(context.Background(), testUser, StageSubmission{BatchID: "b11", Stage: entity.StageMolding, Accepted: di(10)})
	require.NoError(t, err)
	assert.True(t, res.Consumptions["fantasma"].IsZero())
	assert.True(t, batch.ProcessingStages[entity.StageMolding].Completed)

	movs, _ := (&memMovementRepo{s}).ListByBatch("b11", 0, 0)
	var flagged bool
	for _, m := range movs {
		if m.Kind == entity.MovementShortageFloored && m.MaterialID == "fantasma" {
			flagged = true
		}
	}
	assert.True(t, flagged, "la resolución fallida debe quedar en el libro de movimientos")
}
