package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Produccion-api/internal/application/dto"
	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	domainprod "github.com/jhoicas/Produccion-api/internal/domain/production"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

// BatchUseCase planificación y consulta de lotes de producción. El avance de
// etapas no vive aquí: lo procesa el motor de producción.
type BatchUseCase struct {
	batchRepo    repository.BatchRepository
	productRepo  repository.ProductRepository
	movementRepo repository.StageMovementRepository
}

// NewBatchUseCase construye el caso de uso.
func NewBatchUseCase(
	batchRepo repository.BatchRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StageMovementRepository,
) *BatchUseCase {
	return &BatchUseCase{batchRepo: batchRepo, productRepo: productRepo, movementRepo: movementRepo}
}

// Create planifica una corrida: expande el BOM del producto a la cantidad a
// fabricar, genera el código LOTE-YYYYMMDD-NNNN y deja las etapas del flujo
// inicializadas en cero.
func (uc *BatchUseCase) Create(userID string, in dto.CreateBatchRequest) (*dto.BatchResponse, error) {
	if in.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if err := validateStages(in.SelectedProcesses); err != nil {
		return nil, err
	}

	now := time.Now()
	batch := &entity.Batch{
		ID:                uuid.New().String(),
		ProductID:         product.ID,
		ProductName:       product.Name,
		QuantityToBuild:   in.Quantity,
		SelectedProcesses: in.SelectedProcesses,
		ProcessingStages:  make(map[string]*entity.StageRecord),
		CreatedBy:         userID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	flow := domainprod.ResolveFlow(product, batch)
	if len(flow.Stages) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if len(batch.SelectedProcesses) == 0 {
		batch.SelectedProcesses = flow.Stages
	}
	for _, stage := range flow.Stages {
		batch.StageRecordFor(stage)
	}

	// Expansión del BOM: solo las líneas de etapas dentro del flujo, escaladas
	// a la cantidad a fabricar.
	for _, line := range product.BOMPerPiece {
		if !flow.Contains(line.Stage) {
			continue
		}
		batch.Materials = append(batch.Materials, entity.BatchMaterial{
			MaterialID: line.RawMaterialID,
			Name:       line.Name,
			Quantity:   line.QtyPerPiece.Mul(in.Quantity),
			Unit:       line.Unit,
			Stage:      line.Stage,
		})
	}

	day := now.Format("20060102")
	seq, err := uc.batchRepo.NextCodeSeq(day)
	if err != nil {
		return nil, err
	}
	batch.Code = fmt.Sprintf("LOTE-%s-%04d", day, seq)

	if err := uc.batchRepo.Create(batch); err != nil {
		return nil, err
	}
	return uc.toBatchResponse(batch, flow.Stages), nil
}

// GetByID obtiene un lote con su estado derivado. (nil, nil) si no existe.
func (uc *BatchUseCase) GetByID(id string) (*dto.BatchResponse, error) {
	batch, err := uc.batchRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, nil
	}
	return uc.toBatchResponse(batch, uc.flowStagesFor(batch)), nil
}

// ListActive lista lotes con etapas pendientes; stage filtra la cola de una
// etapa concreta (lotes cuya etapa actual es esa).
func (uc *BatchUseCase) ListActive(stage string, limit, offset int) ([]*dto.BatchResponse, error) {
	if stage != "" && !entity.IsValidStage(stage) {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.batchRepo.ListActive(limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.BatchResponse, 0, len(list))
	for _, batch := range list {
		stages := uc.flowStagesFor(batch)
		if stage != "" {
			current, ok := batch.CurrentStage(stages)
			if !ok || current != stage {
				continue
			}
		}
		out = append(out, uc.toBatchResponse(batch, stages))
	}
	return out, nil
}

// ListByProduct lista los lotes de un producto.
func (uc *BatchUseCase) ListByProduct(productID string, limit, offset int) ([]*dto.BatchResponse, error) {
	list, err := uc.batchRepo.ListByProduct(productID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.BatchResponse, 0, len(list))
	for _, batch := range list {
		out = append(out, uc.toBatchResponse(batch, uc.flowStagesFor(batch)))
	}
	return out, nil
}

// Delete elimina un lote sin etapas completadas. Un lote con avance no se
// borra: sus efectos de inventario ya están confirmados.
func (uc *BatchUseCase) Delete(id string) error {
	batch, err := uc.batchRepo.GetByID(id)
	if err != nil {
		return err
	}
	if batch == nil {
		return domain.ErrNotFound
	}
	for _, rec := range batch.ProcessingStages {
		if rec != nil && rec.Completed {
			return domain.ErrConflict
		}
	}
	return uc.batchRepo.Delete(id)
}

// ListMovements lista el libro de movimientos de un lote.
func (uc *BatchUseCase) ListMovements(batchID string, limit, offset int) ([]*dto.StageMovementResponse, error) {
	list, err := uc.movementRepo.ListByBatch(batchID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.StageMovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementResponse(m))
	}
	return out, nil
}

// ListMovementsByMaterial lista movimientos de un material en un rango de fechas.
func (uc *BatchUseCase) ListMovementsByMaterial(materialID string, from, to *time.Time, limit, offset int) ([]*dto.StageMovementResponse, error) {
	list, err := uc.movementRepo.ListByMaterial(materialID, from, to, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.StageMovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementResponse(m))
	}
	return out, nil
}

// flowStagesFor resuelve las etapas efectivas del lote; un producto ya borrado
// degrada a los niveles siguientes del resolutor.
func (uc *BatchUseCase) flowStagesFor(batch *entity.Batch) []string {
	product, err := uc.productRepo.GetByID(batch.ProductID)
	if err != nil {
		product = nil
	}
	return domainprod.ResolveFlow(product, batch).Stages
}

func (uc *BatchUseCase) toBatchResponse(b *entity.Batch, flowStages []string) *dto.BatchResponse {
	materials := make([]dto.BatchMaterialDTO, 0, len(b.Materials))
	for _, m := range b.Materials {
		materials = append(materials, dto.BatchMaterialDTO{
			MaterialID: m.MaterialID,
			Name:       m.Name,
			Quantity:   m.Quantity,
			Unit:       m.Unit,
			Stage:      m.Stage,
		})
	}
	stages := make(map[string]dto.StageRecordDTO, len(b.ProcessingStages))
	for name, rec := range b.ProcessingStages {
		if rec == nil {
			continue
		}
		stages[name] = dto.StageRecordDTO{
			Accepted:             rec.Accepted,
			Rejected:             rec.Rejected,
			ActualConsumption:    rec.ActualConsumption,
			Completed:            rec.Completed,
			StartedAt:            rec.StartedAt,
			FinishedAt:           rec.FinishedAt,
			MaterialConsumptions: rec.MaterialConsumptions,
		}
	}
	current, _ := b.CurrentStage(flowStages)
	return &dto.BatchResponse{
		ID:                             b.ID,
		Code:                           b.Code,
		ProductID:                      b.ProductID,
		ProductName:                    b.ProductName,
		QuantityToBuild:                b.QuantityToBuild,
		Materials:                      materials,
		SelectedProcesses:              b.SelectedProcesses,
		ProcessingStages:               stages,
		Status:                         b.Status(flowStages),
		CurrentStage:                   current,
		AutoCreatedFromTestingRejected: b.AutoCreatedFromTestingRejected,
		ParentBatchID:                  b.ParentBatchID,
		CreatedAt:                      b.CreatedAt,
		UpdatedAt:                      b.UpdatedAt,
	}
}

func toMovementResponse(m *entity.StageMovement) *dto.StageMovementResponse {
	return &dto.StageMovementResponse{
		ID:           m.ID,
		BatchID:      m.BatchID,
		BatchCode:    m.BatchCode,
		Stage:        m.Stage,
		MaterialID:   m.MaterialID,
		MaterialName: m.MaterialName,
		Kind:         m.Kind,
		Quantity:     m.Quantity,
		OldQuantity:  m.OldQuantity,
		NewQuantity:  m.NewQuantity,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
		CreatedBy:    m.CreatedBy,
	}
}
