package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Produccion-api/internal/application/dto"
	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

// MaterialUseCase casos de uso CRUD para materias primas y consulta de pools
// intermedios. Los pools (Moulded/Machined/Assembled) los crea el motor de
// producción; aquí solo se listan y ajustan umbrales.
type MaterialUseCase struct {
	repo repository.InventoryItemRepository
}

// NewMaterialUseCase construye el caso de uso.
func NewMaterialUseCase(repo repository.InventoryItemRepository) *MaterialUseCase {
	return &MaterialUseCase{repo: repo}
}

// Create registra una materia prima nueva.
func (uc *MaterialUseCase) Create(in dto.CreateMaterialRequest) (*dto.MaterialResponse, error) {
	if in.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetByName(in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if in.Unit == "" {
		in.Unit = "und"
	}
	now := time.Now()
	item := &entity.InventoryItem{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Quantity:  in.Quantity,
		Threshold: in.Threshold,
		Unit:      in.Unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(item); err != nil {
		return nil, err
	}
	return toMaterialResponse(item), nil
}

// GetByID obtiene un item por ID. (nil, nil) si no existe.
func (uc *MaterialUseCase) GetByID(id string) (*dto.MaterialResponse, error) {
	item, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return toMaterialResponse(item), nil
}

// Update actualiza nombre, saldo manual, umbral y unidad. Los flags de pool no
// se editan.
func (uc *MaterialUseCase) Update(id string, in dto.UpdateMaterialRequest) (*dto.MaterialResponse, error) {
	item, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	if in.Name != "" {
		item.Name = in.Name
	}
	if in.Unit != "" {
		item.Unit = in.Unit
	}
	item.Quantity = in.Quantity
	item.Threshold = in.Threshold
	item.UpdatedAt = time.Now()
	if err := uc.repo.Update(item); err != nil {
		return nil, err
	}
	return toMaterialResponse(item), nil
}

// List lista items de inventario; onlyPools restringe a pools intermedios
// (vista "almacén en proceso").
func (uc *MaterialUseCase) List(onlyPools bool, limit, offset int) ([]*dto.MaterialResponse, error) {
	list, err := uc.repo.List(onlyPools, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.MaterialResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toMaterialResponse(item))
	}
	return out, nil
}

// ListBelowThreshold lista los items con saldo bajo el umbral de reposición.
func (uc *MaterialUseCase) ListBelowThreshold() ([]*dto.MaterialResponse, error) {
	list, err := uc.repo.ListBelowThreshold()
	if err != nil {
		return nil, err
	}
	out := make([]*dto.MaterialResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toMaterialResponse(item))
	}
	return out, nil
}

// Delete elimina un item de inventario.
func (uc *MaterialUseCase) Delete(id string) error {
	item, err := uc.repo.GetByID(id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return uc.repo.Delete(id)
}

func toMaterialResponse(i *entity.InventoryItem) *dto.MaterialResponse {
	return &dto.MaterialResponse{
		ID:             i.ID,
		Name:           i.Name,
		Quantity:       i.Quantity,
		Threshold:      i.Threshold,
		Unit:           i.Unit,
		IsMoulded:      i.IsMoulded,
		IsMachined:     i.IsMachined,
		IsAssembled:    i.IsAssembled,
		SourceBatchID:  i.SourceBatchID,
		BelowThreshold: i.BelowThreshold(),
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}
