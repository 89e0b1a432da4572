package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Produccion-api/internal/application/dto"
	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

// ProductUseCase casos de uso CRUD para productos terminados. El stock no se
// edita aquí: entra por cierre de etapas y sale por consumo como insumo.
type ProductUseCase struct {
	repo repository.ProductRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo}
}

// Create crea un producto con su secuencia de etapas y BOM por pieza.
func (uc *ProductUseCase) Create(in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if in.Name == "" || in.SKU == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := validateStages(in.ManufacturingStages); err != nil {
		return nil, err
	}
	bom, err := bomFromDTO(in.BOMPerPiece)
	if err != nil {
		return nil, err
	}
	existing, err := uc.repo.GetBySKU(in.SKU)
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
	product := &entity.Product{
		ID:                  uuid.New().String(),
		Name:                in.Name,
		SKU:                 in.SKU,
		Unit:                in.Unit,
		ManufacturingStages: in.ManufacturingStages,
		BOMPerPiece:         bom,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := uc.repo.Create(product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID. (nil, nil) si no existe.
func (uc *ProductUseCase) GetByID(id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toProductResponse(product), nil
}

// Update actualiza nombre, unidad, etapas y BOM. No toca saldos ni enlaces a pools.
func (uc *ProductUseCase) Update(id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	if in.Name != "" {
		product.Name = in.Name
	}
	if in.Unit != "" {
		product.Unit = in.Unit
	}
	if in.ManufacturingStages != nil {
		if err := validateStages(in.ManufacturingStages); err != nil {
			return nil, err
		}
		product.ManufacturingStages = in.ManufacturingStages
	}
	if in.BOMPerPiece != nil {
		bom, err := bomFromDTO(in.BOMPerPiece)
		if err != nil {
			return nil, err
		}
		product.BOMPerPiece = bom
	}
	product.UpdatedAt = time.Now()
	if err := uc.repo.Update(product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(limit, offset int) ([]*dto.ProductResponse, error) {
	list, err := uc.repo.List(limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProductResponse(p))
	}
	return out, nil
}

// Delete elimina un producto.
func (uc *ProductUseCase) Delete(id string) error {
	product, err := uc.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}
	return uc.repo.Delete(id)
}

// validateStages exige un subconjunto ordenado de las etapas canónicas, sin repetir.
func validateStages(stages []string) error {
	seen := make(map[string]bool, len(stages))
	last := -1
	for _, s := range stages {
		if !entity.IsValidStage(s) || seen[s] {
			return domain.ErrInvalidInput
		}
		seen[s] = true
		idx := stageIndex(s)
		if idx <= last {
			return domain.ErrInvalidInput
		}
		last = idx
	}
	return nil
}

func stageIndex(stage string) int {
	for i, s := range entity.CanonicalStages {
		if s == stage {
			return i
		}
	}
	return -1
}

func bomFromDTO(lines []dto.BOMLineDTO) ([]entity.BOMLine, error) {
	out := make([]entity.BOMLine, 0, len(lines))
	for _, l := range lines {
		if !entity.IsValidStage(l.Stage) || l.RawMaterialID == "" {
			return nil, domain.ErrInvalidInput
		}
		source := l.Source
		if source == "" {
			source = entity.BOMSourceRaw
		}
		if source != entity.BOMSourceRaw && source != entity.BOMSourceFinal {
			return nil, domain.ErrInvalidInput
		}
		out = append(out, entity.BOMLine{
			RawMaterialID: l.RawMaterialID,
			Name:          l.Name,
			Stage:         l.Stage,
			QtyPerPiece:   l.QtyPerPiece,
			Unit:          l.Unit,
			Source:        source,
		})
	}
	return out, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	bom := make([]dto.BOMLineDTO, 0, len(p.BOMPerPiece))
	for _, l := range p.BOMPerPiece {
		bom = append(bom, dto.BOMLineDTO{
			RawMaterialID: l.RawMaterialID,
			Name:          l.Name,
			Stage:         l.Stage,
			QtyPerPiece:   l.QtyPerPiece,
			Unit:          l.Unit,
			Source:        l.Source,
		})
	}
	lots := make([]dto.ProductLotDTO, 0, len(p.Lots))
	for _, lot := range p.Lots {
		lots = append(lots, dto.ProductLotDTO{
			BatchID:   lot.BatchID,
			Quantity:  lot.Quantity,
			CreatedAt: lot.CreatedAt,
		})
	}
	return &dto.ProductResponse{
		ID:                  p.ID,
		Name:                p.Name,
		SKU:                 p.SKU,
		Unit:                p.Unit,
		AvailableQuantity:   p.AvailableQuantity(),
		ManufacturingStages: p.ManufacturingStages,
		BOMPerPiece:         bom,
		MouldedMaterialID:   p.MouldedMaterialID,
		MachinedMaterialID:  p.MachinedMaterialID,
		AssembledMaterialID: p.AssembledMaterialID,
		Lots:                lots,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
