package usecase

import (
	"context"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	domainprod "github.com/jhoicas/Produccion-api/internal/domain/production"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

// RouteCardGenerator puerto del generador de la Hoja de Ruta en PDF.
type RouteCardGenerator interface {
	GenerateRouteCard(ctx context.Context, batch *entity.Batch, flowStages []string) ([]byte, error)
}

// RouteCardUseCase genera la Hoja de Ruta de un lote.
type RouteCardUseCase struct {
	batchRepo   repository.BatchRepository
	productRepo repository.ProductRepository
	generator   RouteCardGenerator
}

// NewRouteCardUseCase construye el caso de uso.
func NewRouteCardUseCase(
	batchRepo repository.BatchRepository,
	productRepo repository.ProductRepository,
	generator RouteCardGenerator,
) *RouteCardUseCase {
	return &RouteCardUseCase{batchRepo: batchRepo, productRepo: productRepo, generator: generator}
}

// Generate devuelve los bytes del PDF de la hoja de ruta del lote.
func (uc *RouteCardUseCase) Generate(ctx context.Context, batchID string) ([]byte, error) {
	batch, err := uc.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrNotFound
	}
	product, err := uc.productRepo.GetByID(batch.ProductID)
	if err != nil {
		return nil, err
	}
	flow := domainprod.ResolveFlow(product, batch)
	return uc.generator.GenerateRouteCard(ctx, batch, flow.Stages)
}
