package production

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

// SourceKind clase de fuente de inventario resuelta.
type SourceKind string

const (
	// SourceRaw item de inventario con campo de cantidad simple (materia prima o pool intermedio).
	SourceRaw SourceKind = "raw"
	// SourceFinal producto terminado con libro de lotes (o saldo plano legado).
	SourceFinal SourceKind = "final"
)

// ResolvedSource fuente de inventario concreta para un identificador de
// material. La clase importa porque la semántica de escritura difiere: raw
// descuenta del campo de cantidad, final consume FIFO del libro de lotes.
type ResolvedSource struct {
	Kind    SourceKind
	Item    *entity.InventoryItem // poblado si Kind == SourceRaw
	Product *entity.Product       // poblado si Kind == SourceFinal
}

// Available cantidad disponible de la fuente.
func (s *ResolvedSource) Available() decimal.Decimal {
	if s.Kind == SourceRaw {
		return s.Item.Quantity
	}
	return s.Product.AvailableQuantity()
}

// Name nombre legible de la fuente.
func (s *ResolvedSource) Name() string {
	if s.Kind == SourceRaw {
		return s.Item.Name
	}
	return s.Product.Name
}

// Unit unidad de medida de la fuente.
func (s *ResolvedSource) Unit() string {
	if s.Kind == SourceRaw {
		return s.Item.Unit
	}
	return s.Product.Unit
}

// ResolveSource localiza un material por ID: primero en inventory_items (materia
// prima y pools moulded/machined/assembled comparten tabla) y después en
// productos terminados. Si no aparece en ningún lado devuelve ErrNotFound; el
// caller debe tratarlo como corte duro para ese material, nunca como saldo cero.
func ResolveSource(itemRepo repository.InventoryItemRepository, productRepo repository.ProductRepository, id string) (*ResolvedSource, error) {
	item, err := itemRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return &ResolvedSource{Kind: SourceRaw, Item: item}, nil
	}
	product, err := productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return &ResolvedSource{Kind: SourceFinal, Product: product}, nil
	}
	return nil, domain.ErrNotFound
}

// resolveSourceForUpdate igual que ResolveSource pero bloqueando la fila
// (SELECT FOR UPDATE); usar solo dentro de la transacción de una entrega.
func resolveSourceForUpdate(itemRepo repository.InventoryItemRepository, productRepo repository.ProductRepository, id string) (*ResolvedSource, error) {
	item, err := itemRepo.GetByIDForUpdate(id)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return &ResolvedSource{Kind: SourceRaw, Item: item}, nil
	}
	product, err := productRepo.GetByIDForUpdate(id)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return &ResolvedSource{Kind: SourceFinal, Product: product}, nil
	}
	return nil, domain.ErrNotFound
}
