package repository

import "github.com/jhoicas/Produccion-api/internal/domain/entity"

// InventoryItemRepository define el puerto de persistencia para materias primas
// y pools intermedios (DIP).
type InventoryItemRepository interface {
	Create(item *entity.InventoryItem) error
	GetByID(id string) (*entity.InventoryItem, error)
	// GetByIDForUpdate bloquea la fila del item (SELECT FOR UPDATE).
	GetByIDForUpdate(id string) (*entity.InventoryItem, error)
	GetByName(name string) (*entity.InventoryItem, error)
	Update(item *entity.InventoryItem) error
	// List lista items; onlyPools filtra a pools intermedios.
	List(onlyPools bool, limit, offset int) ([]*entity.InventoryItem, error)
	ListBelowThreshold() ([]*entity.InventoryItem, error)
	Delete(id string) error
}
