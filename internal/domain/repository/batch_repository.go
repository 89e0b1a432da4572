package repository

import "github.com/jhoicas/Produccion-api/internal/domain/entity"

// BatchRepository define el puerto de persistencia para lotes de producción (DIP).
type BatchRepository interface {
	Create(batch *entity.Batch) error
	GetByID(id string) (*entity.Batch, error)
	// GetByIDForUpdate obtiene el lote bloqueando la fila (SELECT FOR UPDATE);
	// solo tiene sentido dentro de una transacción.
	GetByIDForUpdate(id string) (*entity.Batch, error)
	GetByCode(code string) (*entity.Batch, error)
	Update(batch *entity.Batch) error
	// ListActive lista lotes con al menos una etapa pendiente.
	ListActive(limit, offset int) ([]*entity.Batch, error)
	ListByProduct(productID string, limit, offset int) ([]*entity.Batch, error)
	Delete(id string) error
	// NextCodeSeq reserva el siguiente consecutivo del código para una fecha
	// (YYYYMMDD). Atómico: dos creaciones concurrentes nunca reciben el mismo valor.
	NextCodeSeq(day string) (int, error)
}
