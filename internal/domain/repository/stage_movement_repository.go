package repository

import (
	"time"

	"github.com/jhoicas/Produccion-api/internal/domain/entity"
)

// StageMovementRepository define el puerto de persistencia del libro de
// movimientos de producción (auditoría de efectos de inventario).
type StageMovementRepository interface {
	Create(movement *entity.StageMovement) error
	ListByBatch(batchID string, limit, offset int) ([]*entity.StageMovement, error)
	ListByMaterial(materialID string, from, to *time.Time, limit, offset int) ([]*entity.StageMovement, error)
}
