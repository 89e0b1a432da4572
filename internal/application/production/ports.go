package production

import (
	"context"

	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza que las mutaciones de inventario, el
// registro de la etapa y el libro de movimientos de una misma entrega se
// confirmen juntos o no se confirmen.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		batchRepo repository.BatchRepository,
		productRepo repository.ProductRepository,
		itemRepo repository.InventoryItemRepository,
		movementRepo repository.StageMovementRepository,
	) error) error
}
