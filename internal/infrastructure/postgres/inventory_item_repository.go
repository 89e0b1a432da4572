package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

var _ repository.InventoryItemRepository = (*InventoryItemRepo)(nil)

// InventoryItemRepo implementación del puerto InventoryItemRepository sobre
// PostgreSQL (usable con pool o tx).
type InventoryItemRepo struct {
	q Querier
}

// NewInventoryItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryItemRepository(q Querier) *InventoryItemRepo {
	return &InventoryItemRepo{q: q}
}

const itemColumns = `id, name, quantity, threshold, unit, is_moulded, is_machined, is_assembled,
	source_batch_id, created_at, updated_at`

// Create persiste un item nuevo.
func (r *InventoryItemRepo) Create(item *entity.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.Name, item.Quantity, item.Threshold, item.Unit,
		item.IsMoulded, item.IsMachined, item.IsAssembled,
		nullIfEmpty(item.SourceBatchID), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert inventory item: %w", err)
	}
	return nil
}

// GetByID obtiene un item por ID. (nil, nil) si no existe.
func (r *InventoryItemRepo) GetByID(id string) (*entity.InventoryItem, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
}

// GetByIDForUpdate bloquea la fila del item (SELECT FOR UPDATE).
func (r *InventoryItemRepo) GetByIDForUpdate(id string) (*entity.InventoryItem, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1 FOR UPDATE`, id)
}

// GetByName obtiene un item por nombre exacto (los pools se localizan así en
// items legados sin enlace).
func (r *InventoryItemRepo) GetByName(name string) (*entity.InventoryItem, error) {
	return r.getOne(`SELECT `+itemColumns+` FROM inventory_items WHERE name = $1`, name)
}

func (r *InventoryItemRepo) getOne(query string, arg any) (*entity.InventoryItem, error) {
	row := r.q.QueryRow(context.Background(), query, arg)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return item, nil
}

// Update actualiza un item existente.
func (r *InventoryItemRepo) Update(item *entity.InventoryItem) error {
	query := `
		UPDATE inventory_items
		SET name = $2, quantity = $3, threshold = $4, unit = $5, updated_at = $6
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.Name, item.Quantity, item.Threshold, item.Unit, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	return nil
}

// List lista items; onlyPools restringe a pools intermedios.
func (r *InventoryItemRepo) List(onlyPools bool, limit, offset int) ([]*entity.InventoryItem, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items`
	if onlyPools {
		query += ` WHERE is_moulded OR is_machined OR is_assembled`
	}
	query += ` ORDER BY name LIMIT $1 OFFSET $2`
	return r.list(query, limit, offset)
}

// ListBelowThreshold lista items con saldo bajo el umbral de reposición.
func (r *InventoryItemRepo) ListBelowThreshold() ([]*entity.InventoryItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_items WHERE threshold > 0 AND quantity < threshold
		ORDER BY name`
	return r.list(query)
}

func (r *InventoryItemRepo) list(query string, args ...any) ([]*entity.InventoryItem, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	defer rows.Close()
	var list []*entity.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// Delete elimina un item por ID.
func (r *InventoryItemRepo) Delete(id string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	return nil
}

func scanItem(row pgx.Row) (*entity.InventoryItem, error) {
	var i entity.InventoryItem
	var sourceBatchID *string
	err := row.Scan(
		&i.ID, &i.Name, &i.Quantity, &i.Threshold, &i.Unit,
		&i.IsMoulded, &i.IsMachined, &i.IsAssembled,
		&sourceBatchID, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sourceBatchID != nil {
		i.SourceBatchID = *sourceBatchID
	}
	return &i, nil
}
