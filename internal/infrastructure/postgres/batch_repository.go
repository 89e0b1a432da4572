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

var _ repository.BatchRepository = (*BatchRepo)(nil)

// BatchRepo implementación del puerto BatchRepository sobre PostgreSQL (usable con pool o tx).
// Materiales, etapas seleccionadas y registros de etapa van en columnas JSONB.
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

const batchColumns = `id, code, product_id, product_name, quantity_to_build, materials,
	selected_processes, processing_stages, auto_created_from_testing_rejected,
	parent_batch_id, created_by, created_at, updated_at`

// Create persiste un lote nuevo.
func (r *BatchRepo) Create(batch *entity.Batch) error {
	query := `
		INSERT INTO production_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(context.Background(), query,
		batch.ID, batch.Code, batch.ProductID, batch.ProductName, batch.QuantityToBuild,
		jsonbMaterials(batch.Materials), jsonbStrings(batch.SelectedProcesses),
		jsonbStages(batch.ProcessingStages), batch.AutoCreatedFromTestingRejected,
		nullIfEmpty(batch.ParentBatchID), nullIfEmpty(batch.CreatedBy),
		batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID. (nil, nil) si no existe.
func (r *BatchRepo) GetByID(id string) (*entity.Batch, error) {
	return r.getOne(`SELECT `+batchColumns+` FROM production_batches WHERE id = $1`, id)
}

// GetByIDForUpdate obtiene el lote bloqueando la fila (SELECT FOR UPDATE).
func (r *BatchRepo) GetByIDForUpdate(id string) (*entity.Batch, error) {
	return r.getOne(`SELECT `+batchColumns+` FROM production_batches WHERE id = $1 FOR UPDATE`, id)
}

// GetByCode obtiene un lote por código legible.
func (r *BatchRepo) GetByCode(code string) (*entity.Batch, error) {
	return r.getOne(`SELECT `+batchColumns+` FROM production_batches WHERE code = $1`, code)
}

func (r *BatchRepo) getOne(query string, arg any) (*entity.Batch, error) {
	row := r.q.QueryRow(context.Background(), query, arg)
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// Update reescribe el lote completo (incluye documentos JSONB).
func (r *BatchRepo) Update(batch *entity.Batch) error {
	query := `
		UPDATE production_batches
		SET product_name = $2, quantity_to_build = $3, materials = $4, selected_processes = $5,
		    processing_stages = $6, updated_at = $7
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		batch.ID, batch.ProductName, batch.QuantityToBuild, jsonbMaterials(batch.Materials),
		jsonbStrings(batch.SelectedProcesses), jsonbStages(batch.ProcessingStages), batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

// ListActive lista lotes con al menos una etapa pendiente (o sin etapas registradas).
func (r *BatchRepo) ListActive(limit, offset int) ([]*entity.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM production_batches
		WHERE coalesce(
			(SELECT bool_and(coalesce((value->>'completed')::bool, false))
			 FROM jsonb_each(processing_stages)),
			false) = false
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.list(query, limit, offset)
}

// ListByProduct lista los lotes de un producto, más recientes primero.
func (r *BatchRepo) ListByProduct(productID string, limit, offset int) ([]*entity.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM production_batches WHERE product_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(query, productID, limit, offset)
}

func (r *BatchRepo) list(query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, batch)
	}
	return list, rows.Err()
}

// Delete elimina un lote por ID.
func (r *BatchRepo) Delete(id string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM production_batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return nil
}

// NextCodeSeq reserva el siguiente consecutivo del código para una fecha
// (YYYYMMDD) vía upsert sobre el contador del día. La fila del contador queda
// bloqueada hasta el commit, así dos creaciones concurrentes nunca colisionan
// en el código del lote.
func (r *BatchRepo) NextCodeSeq(day string) (int, error) {
	var seq int
	err := r.q.QueryRow(context.Background(), `
		INSERT INTO batch_code_counters (day, last_seq) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET last_seq = batch_code_counters.last_seq + 1
		RETURNING last_seq`,
		day,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next code seq: %w", err)
	}
	return seq, nil
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	var parentID, createdBy *string
	err := row.Scan(
		&b.ID, &b.Code, &b.ProductID, &b.ProductName, &b.QuantityToBuild, &b.Materials,
		&b.SelectedProcesses, &b.ProcessingStages, &b.AutoCreatedFromTestingRejected,
		&parentID, &createdBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		b.ParentBatchID = *parentID
	}
	if createdBy != nil {
		b.CreatedBy = *createdBy
	}
	return &b, nil
}
