package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
)

var _ repository.StageMovementRepository = (*StageMovementRepo)(nil)

// StageMovementRepo implementación del libro de movimientos de producción
// sobre PostgreSQL (usable con pool o tx). Solo inserta y lista: los
// movimientos no se editan.
type StageMovementRepo struct {
	q Querier
}

// NewStageMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStageMovementRepository(q Querier) *StageMovementRepo {
	return &StageMovementRepo{q: q}
}

const movementColumns = `id, batch_id, batch_code, stage, material_id, material_name, kind,
	quantity, old_quantity, new_quantity, note, created_at, created_by`

// Create persiste un movimiento.
func (r *StageMovementRepo) Create(movement *entity.StageMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stage_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(context.Background(), query,
		movement.ID, movement.BatchID, movement.BatchCode, movement.Stage,
		nullIfEmpty(movement.MaterialID), movement.MaterialName, movement.Kind,
		movement.Quantity, movement.OldQuantity, movement.NewQuantity,
		nullIfEmpty(movement.Note), movement.CreatedAt, nullIfEmpty(movement.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("insert stage movement: %w", err)
	}
	return nil
}

// ListByBatch lista los movimientos de un lote en orden cronológico.
func (r *StageMovementRepo) ListByBatch(batchID string, limit, offset int) ([]*entity.StageMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stage_movements WHERE batch_id = $1
		ORDER BY created_at LIMIT $2 OFFSET $3`
	return r.list(query, batchID, limit, offset)
}

// ListByMaterial lista movimientos de un material, opcionalmente acotados por fecha.
func (r *StageMovementRepo) ListByMaterial(materialID string, from, to *time.Time, limit, offset int) ([]*entity.StageMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stage_movements
		WHERE material_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`
	return r.list(query, materialID, from, to, limit, offset)
}

func (r *StageMovementRepo) list(query string, args ...any) ([]*entity.StageMovement, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stage movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StageMovement
	for rows.Next() {
		movement, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage movement: %w", err)
		}
		list = append(list, movement)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StageMovement, error) {
	var m entity.StageMovement
	var materialID, note, createdBy *string
	err := row.Scan(
		&m.ID, &m.BatchID, &m.BatchCode, &m.Stage, &materialID, &m.MaterialName, &m.Kind,
		&m.Quantity, &m.OldQuantity, &m.NewQuantity, &note, &m.CreatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	if materialID != nil {
		m.MaterialID = *materialID
	}
	if note != nil {
		m.Note = *note
	}
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}
