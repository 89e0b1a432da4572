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

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
// El BOM por pieza y el libro de lotes van en columnas JSONB.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

const productColumns = `id, name, sku, unit, quantity, manufacturing_stages, bom_per_piece,
	moulded_material_id, machined_material_id, assembled_material_id, lots, created_at, updated_at`

// Create persiste un producto nuevo.
func (r *ProductRepo) Create(product *entity.Product) error {
	query := `
		INSERT INTO final_products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(context.Background(), query,
		product.ID, product.Name, product.SKU, product.Unit, product.Quantity,
		jsonbStrings(product.ManufacturingStages), jsonbBOM(product.BOMPerPiece),
		nullIfEmpty(product.MouldedMaterialID), nullIfEmpty(product.MachinedMaterialID),
		nullIfEmpty(product.AssembledMaterialID), jsonbLots(product.Lots),
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID. (nil, nil) si no existe.
func (r *ProductRepo) GetByID(id string) (*entity.Product, error) {
	return r.getOne(`SELECT `+productColumns+` FROM final_products WHERE id = $1`, id)
}

// GetByIDForUpdate bloquea la fila del producto (libro de lotes incluido).
func (r *ProductRepo) GetByIDForUpdate(id string) (*entity.Product, error) {
	return r.getOne(`SELECT `+productColumns+` FROM final_products WHERE id = $1 FOR UPDATE`, id)
}

// GetBySKU obtiene un producto por SKU.
func (r *ProductRepo) GetBySKU(sku string) (*entity.Product, error) {
	return r.getOne(`SELECT `+productColumns+` FROM final_products WHERE sku = $1`, sku)
}

func (r *ProductRepo) getOne(query string, arg any) (*entity.Product, error) {
	row := r.q.QueryRow(context.Background(), query, arg)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// Update reescribe el producto completo (incluye BOM, enlaces a pools y lotes).
func (r *ProductRepo) Update(product *entity.Product) error {
	query := `
		UPDATE final_products
		SET name = $2, unit = $3, quantity = $4, manufacturing_stages = $5, bom_per_piece = $6,
		    moulded_material_id = $7, machined_material_id = $8, assembled_material_id = $9,
		    lots = $10, updated_at = $11
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		product.ID, product.Name, product.Unit, product.Quantity,
		jsonbStrings(product.ManufacturingStages), jsonbBOM(product.BOMPerPiece),
		nullIfEmpty(product.MouldedMaterialID), nullIfEmpty(product.MachinedMaterialID),
		nullIfEmpty(product.AssembledMaterialID), jsonbLots(product.Lots), product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// List lista productos con paginación.
func (r *ProductRepo) List(limit, offset int) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM final_products ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, product)
	}
	return list, rows.Err()
}

// Delete elimina un producto por ID.
func (r *ProductRepo) Delete(id string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM final_products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var moulded, machined, assembled *string
	err := row.Scan(
		&p.ID, &p.Name, &p.SKU, &p.Unit, &p.Quantity, &p.ManufacturingStages, &p.BOMPerPiece,
		&moulded, &machined, &assembled, &p.Lots, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if moulded != nil {
		p.MouldedMaterialID = *moulded
	}
	if machined != nil {
		p.MachinedMaterialID = *machined
	}
	if assembled != nil {
		p.AssembledMaterialID = *assembled
	}
	return &p, nil
}
