package production

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Produccion-api/internal/domain/entity"
	"github.com/jhoicas/Produccion-api/internal/domain/repository"
	"github.com/jhoicas/Produccion-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria para el motor (sin DB)
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	batches   map[string]*entity.Batch
	products  map[string]*entity.Product
	items     map[string]*entity.InventoryItem
	movements []*entity.StageMovement
	codeSeq   map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		batches:  make(map[string]*entity.Batch),
		products: make(map[string]*entity.Product),
		items:    make(map[string]*entity.InventoryItem),
		codeSeq:  make(map[string]int),
	}
}

type memBatchRepo struct{ s *memStore }

func (r *memBatchRepo) Create(b *entity.Batch) error { r.s.batches[b.ID] = b; return nil }
func (r *memBatchRepo) GetByID(id string) (*entity.Batch, error) {
	return r.s.batches[id], nil
}
func (r *memBatchRepo) GetByIDForUpdate(id string) (*entity.Batch, error) {
	return r.s.batches[id], nil
}
func (r *memBatchRepo) GetByCode(code string) (*entity.Batch, error) {
	for _, b := range r.s.batches {
		if b.Code == code {
			return b, nil
		}
	}
	return nil, nil
}
func (r *memBatchRepo) Update(b *entity.Batch) error { r.s.batches[b.ID] = b; return nil }
func (r *memBatchRepo) ListActive(limit, offset int) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.s.batches {
		out = append(out, b)
	}
	return out, nil
}
func (r *memBatchRepo) ListByProduct(productID string, limit, offset int) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.s.batches {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	return out, nil
}
func (r *memBatchRepo) Delete(id string) error { delete(r.s.batches, id); return nil }
func (r *memBatchRepo) NextCodeSeq(day string) (int, error) {
	r.s.codeSeq[day]++
	return r.s.codeSeq[day], nil
}

type memProductRepo struct{ s *memStore }

func (r *memProductRepo) Create(p *entity.Product) error { r.s.products[p.ID] = p; return nil }
func (r *memProductRepo) GetByID(id string) (*entity.Product, error) {
	return r.s.products[id], nil
}
func (r *memProductRepo) GetByIDForUpdate(id string) (*entity.Product, error) {
	return r.s.products[id], nil
}
func (r *memProductRepo) GetBySKU(sku string) (*entity.Product, error) {
	for _, p := range r.s.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}
func (r *memProductRepo) Update(p *entity.Product) error { r.s.products[p.ID] = p; return nil }
func (r *memProductRepo) List(limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range r.s.products {
		out = append(out, p)
	}
	return out, nil
}
func (r *memProductRepo) Delete(id string) error { delete(r.s.products, id); return nil }

type memItemRepo struct{ s *memStore }

func (r *memItemRepo) Create(i *entity.InventoryItem) error { r.s.items[i.ID] = i; return nil }
func (r *memItemRepo) GetByID(id string) (*entity.InventoryItem, error) {
	return r.s.items[id], nil
}
func (r *memItemRepo) GetByIDForUpdate(id string) (*entity.InventoryItem, error) {
	return r.s.items[id], nil
}
func (r *memItemRepo) GetByName(name string) (*entity.InventoryItem, error) {
	for _, i := range r.s.items {
		if i.Name == name {
			return i, nil
		}
	}
	return nil, nil
}
func (r *memItemRepo) Update(i *entity.InventoryItem) error { r.s.items[i.ID] = i; return nil }
func (r *memItemRepo) List(onlyPools bool, limit, offset int) ([]*entity.InventoryItem, error) {
	var out []*entity.InventoryItem
	for _, i := range r.s.items {
		if !onlyPools || i.IsIntermediatePool() {
			out = append(out, i)
		}
	}
	return out, nil
}
func (r *memItemRepo) ListBelowThreshold() ([]*entity.InventoryItem, error) {
	var out []*entity.InventoryItem
	for _, i := range r.s.items {
		if i.BelowThreshold() {
			out = append(out, i)
		}
	}
	return out, nil
}
func (r *memItemRepo) Delete(id string) error { delete(r.s.items, id); return nil }

type memMovementRepo struct{ s *memStore }

func (r *memMovementRepo) Create(m *entity.StageMovement) error {
	r.s.movements = append(r.s.movements, m)
	return nil
}
func (r *memMovementRepo) ListByBatch(batchID string, limit, offset int) ([]*entity.StageMovement, error) {
	var out []*entity.StageMovement
	for _, m := range r.s.movements {
		if m.BatchID == batchID {
			out = append(out, m)
		}
	}
	return out, nil
}
func (r *memMovementRepo) ListByMaterial(materialID string, from, to *time.Time, limit, offset int) ([]*entity.StageMovement, error) {
	var out []*entity.StageMovement
	for _, m := range r.s.movements {
		if m.MaterialID == materialID {
			out = append(out, m)
		}
	}
	return out, nil
}

// memTxRunner ejecuta el callback directo sobre el store (sin transacción real).
type memTxRunner struct{ s *memStore }

func (t *memTxRunner) Run(_ context.Context, fn func(
	batchRepo repository.BatchRepository,
	productRepo repository.ProductRepository,
	itemRepo repository.InventoryItemRepository,
	movementRepo repository.StageMovementRepository,
) error) error {
	return fn(&memBatchRepo{t.s}, &memProductRepo{t.s}, &memItemRepo{t.s}, &memMovementRepo{t.s})
}

// newTestEngine construye motor + store en memoria para los tests.
func newTestEngine(feed *StageFeed) (*Engine, *memStore) {
	s := newMemStore()
	log := logger.New(logger.Config{Env: "production", Level: "error"})
	eng := NewEngine(&memTxRunner{s}, &memBatchRepo{s}, &memProductRepo{s}, &memItemRepo{s}, feed, log)
	return eng, s
}

func di(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// newTestBatch lote expandido para un producto, con materiales ya escalados.
func newTestBatch(id, code string, product *entity.Product, qty int64, materials []entity.BatchMaterial) *entity.Batch {
	return &entity.Batch{
		ID:                id,
		Code:              code,
		ProductID:         product.ID,
		ProductName:       product.Name,
		QuantityToBuild:   di(qty),
		Materials:         materials,
		SelectedProcesses: append([]string(nil), product.ManufacturingStages...),
		ProcessingStages:  make(map[string]*entity.StageRecord),
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}
