package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Etapas canónicas de manufactura, en orden de proceso.
const (
	StageMolding    = "Molding"
	StageMachining  = "Machining"
	StageAssembling = "Assembling"
	StageTesting    = "Testing"
)

// CanonicalStages orden canónico de las cuatro etapas.
var CanonicalStages = []string{StageMolding, StageMachining, StageAssembling, StageTesting}

// IsValidStage indica si el nombre corresponde a una etapa canónica.
func IsValidStage(stage string) bool {
	for _, s := range CanonicalStages {
		if s == stage {
			return true
		}
	}
	return false
}

// Estados derivados de un lote de producción.
const (
	BatchStatusPlanned    = "Planned"
	BatchStatusInProgress = "In Progress"
	BatchStatusOnHold     = "On Hold"
	BatchStatusCompleted  = "Completed"
)

// StageRecord registro de una etapa dentro de un lote.
// Completed pasa a true una sola vez (tras aceptar+rechazar > 0) y nunca se resetea.
// MaterialConsumptions solo se llena en etapas distintas de Testing.
type StageRecord struct {
	Accepted             decimal.Decimal            `json:"accepted"`
	Rejected             decimal.Decimal            `json:"rejected"`
	ActualConsumption    decimal.Decimal            `json:"actual_consumption"`
	Completed            bool                       `json:"completed"`
	StartedAt            *time.Time                 `json:"started_at,omitempty"`
	FinishedAt           *time.Time                 `json:"finished_at,omitempty"`
	MaterialConsumptions map[string]decimal.Decimal `json:"material_consumptions,omitempty"`
}

// BatchMaterial material del BOM expandido del lote, ya escalado a QuantityToBuild.
type BatchMaterial struct {
	MaterialID string          `json:"material_id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
	Stage      string          `json:"stage"`
}

// Batch lote de producción. Se crea al planificar una corrida (manual o por el
// generador de lotes compensatorios) y se muta al procesar cada etapa.
type Batch struct {
	ID              string
	Code            string // código legible, ej. LOTE-20260830-0001
	ProductID       string
	ProductName     string
	QuantityToBuild decimal.Decimal
	Materials       []BatchMaterial
	// SelectedProcesses subconjunto ordenado de las etapas canónicas elegido para este lote.
	SelectedProcesses []string
	// ProcessingStages registro por etapa canónica.
	ProcessingStages map[string]*StageRecord
	// AutoCreatedFromTestingRejected marca un lote creado por rechazo en Testing.
	// Su cantidad aceptada en Assembling queda bloqueada al QuantityToBuild.
	AutoCreatedFromTestingRejected bool
	ParentBatchID                  string
	CreatedBy                      string
	CreatedAt                      time.Time
	UpdatedAt                      time.Time
}

// StageRecordFor devuelve el registro de la etapa, creándolo vacío si no existe.
func (b *Batch) StageRecordFor(stage string) *StageRecord {
	if b.ProcessingStages == nil {
		b.ProcessingStages = make(map[string]*StageRecord)
	}
	rec, ok := b.ProcessingStages[stage]
	if !ok || rec == nil {
		rec = &StageRecord{
			Accepted:          decimal.Zero,
			Rejected:          decimal.Zero,
			ActualConsumption: decimal.Zero,
		}
		b.ProcessingStages[stage] = rec
	}
	return rec
}

// MaterialsForStage devuelve los materiales del lote asignados a una etapa.
func (b *Batch) MaterialsForStage(stage string) []BatchMaterial {
	var out []BatchMaterial
	for _, m := range b.Materials {
		if m.Stage == stage {
			out = append(out, m)
		}
	}
	return out
}

// statusStages etapas sobre las que se derivan estado y etapa actual. Un lote
// compensatorio re-entra a mitad del pipeline: sus procesos seleccionados
// mandan sobre las etapas del producto, que sí gobiernan el ruteo.
func (b *Batch) statusStages(flowStages []string) []string {
	if b.AutoCreatedFromTestingRejected && len(b.SelectedProcesses) > 0 {
		return b.SelectedProcesses
	}
	if len(flowStages) == 0 {
		return b.SelectedProcesses
	}
	return flowStages
}

// Status deriva el estado del lote a partir de las etapas del flujo efectivo.
// No se persiste como autoritativo: se recalcula siempre.
func (b *Batch) Status(flowStages []string) string {
	total, done := 0, 0
	for _, stage := range b.statusStages(flowStages) {
		total++
		if rec, ok := b.ProcessingStages[stage]; ok && rec != nil && rec.Completed {
			done++
		}
	}
	switch {
	case total == 0 || done == 0:
		return BatchStatusPlanned
	case done == total:
		return BatchStatusCompleted
	default:
		return BatchStatusInProgress
	}
}

// CurrentStage devuelve la primera etapa del flujo aún no completada.
// ok=false si todas las etapas están completas.
func (b *Batch) CurrentStage(flowStages []string) (string, bool) {
	for _, stage := range b.statusStages(flowStages) {
		rec, okRec := b.ProcessingStages[stage]
		if !okRec || rec == nil || !rec.Completed {
			return stage, true
		}
	}
	return "", false
}
