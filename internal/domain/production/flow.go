// Package production contiene los servicios de dominio puros del motor de
// producción: resolución del flujo de etapas y ley de consumo por defecto.
package production

import (
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
)

// FlowShape forma del flujo de manufactura de un producto, calculada una sola
// vez al resolver la secuencia efectiva y usada en todas las decisiones de
// ruteo (evita re-derivar la regla en cada condicional).
type FlowShape int

const (
	// FlowFullPipeline flujo multi-etapa genérico.
	FlowFullPipeline FlowShape = iota
	// FlowSingleStage una sola etapa: lo aceptado va directo a producto terminado.
	FlowSingleStage
	// FlowMoldMachineOnly exactamente Molding+Machining: Machining despacha a
	// producto terminado en lugar del pool "Machined".
	FlowMoldMachineOnly
)

// String nombre legible de la forma de flujo.
func (s FlowShape) String() string {
	switch s {
	case FlowSingleStage:
		return "SingleStage"
	case FlowMoldMachineOnly:
		return "MoldMachineOnly"
	default:
		return "FullPipeline"
	}
}

// Flow secuencia efectiva de etapas de un lote más su forma.
type Flow struct {
	Stages []string
	Shape  FlowShape
}

// ResolveFlow deriva la secuencia efectiva de etapas para un lote.
//
// Resolución en tres niveles (lotes y productos viejos pueden anteceder a
// partes del esquema): primero ManufacturingStages del producto; si está
// vacío, las etapas referenciadas por el BOM en orden canónico; si tampoco
// hay, SelectedProcesses del propio lote. El primer nivel con datos es
// autoritativo y no se cruza contra los demás.
func ResolveFlow(product *entity.Product, batch *entity.Batch) Flow {
	var stages []string
	switch {
	case product != nil && len(product.ManufacturingStages) > 0:
		stages = append(stages, product.ManufacturingStages...)
	case product != nil && len(product.BOMPerPiece) > 0:
		stages = stagesFromBOM(product.BOMPerPiece)
	case batch != nil:
		stages = append(stages, batch.SelectedProcesses...)
	}
	return Flow{Stages: stages, Shape: shapeOf(stages)}
}

// stagesFromBOM conjunto de etapas referenciadas por el BOM, en orden canónico.
func stagesFromBOM(bom []entity.BOMLine) []string {
	seen := make(map[string]bool, len(bom))
	for _, line := range bom {
		if entity.IsValidStage(line.Stage) {
			seen[line.Stage] = true
		}
	}
	var out []string
	for _, stage := range entity.CanonicalStages {
		if seen[stage] {
			out = append(out, stage)
		}
	}
	return out
}

func shapeOf(stages []string) FlowShape {
	if len(stages) == 1 {
		return FlowSingleStage
	}
	if len(stages) == 2 && contains(stages, entity.StageMolding) && contains(stages, entity.StageMachining) {
		return FlowMoldMachineOnly
	}
	return FlowFullPipeline
}

func contains(stages []string, stage string) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Contains indica si la etapa pertenece al flujo.
func (f Flow) Contains(stage string) bool {
	return contains(f.Stages, stage)
}

// IsLast indica si la etapa es la última del flujo.
func (f Flow) IsLast(stage string) bool {
	return len(f.Stages) > 0 && f.Stages[len(f.Stages)-1] == stage
}

// IsSingle indica si el flujo tiene exactamente una etapa igual a la dada.
func (f Flow) IsSingle(stage string) bool {
	return f.Shape == FlowSingleStage && len(f.Stages) == 1 && f.Stages[0] == stage
}
