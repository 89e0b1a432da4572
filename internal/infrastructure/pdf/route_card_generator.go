// Package pdf implementa la generación de la Hoja de Ruta del lote de
// producción (documento que acompaña al lote por las etapas de planta).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Código del lote + QR  │  Producto + Fecha           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA ETAPAS: Etapa | Aceptadas | Rechazadas | Consumo     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA INSUMOS: Material | Etapa | Cantidad | Unidad        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: lote compensatorio / lote padre, firmas            │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Produccion-api/internal/domain/entity"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// RouteCardGenerator genera la Hoja de Ruta del lote usando Maroto v2.
type RouteCardGenerator struct{}

// NewRouteCardGenerator construye el generador.
func NewRouteCardGenerator() *RouteCardGenerator { return &RouteCardGenerator{} }

// GenerateRouteCard genera el PDF de la hoja de ruta y devuelve sus bytes.
// flowStages es la secuencia efectiva de etapas del lote.
func (g *RouteCardGenerator) GenerateRouteCard(
	_ context.Context,
	batch *entity.Batch,
	flowStages []string,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Hoja de Ruta "+batch.Code, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(batch))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(sectionTitle("ETAPAS DEL LOTE"))
	m.AddRows(stagesHeaderRow())
	for _, stage := range flowStages {
		m.AddRows(stageRow(stage, batch.ProcessingStages[stage]))
	}

	m.AddRows(line.NewRow(2))
	m.AddRows(sectionTitle("INSUMOS PLANIFICADOS"))
	m.AddRows(materialsHeaderRow())
	for _, material := range batch.Materials {
		m.AddRows(materialRow(material))
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(batch))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar hoja de ruta: %w", err)
	}
	return doc.GetBytes(), nil
}

// headerRow: código del lote + QR (izq) y producto + fecha (der).
func headerRow(batch *entity.Batch) core.Row {
	fecha := batch.CreatedAt.Format("02/01/2006")
	return row.New(24).Add(
		col.New(2).Add(
			code.NewQr(batch.Code, props.Rect{Percent: 100}),
		),
		col.New(5).Add(
			text.New("HOJA DE RUTA", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(batch.Code, props.Text{
				Style: fontstyle.Bold, Size: 13, Top: 6,
			}),
			text.New("Fecha: "+fecha, props.Text{
				Size: 8, Top: 15, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(batch.ProductName, props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Right, Top: 4,
			}),
			text.New("Cantidad a fabricar: "+batch.QuantityToBuild.String(), props.Text{
				Size: 9, Align: align.Right, Top: 12, Color: colorGray,
			}),
		),
	)
}

func sectionTitle(title string) core.Row {
	return row.New(7).Add(
		col.New(12).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 1}),
		),
	)
}

func stagesHeaderRow() core.Row {
	header := props.Text{Style: fontstyle.Bold, Size: 8, Top: 1}
	right := header
	right.Align = align.Right
	return row.New(6).Add(
		col.New(4).Add(text.New("Etapa", header)),
		col.New(2).Add(text.New("Aceptadas", right)),
		col.New(2).Add(text.New("Rechazadas", right)),
		col.New(2).Add(text.New("Consumo", right)),
		col.New(2).Add(text.New("Estado", right)),
	)
}

func stageRow(stage string, rec *entity.StageRecord) core.Row {
	cell := props.Text{Size: 8, Top: 1}
	right := cell
	right.Align = align.Right

	accepted, rejected, consumption, estado := "—", "—", "—", "Pendiente"
	if rec != nil && rec.Completed {
		accepted = rec.Accepted.String()
		rejected = rec.Rejected.String()
		consumption = rec.ActualConsumption.String()
		estado = "Completada"
	}
	return row.New(6).Add(
		col.New(4).Add(text.New(stage, cell)),
		col.New(2).Add(text.New(accepted, right)),
		col.New(2).Add(text.New(rejected, right)),
		col.New(2).Add(text.New(consumption, right)),
		col.New(2).Add(text.New(estado, right)),
	)
}

func materialsHeaderRow() core.Row {
	header := props.Text{Style: fontstyle.Bold, Size: 8, Top: 1}
	right := header
	right.Align = align.Right
	return row.New(6).Add(
		col.New(6).Add(text.New("Material", header)),
		col.New(2).Add(text.New("Etapa", header)),
		col.New(2).Add(text.New("Cantidad", right)),
		col.New(2).Add(text.New("Unidad", right)),
	)
}

func materialRow(material entity.BatchMaterial) core.Row {
	cell := props.Text{Size: 8, Top: 1}
	right := cell
	right.Align = align.Right
	return row.New(5).Add(
		col.New(6).Add(text.New(material.Name, cell)),
		col.New(2).Add(text.New(material.Stage, cell)),
		col.New(2).Add(text.New(material.Quantity.String(), right)),
		col.New(2).Add(text.New(material.Unit, right)),
	)
}

// footerRow: origen del lote (compensatorio o planificado) y espacio de firmas.
func footerRow(batch *entity.Batch) core.Row {
	origen := "Lote planificado"
	if batch.AutoCreatedFromTestingRejected {
		origen = "Lote compensatorio (rechazo en Testing)"
		if batch.ParentBatchID != "" {
			origen += " — lote padre " + batch.ParentBatchID
		}
	}
	return row.New(16).Add(
		col.New(6).Add(
			text.New(origen, props.Text{Size: 8, Color: colorGray, Top: 2}),
		),
		col.New(3).Add(
			text.New("Supervisor: ______________", props.Text{Size: 8, Top: 8}),
		),
		col.New(3).Add(
			text.New("Operario: ______________", props.Text{Size: 8, Top: 8}),
		),
	)
}
