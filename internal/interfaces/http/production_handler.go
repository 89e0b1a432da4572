package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/Produccion-api/internal/application/dto"
	"github.com/jhoicas/Produccion-api/internal/application/production"
	"github.com/jhoicas/Produccion-api/internal/application/usecase"
	"github.com/jhoicas/Produccion-api/internal/domain"
	"github.com/jhoicas/Produccion-api/internal/domain/entity"
)

// ProductionHandler maneja el avance de etapas: entrega individual, cierre
// masivo de etapa, fin de ciclo y la suscripción SSE a la cola de una etapa
// (protegido).
type ProductionHandler struct {
	engine  *production.Engine
	batchUC *usecase.BatchUseCase
	feed    *production.StageFeed
}

// NewProductionHandler construye el handler.
func NewProductionHandler(engine *production.Engine, batchUC *usecase.BatchUseCase, feed *production.StageFeed) *ProductionHandler {
	return &ProductionHandler{engine: engine, batchUC: batchUC, feed: feed}
}

// SubmitStage godoc
// @Summary      Entregar una etapa de un lote
// @Tags         production
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id     path  string  true  "ID del lote"
// @Param        stage  path  string  true  "Etapa (Molding, Machining, Assembling, Testing)"
// @Param        body   body  dto.SubmitStageRequest  true  "Aceptadas, rechazadas y consumos"
// @Success      200    {object}  dto.StageResultResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      404    {object}  dto.ErrorResponse
// @Failure      409    {object}  dto.ErrorResponse
// @Router       /api/production/batches/{id}/stages/{stage} [post]
func (h *ProductionHandler) SubmitStage(c *fiber.Ctx) error {
	var in dto.SubmitStageRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.engine.SubmitStage(c.Context(), GetUserID(c), production.StageSubmission{
		BatchID:                c.Params("id"),
		Stage:                  c.Params("stage"),
		Accepted:               in.Accepted,
		Rejected:               in.Rejected,
		MaterialConsumptions:   in.MaterialConsumptions,
		ConfirmedGoodMaterials: in.ConfirmedGoodMaterials,
	})
	if err != nil {
		return productionError(c, err)
	}
	return c.JSON(toStageResultResponse(result))
}

// FinishStage godoc
// @Summary      Cerrar una etapa para varios lotes (con prechequeo de stock)
// @Tags         production
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        stage  path  string  true  "Etapa"
// @Param        body   body  dto.BulkStageRequest  true  "Entregas por lote"
// @Success      200    {array}  dto.BulkOutcomeResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Failure      409    {object}  dto.ErrorResponse
// @Router       /api/production/stages/{stage}/finish [post]
func (h *ProductionHandler) FinishStage(c *fiber.Ctx) error {
	subs, err := h.parseBulk(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	outcomes, err := h.engine.FinishStage(c.Context(), GetUserID(c), c.Params("stage"), subs)
	if err != nil {
		return productionError(c, err)
	}
	return c.JSON(toBulkResponse(outcomes))
}

// EndCycle godoc
// @Summary      Fin de ciclo: cerrar una etapa sin prechequeo de stock
// @Tags         production
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        stage  path  string  true  "Etapa"
// @Param        body   body  dto.BulkStageRequest  true  "Entregas por lote"
// @Success      200    {array}  dto.BulkOutcomeResponse
// @Failure      400    {object}  dto.ErrorResponse
// @Router       /api/production/stages/{stage}/end-cycle [post]
func (h *ProductionHandler) EndCycle(c *fiber.Ctx) error {
	subs, err := h.parseBulk(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	outcomes := h.engine.EndCycle(c.Context(), GetUserID(c), c.Params("stage"), subs)
	return c.JSON(toBulkResponse(outcomes))
}

// ListMaterialMovements godoc
// @Summary      Listar movimientos de un material
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del material"
// @Param        from    query  string  false  "Desde (RFC3339)"
// @Param        to      query  string  false  "Hasta (RFC3339)"
// @Param        limit   query  int     false  "Límite"   default(20)
// @Param        offset  query  int     false  "Offset"   default(0)
// @Success      200     {array}  dto.StageMovementResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /api/production/materials/{id}/movements [get]
func (h *ProductionHandler) ListMaterialMovements(c *fiber.Ctx) error {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}
	limit, offset := pagination(c)
	out, err := h.batchUC.ListMovementsByMaterial(c.Params("id"), from, to, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(out)
}

// StreamStageFeed godoc
// @Summary      Suscribirse a la cola de trabajo de una etapa (SSE)
// @Tags         production
// @Security     Bearer
// @Produce      text/event-stream
// @Param        stage  path  string  true  "Etapa (Molding, Machining, Assembling, Testing)"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/production/stages/{stage}/feed [get]
func (h *ProductionHandler) StreamStageFeed(c *fiber.Ctx) error {
	stage := c.Params("stage")
	if !entity.IsValidStage(stage) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "etapa inválida"})
	}
	sub := h.feed.Subscribe(stage)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Unsubscribe()
		streamEvents(w, sub.Events())
	}))
	return nil
}

// streamEvents escribe cada novedad de la cola como un frame SSE y corta
// cuando el canal se cierra o el cliente desconecta (falla el flush).
func streamEvents(w *bufio.Writer, events <-chan production.StageEvent) {
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

func (h *ProductionHandler) parseBulk(c *fiber.Ctx) ([]production.StageSubmission, error) {
	var in dto.BulkStageRequest
	if err := c.BodyParser(&in); err != nil {
		return nil, err
	}
	subs := make([]production.StageSubmission, 0, len(in.Batches))
	for _, item := range in.Batches {
		subs = append(subs, production.StageSubmission{
			BatchID:                item.BatchID,
			Accepted:               item.Accepted,
			Rejected:               item.Rejected,
			MaterialConsumptions:   item.MaterialConsumptions,
			ConfirmedGoodMaterials: item.ConfirmedGoodMaterials,
		})
	}
	return subs, nil
}

// productionError traduce los errores del motor a HTTP.
func productionError(c *fiber.Ctx, err error) error {
	var shortage *production.StockShortageError
	if errors.As(err, &shortage) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: shortage.Error(),
			Details: shortage.Shortages,
		})
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "lote no encontrado"})
	case errors.Is(err, domain.ErrStageAlreadyFinalized):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "STAGE_FINALIZED", Message: "la etapa ya fue finalizada"})
	case errors.Is(err, domain.ErrStageNotInFlow):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "STAGE_NOT_IN_FLOW", Message: "la etapa no pertenece al flujo del lote"})
	case errors.Is(err, domain.ErrNothingToRework):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "NOTHING_TO_REWORK", Message: "todos los insumos de ensamble fueron confirmados buenos; no hay nada que reprocesar"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "etapa o cantidades inválidas"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

func toStageResultResponse(result *production.StageResult) dto.StageResultResponse {
	out := dto.StageResultResponse{
		BatchID:      result.Batch.ID,
		BatchCode:    result.Batch.Code,
		Status:       result.Status,
		RoutedTo:     result.RoutedTo,
		Consumptions: result.Consumptions,
	}
	if result.CompensatingBatch != nil {
		out.CompensatingBatchID = result.CompensatingBatch.ID
	}
	return out
}

func toBulkResponse(outcomes []production.BatchOutcome) []dto.BulkOutcomeResponse {
	out := make([]dto.BulkOutcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		item := dto.BulkOutcomeResponse{BatchID: o.BatchID}
		if o.Err != nil {
			item.Error = o.Err.Error()
		}
		if o.Result != nil {
			r := toStageResultResponse(o.Result)
			item.Result = &r
		}
		out = append(out, item)
	}
	return out
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
