package lifecycle

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain/schedule"
	"github.com/clinicore/clinicore/pkg/pagination"
)

// Handler exposes the lifecycle engine over HTTP.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/entities", h.CreateEntity)
	api.GET("/entities", h.ListEntities)
	api.GET("/entities/:id", h.GetEntity)
	api.POST("/entities/:id/commands", h.SubmitCommand)
	api.GET("/entities/:id/history", h.GetHistory)
	api.GET("/entities/:id/upcoming", h.GetUpcoming)
	api.POST("/occurrences/:id/resolve", h.ResolveOccurrence)
}

type createEntityRequest struct {
	Kind      Kind           `json:"kind"`
	PatientID uuid.UUID      `json:"patient_id"`
	Title     string         `json:"title"`
	Actor     string         `json:"actor"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Rule      *schedule.Rule `json:"rule,omitempty"`
}

func (h *Handler) CreateEntity(c echo.Context) error {
	var req createEntityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	entity, err := h.engine.Create(c.Request().Context(), CreateParams{
		Kind:      req.Kind,
		PatientID: req.PatientID,
		Title:     req.Title,
		Actor:     req.Actor,
		ExpiresAt: req.ExpiresAt,
		Rule:      req.Rule,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, entity)
}

type commandRequest struct {
	Command Command `json:"command"`
	Actor   string  `json:"actor"`
	Reason  *string `json:"reason,omitempty"`
}

func (h *Handler) SubmitCommand(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entity id")
	}
	var req commandRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Command == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "command is required")
	}

	entity, err := h.engine.Apply(c.Request().Context(), id, req.Command, req.Actor, req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, entity)
}

func (h *Handler) GetEntity(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entity id")
	}
	entity, err := h.engine.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, entity)
}

func (h *Handler) ListEntities(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := ListFilter{
		Kind:   Kind(c.QueryParam("kind")),
		State:  State(c.QueryParam("state")),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	if raw := c.QueryParam("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		filter.PatientID = patientID
	}

	entities, total, err := h.engine.List(c.Request().Context(), filter)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entities, total, p.Limit, p.Offset))
}

func (h *Handler) GetHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entity id")
	}
	events, err := h.engine.History(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": events})
}

func (h *Handler) GetUpcoming(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid entity id")
	}
	horizon := 7 * 24 * time.Hour
	if raw := c.QueryParam("horizon"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid horizon, want a positive duration like 24h")
		}
		horizon = d
	}

	occs, err := h.engine.Upcoming(c.Request().Context(), id, horizon)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"horizon": horizon.String(),
		"data":    occs,
	})
}

type resolveRequest struct {
	EntityID uuid.UUID        `json:"entity_id"`
	Outcome  schedule.Outcome `json:"outcome"`
	Actor    string           `json:"actor"`
	Reason   *string          `json:"reason,omitempty"`
}

func (h *Handler) ResolveOccurrence(c echo.Context) error {
	occID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid occurrence id")
	}
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.EntityID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "entity_id is required")
	}

	err = h.engine.ResolveOccurrence(c.Request().Context(), req.EntityID, occID, req.Outcome, req.Actor, req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"occurrence_id": occID,
		"outcome":       req.Outcome,
	})
}

// mapError translates domain errors into HTTP responses. Unknown errors
// become 500s with a generic message; the real cause is in the logs.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, schedule.ErrRuleNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrReasonRequired):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrEntityTerminal),
		errors.Is(err, schedule.ErrAlreadyResolved):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrStorageUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
