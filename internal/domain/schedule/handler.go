package schedule

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler exposes the due-work feed consumed by an external notification
// dispatcher. The core decides what is due; delivery is not its concern.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/due", h.Due)
	api.GET("/overdue", h.Overdue)
}

func (h *Handler) asOf(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("as_of")
	if raw == "" {
		return h.svc.now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid as_of, want RFC3339")
	}
	return t, nil
}

func (h *Handler) Due(c echo.Context) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return err
	}
	occs, err := h.svc.Due(c.Request().Context(), asOf)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"as_of": asOf,
		"data":  occs,
	})
}

func (h *Handler) Overdue(c echo.Context) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return err
	}
	occs, err := h.svc.Overdue(c.Request().Context(), asOf)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"as_of":         asOf,
		"grace_minutes": int(h.svc.Grace().Minutes()),
		"data":          occs,
	})
}
