package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avioline/flight-seat-reservation/internal/engine"
)

// StateHandler exposes the seat snapshot over plain HTTP.  The payload
// is identical to the websocket `state` emit so clients can render from
// either source.
type StateHandler struct {
	Engine *engine.Engine
}

func NewStateHandler(eng *engine.Engine) *StateHandler { return &StateHandler{Engine: eng} }

// Get handles GET /state.  Read-only; always reflects committed store
// state, never a cache.
func (h *StateHandler) Get(c echo.Context) error {
	snap, err := h.Engine.Snapshot(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, snap)
}
