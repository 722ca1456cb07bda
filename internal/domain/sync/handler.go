package sync

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teleclinic/teleclinic/internal/platform/auth"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sync/consultations", h.Sync)
}

// decodeBatch accepts the enveloped form {"items": [...]} and, for older
// clients, a bare item array.
func decodeBatch(body []byte) ([]Item, error) {
	var req struct {
		Items *[]Item `json:"items"`
	}
	if err := json.Unmarshal(body, &req); err == nil && req.Items != nil {
		return *req.Items, nil
	}
	var items []Item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Sync accepts an ordered batch of offline consultation changes and returns
// one outcome per item in the same order.
func (h *Handler) Sync(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := decodeBatch(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest,
			`request body must be {"items": [...]} or an item array`)
	}

	results, err := h.engine.Reconcile(c.Request().Context(), userID, items)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, Response{Results: results})
}
