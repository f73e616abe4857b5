package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"accidents/internal/engine"
	"accidents/internal/metrics"
)

// Handler maps the query engine onto the HTTP surface. It owns no data;
// the store is shared with the background loader and published once.
type Handler struct {
	store       *engine.Store
	metrics     *metrics.Metrics
	stateColumn string
	timeColumn  string
}

func NewHandler(store *engine.Store, m *metrics.Metrics, stateColumn, timeColumn string) *Handler {
	return &Handler{
		store:       store,
		metrics:     m,
		stateColumn: stateColumn,
		timeColumn:  timeColumn,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	acc := e.Group("/accidents")
	acc.GET("/sample", h.GetSample)
	acc.GET("/columns", h.GetColumns)
	acc.GET("/data/:rows/:page", h.GetData)
	acc.GET("/count_by_state", h.GetCountByState)
	acc.GET("/yearly_stats", h.GetYearlyStats)
	acc.GET("/monthly_state_counts", h.GetMonthlyStateCounts)
	acc.GET("/total_records", h.GetTotalRecords)

	e.GET("/healthz", h.GetHealth)
	e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
}

// --- HANDLERS ---

func (h *Handler) GetSample(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return h.fail(c, "sample", engine.ErrInvalidArgument)
		}
		limit = n
	}
	records, err := h.store.Sample(limit)
	if err != nil {
		return h.fail(c, "sample", err)
	}
	return h.ok(c, "sample", records)
}

func (h *Handler) GetColumns(c echo.Context) error {
	names, err := h.store.Columns()
	if err != nil {
		return h.fail(c, "columns", err)
	}
	return h.ok(c, "columns", names)
}

func (h *Handler) GetData(c echo.Context) error {
	rows, err1 := strconv.Atoi(c.Param("rows"))
	page, err2 := strconv.Atoi(c.Param("page"))
	if err1 != nil || err2 != nil {
		return h.fail(c, "data", engine.ErrInvalidArgument)
	}
	records, err := h.store.Page(rows, page)
	if err != nil {
		return h.fail(c, "data", err)
	}
	return h.ok(c, "data", records)
}

func (h *Handler) GetCountByState(c echo.Context) error {
	column := c.QueryParam("column")
	if column == "" {
		column = h.stateColumn
	}
	groups, err := h.store.CountByColumn(column)
	if err != nil {
		return h.fail(c, "count_by_state", err)
	}

	// Keep the original wire shape: the grouped value is keyed under the
	// column's own name, e.g. {"State": "CA", "AccidentCount": 2}.
	records := make([]map[string]any, len(groups))
	for i, g := range groups {
		records[i] = map[string]any{column: g.Value, "AccidentCount": g.Count}
	}
	return h.ok(c, "count_by_state", records)
}

func (h *Handler) GetYearlyStats(c echo.Context) error {
	stats, err := h.store.YearlyStats(h.timeColumn)
	if err != nil {
		return h.fail(c, "yearly_stats", err)
	}
	return h.ok(c, "yearly_stats", stats)
}

func (h *Handler) GetMonthlyStateCounts(c echo.Context) error {
	// Never fails: degrades to {maxCount: 0, data: []} while loading.
	return h.ok(c, "monthly_state_counts", h.store.MonthlyStateCounts())
}

func (h *Handler) GetTotalRecords(c echo.Context) error {
	total, err := h.store.TotalRecords()
	if err != nil {
		return h.fail(c, "total_records", err)
	}
	return h.ok(c, "total_records", map[string]int{"total": total})
}

func (h *Handler) GetHealth(c echo.Context) error {
	if !h.store.Ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "loading"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// --- RESULT MAPPING ---

func (h *Handler) ok(c echo.Context, op string, payload any) error {
	h.metrics.Queries.WithLabelValues(op, "ok").Inc()
	return c.JSON(http.StatusOK, payload)
}

func (h *Handler) fail(c echo.Context, op string, err error) error {
	status, label := statusFor(err)
	h.metrics.Queries.WithLabelValues(op, label).Inc()
	return echo.NewHTTPError(status, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrNotReady):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.Is(err, engine.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, engine.ErrColumnNotFound):
		return http.StatusNotFound, "column_not_found"
	default:
		return http.StatusInternalServerError, "error"
	}
}
