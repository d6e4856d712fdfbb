package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/ecocarto/internal/datastore"
)

// ReportResponse is an archived report with its document inlined.
type ReportResponse struct {
	*datastore.ReportRecord
	Report json.RawMessage `json:"report,omitempty"`
}

func (c *Controller) initReportRoutes() {
	g := c.Group.Group("/reports")
	g.GET("", c.ListReports)
	g.GET("/:id", c.GetReport)
}

// ListReports pages through archived reports, newest first.
func (c *Controller) ListReports(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "Report archive is disabled", http.StatusServiceUnavailable)
	}

	limit, err := intQueryParam(ctx, "limit", 0)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid limit", http.StatusBadRequest)
	}
	offset, err := intQueryParam(ctx, "offset", 0)
	if err != nil || offset < 0 {
		return c.HandleError(ctx, err, "Invalid offset", http.StatusBadRequest)
	}

	records, err := c.DS.ListReports(ctx.Request().Context(), limit, offset)
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to list reports")
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"reports": records,
		"count":   len(records),
		"offset":  offset,
	})
}

// GetReport returns one archived report.
func (c *Controller) GetReport(ctx echo.Context) error {
	if c.DS == nil {
		return c.HandleError(ctx, nil, "Report archive is disabled", http.StatusServiceUnavailable)
	}

	record, err := c.DS.GetReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.handleDomainError(ctx, err, "Report not found")
	}

	resp := ReportResponse{ReportRecord: record}
	if json.Valid([]byte(record.Body)) {
		resp.Report = json.RawMessage(record.Body)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func intQueryParam(ctx echo.Context, name string, fallback int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
