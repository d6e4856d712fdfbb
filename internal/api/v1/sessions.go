package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/ecocarto/internal/api/middleware"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/presentation"
	"github.com/tphakala/ecocarto/internal/report"
	"github.com/tphakala/ecocarto/internal/session"
)

// QueryRequest carries a search query.
type QueryRequest struct {
	Query string `json:"query"`
}

// PickRequest selects a suggestion.
type PickRequest struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Name string   `json:"name"`
}

// ClickRequest is a map click.
type ClickRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// YearRequest selects a historical year.
type YearRequest struct {
	Year *int `json:"year"`
}

func (c *Controller) initSessionRoutes() {
	g := c.Group.Group("/sessions")

	g.POST("", c.CreateSession)
	g.GET("/:id", c.GetSession)
	g.DELETE("/:id", c.DeleteSession)

	g.POST("/:id/search", c.SearchSubmit)
	g.POST("/:id/suggestions/pick", c.PickSuggestion)
	g.PUT("/:id/query", c.ChangeQuery)
	g.GET("/:id/suggestions", c.GetSuggestions)
	g.POST("/:id/click", c.MapClick)
	g.PUT("/:id/year", c.ChangeYear)
	g.POST("/:id/historical/toggle", c.ToggleHistorical)

	g.GET("/:id/map", c.GetMap)
	g.GET("/:id/scorecard", c.GetScoreCard)
	g.GET("/:id/history", c.GetHistory)
	g.GET("/:id/recommendations", c.GetRecommendations)
	g.GET("/:id/report", c.DownloadReport)
}

// session resolves :id, writing a 404 when it is unknown.
func (c *Controller) session(ctx echo.Context) (*session.Session, error) {
	s, err := c.Sessions.Get(ctx.Param("id"))
	if err != nil {
		return nil, c.handleDomainError(ctx, err, "Session not found")
	}
	return s, nil
}

// CreateSession opens a session.
func (c *Controller) CreateSession(ctx echo.Context) error {
	s, err := c.Sessions.Create()
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to create session")
	}
	return ctx.JSON(http.StatusCreated, s.State())
}

// GetSession returns the session state.
func (c *Controller) GetSession(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.State())
}

// DeleteSession closes a session.
func (c *Controller) DeleteSession(ctx echo.Context) error {
	if err := c.Sessions.Delete(ctx.Param("id")); err != nil {
		return c.handleDomainError(ctx, err, "Session not found")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// SearchSubmit geocodes a query and selects the best match.
func (c *Controller) SearchSubmit(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	var req QueryRequest
	if ok, err := c.bind(ctx, &req); !ok {
		return err
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.HandleError(ctx, nil, "query is required", http.StatusBadRequest)
	}

	if err := s.OnSearchSubmit(ctx.Request().Context(), req.Query); err != nil {
		return c.handleDomainError(ctx, err, "Search failed")
	}
	return ctx.JSON(http.StatusOK, s.State())
}

// PickSuggestion selects a suggestion.
func (c *Controller) PickSuggestion(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	var req PickRequest
	if ok, err := c.bind(ctx, &req); !ok {
		return err
	}
	if req.Lat == nil || req.Lng == nil {
		return c.HandleError(ctx, nil, "lat and lng are required", http.StatusBadRequest)
	}
	if err := validateCoordinates(*req.Lat, *req.Lng); err != nil {
		return c.handleDomainError(ctx, err, "Invalid coordinates")
	}

	loc := geocoding.Location{Lat: *req.Lat, Lng: *req.Lng, Name: req.Name}
	if strings.TrimSpace(loc.Name) == "" {
		loc.Name = geocoding.CoordinateName(loc.Lat, loc.Lng)
	}
	if err := s.OnSuggestionPicked(ctx.Request().Context(), loc); err != nil {
		return c.handleDomainError(ctx, err, "Failed to select suggestion")
	}
	return ctx.JSON(http.StatusOK, s.State())
}

// ChangeQuery records the query text and schedules suggestions.
func (c *Controller) ChangeQuery(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	var req QueryRequest
	if ok, err := c.bind(ctx, &req); !ok {
		return err
	}

	if err := s.OnQueryChanged(req.Query); err != nil {
		return c.handleDomainError(ctx, err, "Failed to update query")
	}
	return ctx.JSON(http.StatusAccepted, s.State())
}

// GetSuggestions returns the current suggestion list.
func (c *Controller) GetSuggestions(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	st := s.State()
	return ctx.JSON(http.StatusOK, map[string]any{
		"query":       st.Query,
		"suggestions": presentation.SuggestionList(st.Suggestions),
	})
}

// MapClick selects a point on the map.
func (c *Controller) MapClick(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	var req ClickRequest
	if ok, err := c.bind(ctx, &req); !ok {
		return err
	}
	if req.Lat == nil || req.Lng == nil {
		return c.HandleError(ctx, nil, "lat and lng are required", http.StatusBadRequest)
	}
	if err := validateCoordinates(*req.Lat, *req.Lng); err != nil {
		return c.handleDomainError(ctx, err, "Invalid coordinates")
	}

	if err := s.OnMapClicked(ctx.Request().Context(), *req.Lat, *req.Lng); err != nil {
		return c.handleDomainError(ctx, err, "Map click failed")
	}
	return ctx.JSON(http.StatusOK, s.State())
}

// ChangeYear selects the historical readout year.
func (c *Controller) ChangeYear(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	var req YearRequest
	if ok, err := c.bind(ctx, &req); !ok {
		return err
	}
	if req.Year == nil {
		return c.HandleError(ctx, nil, "year is required", http.StatusBadRequest)
	}

	if err := s.OnYearChanged(*req.Year); err != nil {
		return c.handleDomainError(ctx, err, "Invalid year")
	}
	st := s.State()
	return ctx.JSON(http.StatusOK, presentation.NewHistoryView(st.History, st.SelectedYear, st.ShowHistorical))
}

// ToggleHistorical flips the historical chart visibility.
func (c *Controller) ToggleHistorical(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	visible, err := s.OnToggleHistorical()
	if err != nil {
		return c.handleDomainError(ctx, err, "Failed to toggle historical view")
	}
	return ctx.JSON(http.StatusOK, map[string]bool{"showHistorical": visible})
}

// GetMap returns the map surface snapshot.
func (c *Controller) GetMap(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	snap, err := s.Surface().Snapshot()
	if err != nil {
		return c.handleDomainError(ctx, err, "Map unavailable")
	}
	return ctx.JSON(http.StatusOK, snap)
}

// GetScoreCard returns the eco score card of the selected location.
func (c *Controller) GetScoreCard(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	st := s.State()

	var (
		name   string
		sample environment.Sample
	)
	if st.SelectedLocation != nil {
		name = st.SelectedLocation.Name
	}
	if st.CurrentSample != nil {
		sample = *st.CurrentSample
	}
	return ctx.JSON(http.StatusOK, presentation.NewScoreCard(name, sample))
}

// GetHistory returns the historical chart and readout.
func (c *Controller) GetHistory(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	st := s.State()
	return ctx.JSON(http.StatusOK, presentation.NewHistoryView(st.History, st.SelectedYear, st.ShowHistorical))
}

// GetRecommendations returns the plantation recommendations card.
func (c *Controller) GetRecommendations(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report.NewCard(s.State().Zones))
}

// DownloadReport serves the plantation report as a JSON attachment.
func (c *Controller) DownloadReport(ctx echo.Context) error {
	s, err := c.session(ctx)
	if s == nil {
		return err
	}
	export, err := s.ExportReport(ctx.Request().Context())
	if err != nil {
		return c.handleDomainError(ctx, err, "No report available")
	}

	if export.ArchiveID != "" {
		ctx.Response().Header().Set(middleware.HeaderReportID, export.ArchiveID)
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.Filename))
	return ctx.Blob(http.StatusOK, report.ContentType, export.Body)
}
