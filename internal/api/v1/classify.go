package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/ecocarto/internal/ecoscore"
	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/zones"
)

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	AQI  *float64 `json:"aqi"`
	NDVI *float64 `json:"ndvi"`
}

// ClassifyResponse is the classification of one reading pair.
type ClassifyResponse struct {
	AQI      float64        `json:"aqi"`
	NDVI     float64        `json:"ndvi"`
	EcoScore ecoscore.Score `json:"ecoScore"`
	Status   string         `json:"status"`
	Grade    string         `json:"grade"`
	Color    string         `json:"color"`
}

// ZonesRequest is the body of POST /zones. Without a sample the center
// reading is fetched.
type ZonesRequest struct {
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Sample *struct {
		AQI  float64 `json:"aqi"`
		NDVI float64 `json:"ndvi"`
	} `json:"sample"`
}

// ZonesResponse is a generated grid with its score totals.
type ZonesResponse struct {
	Center  environment.Sample `json:"center"`
	Zones   []zones.Zone       `json:"zones"`
	Summary ecoscore.Counts    `json:"summary"`
}

// Classify scores an aqi/ndvi pair.
func (c *Controller) Classify(ctx echo.Context) error {
	var req ClassifyRequest
	if ok, err := c.bind(ctx, &req); !ok {
		return err
	}
	if req.AQI == nil || req.NDVI == nil {
		return c.HandleError(ctx, nil, "aqi and ndvi are required", http.StatusBadRequest)
	}

	score := ecoscore.Classify(*req.AQI, *req.NDVI)
	return ctx.JSON(http.StatusOK, ClassifyResponse{
		AQI:      *req.AQI,
		NDVI:     *req.NDVI,
		EcoScore: score,
		Status:   score.StatusText(),
		Grade:    score.Grade(),
		Color:    score.Color(),
	})
}

// GetSample fetches the environmental sample for ?lat=&lng=.
func (c *Controller) GetSample(ctx echo.Context) error {
	lat, lng, err := parseCoordinates(ctx.QueryParam("lat"), ctx.QueryParam("lng"))
	if err != nil {
		return c.handleDomainError(ctx, err, "Invalid coordinates")
	}

	sample := c.Fetcher.Fetch(ctx.Request().Context(), lat, lng)
	return ctx.JSON(http.StatusOK, sample)
}

// GenerateZones builds the zone grid around a coordinate.
func (c *Controller) GenerateZones(ctx echo.Context) error {
	var req ZonesRequest
	if ok, err := c.bind(ctx, &req); !ok {
		return err
	}
	if req.Lat == nil || req.Lng == nil {
		return c.HandleError(ctx, nil, "lat and lng are required", http.StatusBadRequest)
	}
	if err := validateCoordinates(*req.Lat, *req.Lng); err != nil {
		return c.handleDomainError(ctx, err, "Invalid coordinates")
	}

	var sample environment.Sample
	if req.Sample != nil {
		sample = environment.NewSample(req.Sample.AQI, req.Sample.NDVI, 0, 0, environment.SourceProvided, time.Now())
	} else {
		sample = c.Fetcher.Fetch(ctx.Request().Context(), *req.Lat, *req.Lng)
	}

	batch := c.Zones.Generate(*req.Lat, *req.Lng, sample)
	return ctx.JSON(http.StatusOK, ZonesResponse{
		Center:  sample,
		Zones:   batch,
		Summary: zones.Summarize(batch),
	})
}

func parseCoordinates(latStr, lngStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, invalidCoordinate("lat", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return 0, 0, invalidCoordinate("lng", lngStr)
	}
	return lat, lng, validateCoordinates(lat, lng)
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return invalidCoordinate("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return invalidCoordinate("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	}
	return nil
}

func invalidCoordinate(name, value string) error {
	return errors.Newf("invalid %s %q", name, value).
		Component("api").
		Category(errors.CategoryValidation).
		Context("parameter", name).
		Build()
}
