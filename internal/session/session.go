package session

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/ecocarto/internal/environment"
	"github.com/tphakala/ecocarto/internal/errors"
	"github.com/tphakala/ecocarto/internal/geocoding"
	"github.com/tphakala/ecocarto/internal/history"
	"github.com/tphakala/ecocarto/internal/logger"
	"github.com/tphakala/ecocarto/internal/mapview"
	"github.com/tphakala/ecocarto/internal/zones"
)

// State is a point-in-time copy of a session. Presentation works from
// State values and never touches the session itself.
type State struct {
	ID               string                 `json:"id"`
	Query            string                 `json:"query"`
	SelectedLocation *geocoding.Location    `json:"selectedLocation"`
	CurrentSample    *environment.Sample    `json:"currentSample"`
	Zones            []zones.Zone           `json:"zones"`
	History          *history.Series        `json:"-"`
	SelectedYear     int                    `json:"selectedYear"`
	ShowHistorical   bool                   `json:"showHistorical"`
	Suggestions      []geocoding.Suggestion `json:"suggestions"`
	Loading          bool                   `json:"loading"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// Session is the state holder for one interactive map. All event methods
// are safe for concurrent use. Only the response to the most recent
// location request is applied; older responses are discarded.
type Session struct {
	id     string
	config Config
	deps   Dependencies

	ctx    context.Context // cancelled on Close; parents debounced work
	cancel context.CancelFunc
	wg     sync.WaitGroup

	surface *mapview.Surface

	// commitMu serializes apply so the stale check, the state swap, the
	// surface update and the publish happen as one step.
	commitMu sync.Mutex

	mu             sync.Mutex
	closed         bool
	query          string
	location       *geocoding.Location
	sample         *environment.Sample
	zoneBatch      []zones.Zone
	series         *history.Series
	year           int
	showHistorical bool
	suggestions    []geocoding.Suggestion
	locationSeq    uint64
	suggestSeq     uint64
	inFlight       int
	debounce       *time.Timer
	updatedAt      time.Time
}

// New opens a session and its map surface. Close must be called to release them.
func New(id string, config Config, deps Dependencies) (*Session, error) {
	if deps.Fetcher == nil || deps.Geocoder == nil {
		return nil, errors.Newf("session requires a sample fetcher and a geocoder").
			Component("session").
			Category(errors.CategoryConfiguration).
			Build()
	}
	defaults := DefaultConfig()
	if config.StartYear == 0 && config.EndYear == 0 {
		config.StartYear, config.EndYear = defaults.StartYear, defaults.EndYear
	}
	if config.StartYear > config.EndYear {
		return nil, errors.Newf("invalid year range %d-%d", config.StartYear, config.EndYear).
			Component("session").
			Category(errors.CategoryValidation).
			Build()
	}
	if config.MinQueryLength <= 0 {
		config.MinQueryLength = defaults.MinQueryLength
	}
	if config.SuggestionLimit <= 0 {
		config.SuggestionLimit = defaults.SuggestionLimit
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}
	if config.DefaultCenter == (mapview.Marker{}) {
		config.DefaultCenter = defaults.DefaultCenter
	}
	if deps.Zones == nil {
		deps.Zones = zones.NewGenerator(deps.Random, deps.Metrics)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		config:    config,
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		surface:   mapview.Open(config.DefaultCenter, config.Zoom),
		year:      config.EndYear,
		updatedAt: time.Now(),
	}
	s.surface.OnClick(func(lat, lng float64) {
		if err := s.OnMapClicked(s.ctx, lat, lng); err != nil {
			GetLogger().Debug("map click ignored", logger.String("session_id", s.id), logger.Error(err))
		}
	})

	deps.Metrics.SessionOpened()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Surface returns the session's map surface.
func (s *Session) Surface() *mapview.Surface { return s.surface }

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:             s.id,
		Query:          s.query,
		Zones:          append([]zones.Zone(nil), s.zoneBatch...),
		History:        s.series,
		SelectedYear:   s.year,
		ShowHistorical: s.showHistorical,
		Suggestions:    append([]geocoding.Suggestion(nil), s.suggestions...),
		Loading:        s.inFlight > 0,
		UpdatedAt:      s.updatedAt,
	}
	if s.location != nil {
		loc := *s.location
		st.SelectedLocation = &loc
	}
	if s.sample != nil {
		sample := *s.sample
		st.CurrentSample = &sample
	}
	return st
}

// OnSearchSubmit geocodes the query and selects the best match. A blank
// query is ignored. Geocoding failures leave the state unchanged.
func (s *Session) OnSearchSubmit(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	seq, err := s.beginLocation(EventSearch, func() {
		s.query = query
		s.stopDebounceLocked()
		s.suggestions = nil
		s.suggestSeq++
	})
	if err != nil {
		return err
	}
	defer s.endRequest()

	loc, err := s.deps.Geocoder.Search(ctx, query)
	if err != nil {
		GetLogger().Warn("search failed",
			logger.String("session_id", s.id),
			logger.String("query", query),
			logger.String("reason", geocoding.FailureReason(err)),
			logger.Error(err))
		return nil
	}

	s.selectLocation(ctx, seq, loc)
	return nil
}

// OnSuggestionPicked selects a suggestion. The query becomes the short
// label of its display name.
func (s *Session) OnSuggestionPicked(ctx context.Context, loc geocoding.Location) error {
	seq, err := s.beginLocation(EventSuggestionPick, func() {
		s.query = geocoding.ShortLabel(loc.Name)
		s.stopDebounceLocked()
		s.suggestions = nil
		s.suggestSeq++
	})
	if err != nil {
		return err
	}
	defer s.endRequest()

	s.selectLocation(ctx, seq, loc)
	return nil
}

// OnMapClicked selects the clicked point. Reverse geocoding and the
// sample fetch run concurrently; a failed reverse lookup names the point
// by its coordinates.
func (s *Session) OnMapClicked(ctx context.Context, lat, lng float64) error {
	seq, err := s.beginLocation(EventMapClick, nil)
	if err != nil {
		return err
	}
	defer s.endRequest()

	start := time.Now()
	var (
		name   string
		sample environment.Sample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name = s.reverseName(gctx, lat, lng)
		return nil
	})
	g.Go(func() error {
		sample = s.deps.Fetcher.Fetch(gctx, lat, lng)
		return nil
	})
	_ = g.Wait()

	s.apply(ctx, seq, geocoding.Location{Lat: lat, Lng: lng, Name: name}, sample, start)
	return nil
}

// OnYearChanged selects the year shown by the historical readout.
func (s *Session) OnYearChanged(year int) error {
	if year < s.config.StartYear || year > s.config.EndYear {
		return errors.Newf("year %d outside %d-%d", year, s.config.StartYear, s.config.EndYear).
			Component("session").
			Category(errors.CategoryValidation).
			Context("year", year).
			Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}
	s.year = year
	s.touchLocked()
	s.deps.Metrics.RecordSessionEvent(EventYearChange)
	return nil
}

// OnToggleHistorical flips the historical chart visibility and returns the new value.
func (s *Session) OnToggleHistorical() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return false, err
	}
	s.showHistorical = !s.showHistorical
	s.touchLocked()
	s.deps.Metrics.RecordSessionEvent(EventToggleHistory)
	return s.showHistorical, nil
}

// OnQueryChanged records the query and schedules a debounced suggestion
// lookup. Queries shorter than the minimum length clear the suggestions.
func (s *Session) OnQueryChanged(query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return err
	}

	s.query = query
	s.touchLocked()
	s.stopDebounceLocked()
	s.suggestSeq++
	seq := s.suggestSeq
	s.deps.Metrics.RecordSessionEvent(EventQueryChange)

	trimmed := strings.TrimSpace(query)
	if trimmed == "" || utf8.RuneCountInString(query) < s.config.MinQueryLength {
		s.suggestions = nil
		return nil
	}

	s.wg.Add(1)
	s.debounce = time.AfterFunc(s.config.Debounce, func() {
		defer s.wg.Done()
		s.loadSuggestions(seq, trimmed)
	})
	return nil
}

// Close stops pending lookups and releases the map surface. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopDebounceLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.deps.Metrics.SessionClosed()

	GetLogger().Debug("session closed", logger.String("session_id", s.id))
	return s.surface.Close()
}

// beginLocation starts a location request and returns its sequence number.
// mutate, if set, runs under the lock before the request is issued.
func (s *Session) beginLocation(event string, mutate func()) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return 0, err
	}
	if mutate != nil {
		mutate()
	}
	s.locationSeq++
	s.inFlight++
	s.touchLocked()
	s.deps.Metrics.RecordSessionEvent(event)
	return s.locationSeq, nil
}

func (s *Session) endRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
}

// selectLocation fetches the sample for loc and applies it.
func (s *Session) selectLocation(ctx context.Context, seq uint64, loc geocoding.Location) {
	start := time.Now()
	sample := s.deps.Fetcher.Fetch(ctx, loc.Lat, loc.Lng)
	s.apply(ctx, seq, loc, sample, start)
}

// apply installs location, sample, zones and history together if seq is
// still the latest request.
func (s *Session) apply(ctx context.Context, seq uint64, loc geocoding.Location, sample environment.Sample, start time.Time) {
	batch := s.deps.Zones.Generate(loc.Lat, loc.Lng, sample)
	series, err := history.Generate(s.deps.Random, s.config.StartYear, s.config.EndYear)
	if err != nil {
		GetLogger().Error("history generation failed", logger.Error(err))
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.Lock()
	if s.closed || seq != s.locationSeq {
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.deps.Metrics.RecordStaleDiscarded(staleKindLocation)
			GetLogger().Debug("discarding stale location response",
				logger.String("session_id", s.id),
				logger.String("location", loc.Name))
		}
		return
	}
	s.location = &loc
	s.sample = &sample
	s.zoneBatch = batch
	s.series = series
	s.touchLocked()
	s.mu.Unlock()

	marker := mapview.Marker{Lat: loc.Lat, Lng: loc.Lng, Name: loc.Name}
	if err := s.surface.SetView(marker, s.config.Zoom); err != nil {
		GetLogger().Debug("map view not updated", logger.Error(err))
	}
	if err := s.surface.ReplaceZones(batch); err != nil {
		GetLogger().Debug("map overlays not updated", logger.Error(err))
	}

	s.deps.Metrics.ObservePipelineDuration(time.Since(start).Seconds())
	s.deps.Publisher.PublishZoneSummary(ctx, zoneSummary(loc, sample, batch))

	GetLogger().Info("location applied",
		logger.String("session_id", s.id),
		logger.String("location", loc.Name),
		logger.String("eco_score", string(sample.EcoScore())),
		logger.String("source", string(sample.Source())),
		logger.Duration("elapsed", time.Since(start)))
}

// reverseName resolves a display name, falling back to the coordinates.
func (s *Session) reverseName(ctx context.Context, lat, lng float64) string {
	name, err := s.deps.Geocoder.Reverse(ctx, lat, lng)
	if err != nil || name == "" {
		GetLogger().Info("reverse geocoding failed, using coordinates",
			logger.Float64("lat", lat),
			logger.Float64("lng", lng),
			logger.String("reason", geocoding.FailureReason(err)),
			logger.Error(err))
		return geocoding.CoordinateName(lat, lng)
	}
	return name
}

// loadSuggestions runs a debounced lookup and applies it if no newer query arrived.
func (s *Session) loadSuggestions(seq uint64, query string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.config.RequestTimeout)
	defer cancel()

	suggestions, err := s.deps.Geocoder.Suggest(ctx, query, s.config.SuggestionLimit)
	if err != nil {
		GetLogger().Warn("suggestion lookup failed",
			logger.String("session_id", s.id),
			logger.String("query", query),
			logger.Error(err))
		suggestions = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if seq != s.suggestSeq {
		s.deps.Metrics.RecordStaleDiscarded(staleKindSuggestions)
		return
	}
	s.suggestions = suggestions
	s.touchLocked()
}

// stopDebounceLocked cancels a pending lookup. Must be called with s.mu held.
func (s *Session) stopDebounceLocked() {
	if s.debounce != nil && s.debounce.Stop() {
		// the callback will never run, so release its wait slot here
		s.wg.Done()
	}
	s.debounce = nil
}

func (s *Session) checkOpenLocked() error {
	if !s.closed {
		return nil
	}
	return errors.Newf("session %s is closed", s.id).
		Component("session").
		Category(errors.CategoryState).
		Context("session_id", s.id).
		Build()
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now()
}
