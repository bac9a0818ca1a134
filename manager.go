package transit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"campustransit.dev/transit/cache"
	"campustransit.dev/transit/downloader"
	"campustransit.dev/transit/model"
	"campustransit.dev/transit/rank"
	"campustransit.dev/transit/storage"
)

const (
	DefaultStaticTTL       = 24 * time.Hour
	DefaultStaticTimeout   = 60 * time.Second
	DefaultStaticMaxSize   = 200 << 20 // 200 MB
	DefaultRealtimeTimeout = 10 * time.Second
	DefaultRealtimeMaxSize = 4 << 20 // 4 MB
	DefaultMaxWait         = 30 * time.Minute
	DefaultScheduleWindow  = 4 * time.Hour
	DefaultScheduleLimit   = 20
	DefaultStopDetailLimit = 50

	// Key of the static catalog, both in memory and in storage.
	CatalogKey = "gtfs_static_all"
)

// Receives events for metrics. See the metrics package.
type Metrics interface {
	cache.Observer
	FeedFetched(feed string, entities int, err error)
	QueryServed(query string, took time.Duration, err error)
}

// Manager answers transit queries from a static catalog, refreshed
// through a single-flight cache, and realtime feeds fetched per
// query.
//
// Exported fields may be modified after NewManager, but not once the
// Manager is in use.
type Manager struct {
	StaticURL           string
	StaticHeaders       map[string]string
	VehiclePositionsURL string
	TripUpdatesURL      string
	AlertsURL           string
	RealtimeHeaders     map[string]string

	StaticTTL       time.Duration
	StaticTimeout   time.Duration
	StaticMaxSize   int
	RealtimeTimeout time.Duration
	RealtimeMaxSize int

	// Service time zone. Overrides the archive's agency timezone.
	Location *time.Location

	Downloader downloader.Downloader
	Logger     *slog.Logger
	Metrics    Metrics
	TimeNow    func() time.Time

	storage storage.Storage

	catalogsOnce sync.Once
	catalogs     *cache.Cache[*Catalog]
}

// Creates a Manager on top of the given storage, which holds
// favorites, preferences and a persisted copy of the static archive.
func NewManager(s storage.Storage) *Manager {
	return &Manager{
		StaticTTL:       DefaultStaticTTL,
		StaticTimeout:   DefaultStaticTimeout,
		StaticMaxSize:   DefaultStaticMaxSize,
		RealtimeTimeout: DefaultRealtimeTimeout,
		RealtimeMaxSize: DefaultRealtimeMaxSize,

		Downloader: downloader.NewFilesystem(downloader.NewHTTP()),
		TimeNow:    time.Now,

		storage: s,
	}
}

func (m *Manager) now() time.Time {
	if m.TimeNow == nil {
		return time.Now()
	}
	return m.TimeNow()
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// Reports a query's duration and outcome on return:
//
//	defer m.track("routes")(&err)
func (m *Manager) track(query string) func(*error) {
	start := m.now()
	return func(err *error) {
		if m.Metrics != nil {
			m.Metrics.QueryServed(query, m.now().Sub(start), *err)
		}
	}
}

// Returns the current static catalog, loading it if absent or
// expired. Concurrent callers share a single load.
func (m *Manager) Catalog(ctx context.Context) (*Catalog, error) {
	m.catalogsOnce.Do(func() {
		m.catalogs = cache.New[*Catalog](m.StaticTimeout)
		m.catalogs.TimeNow = m.now
		if m.Metrics != nil {
			m.catalogs.Observer = m.Metrics
		}
	})

	return m.catalogs.GetOrLoad(ctx, CatalogKey, m.StaticTTL, m.loadCatalog)
}

// Drops the in memory catalog. The persisted archive, if any, is
// left alone.
func (m *Manager) InvalidateCatalog() {
	if m.catalogs != nil {
		m.catalogs.Invalidate(CatalogKey)
	}
}

func (m *Manager) loadCatalog(ctx context.Context) (*Catalog, error) {
	log := m.logger().With("key", CatalogKey)
	start := m.now()

	if m.storage != nil {
		buf, found, err := m.storage.CacheGet(CatalogKey, start)
		if err != nil {
			log.Warn("reading persisted archive", "error", err)
		} else if found {
			c, err := ParseCatalog(buf, m.Location)
			if err == nil {
				log.Info("catalog restored from storage", "routes", len(c.Routes()), "stops", len(c.Stops()))
				return c, nil
			}
			log.Warn("discarding persisted archive", "error", err)
			if err := m.storage.CacheDelete(CatalogKey); err != nil {
				log.Warn("deleting persisted archive", "error", err)
			}
		}
	}

	if m.StaticURL == "" {
		return nil, fmt.Errorf("no static URL configured")
	}

	log.Info("loading catalog", "url", m.StaticURL)

	buf, err := m.Downloader.Get(ctx, m.StaticURL, m.StaticHeaders, downloader.GetOptions{
		MaxSize: m.StaticMaxSize,
		Timeout: m.StaticTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading static archive: %w", err)
	}

	c, err := ParseCatalog(buf, m.Location)
	if err != nil {
		return nil, err
	}

	if m.storage != nil {
		err = m.storage.CacheSet(CatalogKey, buf, m.now().Add(m.StaticTTL))
		if err != nil {
			log.Warn("persisting archive", "error", err)
		}
	}

	log.Info(
		"catalog loaded",
		"took", m.now().Sub(start),
		"bytes", len(buf),
		"routes", c.Metadata.NumRoutes,
		"stops", c.Metadata.NumStops,
		"trips", c.Metadata.NumTrips,
		"stop_times", c.Metadata.NumStopTimes,
	)

	return c, nil
}

func (m *Manager) ListRoutes(ctx context.Context) (routes []*model.Route, err error) {
	defer m.track("routes")(&err)

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Routes(), nil
}

type RouteDetail struct {
	Route *model.Route        `json:"route"`
	Shape []*model.ShapePoint `json:"shape"`
}

func (m *Manager) Route(ctx context.Context, routeID string) (detail *RouteDetail, err error) {
	defer m.track("route")(&err)

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	route, found := c.Route(routeID)
	if !found {
		return nil, &NotFoundError{Kind: "route", ID: routeID}
	}

	shape := c.RouteShape(routeID)
	if shape == nil {
		shape = []*model.ShapePoint{}
	}

	return &RouteDetail{Route: route, Shape: shape}, nil
}

func (m *Manager) ListStops(ctx context.Context) (stops []*model.Stop, err error) {
	defer m.track("stops")(&err)

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Stops(), nil
}

type StopDetail struct {
	Stop      *model.Stop       `json:"stop"`
	StopTimes []*model.StopTime `json:"stop_times"`
}

func (m *Manager) Stop(ctx context.Context, stopID string) (detail *StopDetail, err error) {
	defer m.track("stop")(&err)

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	stop, found := c.Stop(stopID)
	if !found {
		return nil, &NotFoundError{Kind: "stop", ID: stopID}
	}

	stopTimes := c.StopTimesForStop(stopID)
	if len(stopTimes) > DefaultStopDetailLimit {
		stopTimes = stopTimes[:DefaultStopDetailLimit]
	}
	if stopTimes == nil {
		stopTimes = []*model.StopTime{}
	}

	return &StopDetail{Stop: stop, StopTimes: stopTimes}, nil
}

// Stops nearest to a point.
func (m *Manager) NearbyStops(ctx context.Context, lat float64, lon float64, limit int) (stops []*model.Stop, err error) {
	defer m.track("nearby_stops")(&err)

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.NearbyStops(lat, lon, limit), nil
}

// Upcoming arrivals at a stop over the next few hours, optionally
// restricted to one route.
func (m *Manager) Schedule(ctx context.Context, stopID string, routeID string) (entries []model.ScheduleEntry, err error) {
	defer m.track("schedule")(&err)

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	if _, found := c.Stop(stopID); !found {
		return nil, &NotFoundError{Kind: "stop", ID: stopID}
	}
	if routeID != "" {
		if _, found := c.Route(routeID); !found {
			return nil, &NotFoundError{Kind: "route", ID: routeID}
		}
	}

	rt := m.Realtime(ctx)
	now := m.now().In(c.Location)

	return StopSchedule(c, rt, stopID, routeID, DefaultScheduleWindow, DefaultScheduleLimit, now), nil
}

type DirectionsRequest struct {
	FromStopID string
	ToStopID   string

	// Defaults to time.
	Mode model.PriorityMode

	// Defaults to DefaultMaxWait.
	MaxWait time.Duration

	// Overrides the mode's split between time and occupancy.
	TimeWeight *float64

	// Restricts the search to these routes, if non-empty.
	Routes []string

	// Drops options more crowded than this occupancy score.
	MaxOccupancyScore *float64
}

type DirectionsResult struct {
	From           *model.Stop          `json:"from"`
	To             *model.Stop          `json:"to"`
	Mode           model.PriorityMode   `json:"priority_mode"`
	DistanceKm     float64              `json:"distance_km"`
	Options        []model.RankedOption `json:"options"`
	Recommendation model.Recommendation `json:"recommendation"`
	Alerts         []model.ServiceAlert `json:"alerts"`
	GeneratedAt    time.Time            `json:"generated_at"`
}

func (r *DirectionsRequest) validate() error {
	if r.FromStopID == "" || r.ToStopID == "" {
		return invalidArgument("origin and destination stops are required")
	}
	if r.Mode == "" {
		r.Mode = model.PriorityTime
	}
	if !r.Mode.Valid() {
		return invalidArgument("unknown priority mode '%s'", r.Mode)
	}
	if r.MaxWait < 0 {
		return invalidArgument("max wait must be non-negative")
	}
	if r.MaxWait == 0 {
		r.MaxWait = DefaultMaxWait
	}
	if r.TimeWeight != nil && (*r.TimeWeight < 0 || *r.TimeWeight > 1) {
		return invalidArgument("time weight must be within [0, 1]")
	}
	return nil
}

// Ranked single trip options from one stop to another. No service is
// an empty result, not an error.
func (m *Manager) Directions(ctx context.Context, req DirectionsRequest) (result *DirectionsResult, err error) {
	defer m.track("directions")(&err)

	if err := req.validate(); err != nil {
		return nil, err
	}

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	from, found := c.Stop(req.FromStopID)
	if !found {
		return nil, &NotFoundError{Kind: "stop", ID: req.FromStopID}
	}
	to, found := c.Stop(req.ToStopID)
	if !found {
		return nil, &NotFoundError{Kind: "stop", ID: req.ToStopID}
	}

	rt := m.Realtime(ctx)
	now := m.now().In(c.Location)

	candidates := FindItineraries(c, rt, from.ID, to.ID, req.Routes, req.MaxWait, now)
	if req.MaxOccupancyScore != nil {
		candidates = rank.FilterByMaxOccupancy(candidates, *req.MaxOccupancyScore)
	}

	options := rank.Rank(candidates, rank.Policy{Mode: req.Mode, TimeWeight: req.TimeWeight}, now)

	routes := map[string]bool{}
	for _, o := range options {
		routes[o.RouteID] = true
	}
	alerts := []model.ServiceAlert{}
	if rt != nil {
		for _, a := range rt.Alerts {
			if !a.ActiveAt(now) {
				continue
			}
			affected := a.Affects("", from.ID) || a.Affects("", to.ID)
			for routeID := range routes {
				affected = affected || a.Affects(routeID, "")
			}
			if affected {
				alerts = append(alerts, a)
			}
		}
	}

	return &DirectionsResult{
		From:           from,
		To:             to,
		Mode:           req.Mode,
		DistanceKm:     HaversineDistance(from.Lat, from.Lon, to.Lat, to.Lon),
		Options:        options,
		Recommendation: rank.Recommend(options, req.Mode, now),
		Alerts:         alerts,
		GeneratedAt:    now,
	}, nil
}

// Directions between a stored favorite's stops, restricted to its
// preferred routes and ranked by its priority mode.
func (m *Manager) FavoriteDirections(ctx context.Context, id int64, maxWait time.Duration) (*DirectionsResult, error) {
	fav, err := m.Favorite(id)
	if err != nil {
		return nil, err
	}

	return m.Directions(ctx, DirectionsRequest{
		FromStopID: fav.FromStopID,
		ToStopID:   fav.ToStopID,
		Mode:       fav.PriorityMode,
		MaxWait:    maxWait,
		Routes:     fav.PreferredRoutes,
	})
}

// Live vehicles joined with route and trip data, optionally
// restricted to one route.
func (m *Manager) Vehicles(ctx context.Context, routeID string) (vehicles []model.EnrichedVehicle, err error) {
	defer m.track("vehicles")(&err)

	c, err := m.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if routeID != "" {
		if _, found := c.Route(routeID); !found {
			return nil, &NotFoundError{Kind: "route", ID: routeID}
		}
	}

	rt := m.Realtime(ctx)

	vehicles = []model.EnrichedVehicle{}
	for _, v := range EnrichVehicles(c, rt.Vehicles) {
		if routeID != "" && v.RouteID != routeID {
			continue
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, nil
}

// Alerts active now. With a route or stop given, only alerts naming
// either are returned.
func (m *Manager) Alerts(ctx context.Context, routeID string, stopID string) (alerts []model.ServiceAlert, err error) {
	defer m.track("alerts")(&err)

	rt := m.Realtime(ctx)
	now := m.now()

	alerts = []model.ServiceAlert{}
	for _, a := range rt.Alerts {
		if !a.ActiveAt(now) {
			continue
		}
		if (routeID != "" || stopID != "") && !a.Affects(routeID, stopID) {
			continue
		}
		alerts = append(alerts, a)
	}

	return alerts, nil
}

func favoriteError(id int64, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{Kind: "favorite", ID: strconv.FormatInt(id, 10)}
	}
	return err
}

func validateFavorite(fav *model.Favorite) error {
	if fav.Name == "" {
		return invalidArgument("favorite name is required")
	}
	if fav.FromStopID == "" || fav.ToStopID == "" {
		return invalidArgument("favorite origin and destination stops are required")
	}
	if fav.PriorityMode != "" && !fav.PriorityMode.Valid() {
		return invalidArgument("unknown priority mode '%s'", fav.PriorityMode)
	}
	return nil
}

func (m *Manager) ListFavorites() ([]*model.Favorite, error) {
	return m.storage.ListFavorites()
}

func (m *Manager) Favorite(id int64) (*model.Favorite, error) {
	fav, err := m.storage.GetFavorite(id)
	if err != nil {
		return nil, favoriteError(id, err)
	}
	return fav, nil
}

// Stores a new favorite, setting its ID and timestamps.
func (m *Manager) CreateFavorite(fav *model.Favorite) error {
	if err := validateFavorite(fav); err != nil {
		return err
	}
	now := m.now()
	fav.CreatedAt = now
	fav.UpdatedAt = now
	return m.storage.CreateFavorite(fav)
}

func (m *Manager) UpdateFavorite(fav *model.Favorite) error {
	if err := validateFavorite(fav); err != nil {
		return err
	}
	fav.UpdatedAt = m.now()
	return favoriteError(fav.ID, m.storage.UpdateFavorite(fav))
}

func (m *Manager) DeleteFavorite(id int64) error {
	return favoriteError(id, m.storage.DeleteFavorite(id))
}

func (m *Manager) Preference(key string) (string, bool, error) {
	return m.storage.GetPreference(key)
}

func (m *Manager) SetPreference(key string, value string) error {
	if key == "" {
		return invalidArgument("preference key is required")
	}
	return m.storage.SetPreference(key, value)
}

func (m *Manager) DeletePreference(key string) error {
	return m.storage.DeletePreference(key)
}

// Purges expired entries from the persisted cache.
func (m *Manager) ClearExpired() (int, error) {
	n, err := m.storage.ClearExpired(m.now())
	if err != nil {
		return 0, fmt.Errorf("clearing expired cache entries: %w", err)
	}
	if n > 0 {
		m.logger().Info("cleared expired cache entries", "count", n)
	}
	return n, nil
}
