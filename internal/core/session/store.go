// Package session holds the per-client live map state: the user's
// location, the home set of markers around it, and an optional search
// overlay. Every WebSocket connection owns exactly one Store; nothing
// in here is shared between clients or kept at package level.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/pkg/geospatial"
)

// State is the lifecycle of the home marker set.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options tune a Store. Zero values fall back to defaults.
type Options struct {
	Radius       float64             // meters around the location, default 1000
	Limit        int                 // max markers per fetch, default 50
	Kinds        []domain.MarkerKind // nil means all kinds
	FetchTimeout time.Duration       // per-fetch budget, default 10s
	CacheTTL     time.Duration       // session cache freshness, default 30s
	Now          func() time.Time    // clock, default time.Now
}

func (o *Options) fill() {
	if o.Radius <= 0 {
		o.Radius = 1000
	}
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type cacheEntry struct {
	markers []domain.Marker
	at      time.Time
}

// Store tracks one client's location and markers. All methods are safe
// for concurrent use. Fetches triggered by a superseded location are
// cancelled, and their results can never be committed: every commit is
// guarded by the generation counter taken when the fetch started.
type Store struct {
	finder ports.MarkerFinder
	opts   Options

	ctx    context.Context // parent of background revalidations
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	err      error
	location *domain.GeoPoint
	home     []domain.Marker
	search   []domain.Marker
	gen      uint64
	inflight context.CancelFunc
	cache    map[string]cacheEntry
	closed   bool
}

// New creates a Store around the given finder.
func New(finder ports.MarkerFinder, opts Options) *Store {
	opts.fill()
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		finder: finder,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		cache:  make(map[string]cacheEntry),
	}
}

// SetLocation moves the session to a new location and loads the home
// marker set around it. A previous in-flight load is cancelled; if its
// result still arrives it is discarded. A fresh session-cache entry is
// served immediately and revalidated in the background.
func (s *Store) SetLocation(ctx context.Context, pt domain.GeoPoint) error {
	if !pt.Valid() {
		return fmt.Errorf("invalid location (%v, %v)", pt.Lat, pt.Lon)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	s.gen++
	myGen := s.gen
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	loc := pt
	s.location = &loc

	key := s.cacheKey(pt)
	if entry, ok := s.cache[key]; ok && s.opts.Now().Sub(entry.at) < s.opts.CacheTTL {
		s.home = entry.markers
		s.state = StateReady
		s.err = nil
		s.mu.Unlock()
		go s.revalidate(myGen, pt, key)
		return nil
	}

	s.state = StateLoading
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	s.inflight = cancel
	s.mu.Unlock()

	markers, err := s.fetch(fetchCtx, pt)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != myGen || s.closed {
		// A newer location superseded this fetch; drop the result.
		return nil
	}
	s.inflight = nil
	if err != nil {
		s.state = StateFailed
		s.err = err
		return err
	}
	s.home = markers
	s.state = StateReady
	s.err = nil
	s.cache[key] = cacheEntry{markers: markers, at: s.opts.Now()}
	return nil
}

// Refresh reloads the home set at the current location, bypassing the
// session cache.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	if s.location == nil {
		s.mu.Unlock()
		return fmt.Errorf("no location set")
	}
	pt := *s.location
	s.gen++
	myGen := s.gen
	if s.inflight != nil {
		s.inflight()
	}
	s.state = StateLoading
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	s.inflight = cancel
	s.mu.Unlock()

	markers, err := s.fetch(fetchCtx, pt)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != myGen || s.closed {
		return nil
	}
	s.inflight = nil
	if err != nil {
		s.state = StateFailed
		s.err = err
		return err
	}
	s.home = markers
	s.state = StateReady
	s.err = nil
	s.cache[s.cacheKey(pt)] = cacheEntry{markers: markers, at: s.opts.Now()}
	return nil
}

// Search loads markers around an arbitrary point into the search
// overlay. Results are additive across searches and deduplicated by id
// (the newest search wins inside the overlay). The home set is not
// touched; a failed search leaves all state as it was.
func (s *Store) Search(ctx context.Context, pt domain.GeoPoint, radiusMeters float64) error {
	if !pt.Valid() {
		return fmt.Errorf("invalid search location (%v, %v)", pt.Lat, pt.Lon)
	}
	if radiusMeters <= 0 {
		radiusMeters = s.opts.Radius
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	s.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()
	markers, err := s.finder.FindNearby(fetchCtx, pt.Lat, pt.Lon, radiusMeters, s.opts.Limit, s.opts.Kinds)
	if err != nil {
		return fmt.Errorf("search markers: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	byID := make(map[string]int, len(s.search))
	for i, m := range s.search {
		byID[m.ID] = i
	}
	for _, m := range markers {
		if i, ok := byID[m.ID]; ok {
			s.search[i] = m
			continue
		}
		byID[m.ID] = len(s.search)
		s.search = append(s.search, m)
	}
	return nil
}

// ClearSearch drops the search overlay, leaving the home set alone.
func (s *Store) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.search = nil
}

// Markers returns the merged home and search sets with distances
// computed from the current location, nearest first. Markers present
// in both sets appear once, with the home entry winning.
func (s *Store) Markers() []domain.Marker {
	s.mu.Lock()
	merged := domain.MergeMarkers(s.home, s.search)
	loc := s.location
	s.mu.Unlock()

	out := make([]domain.Marker, len(merged))
	copy(out, merged)
	if loc != nil {
		for i := range out {
			d := geospatial.Haversine(loc.Lat, loc.Lon, out[i].Coordinate.Lat, out[i].Coordinate.Lon)
			out[i].Distance = &d
		}
		sort.SliceStable(out, func(i, j int) bool {
			return *out[i].Distance < *out[j].Distance
		})
	}
	return out
}

// ApplyUpdate patches availability on a marker already in the session,
// so broker updates reach the client without a refetch. Unknown ids are
// ignored.
func (s *Store) ApplyUpdate(update domain.MarkerUpdated) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.home {
		if s.home[i].ID == update.MarkerID {
			s.home[i].Available = update.Available
			s.home[i].UpdatedAt = update.At
		}
	}
	for i := range s.search {
		if s.search[i].ID == update.MarkerID {
			s.search[i].Available = update.Available
			s.search[i].UpdatedAt = update.At
		}
	}
}

// State returns the home set lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last failed load, nil after a success.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Location returns the current session location, nil before the first
// SetLocation.
func (s *Store) Location() *domain.GeoPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return nil
	}
	loc := *s.location
	return &loc
}

// Close cancels everything in flight. Late fetch results are discarded
// and further calls fail.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	s.cancel()
}

func (s *Store) fetch(ctx context.Context, pt domain.GeoPoint) ([]domain.Marker, error) {
	markers, err := s.finder.FindNearby(ctx, pt.Lat, pt.Lon, s.opts.Radius, s.opts.Limit, s.opts.Kinds)
	if err != nil {
		return nil, fmt.Errorf("load markers: %w", err)
	}
	return markers, nil
}

// revalidate refreshes a cache-served home set in the background. The
// commit is generation-guarded like any other fetch.
func (s *Store) revalidate(myGen uint64, pt domain.GeoPoint, key string) {
	fetchCtx, cancel := context.WithTimeout(s.ctx, s.opts.FetchTimeout)
	defer cancel()
	markers, err := s.fetch(fetchCtx, pt)
	if err != nil {
		return // keep serving the cached set
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != myGen || s.closed {
		return
	}
	s.home = markers
	s.cache[key] = cacheEntry{markers: markers, at: s.opts.Now()}
}

// cacheKey rounds the location to ~11 m so small GPS jitter reuses the
// same entry.
func (s *Store) cacheKey(pt domain.GeoPoint) string {
	return fmt.Sprintf("%.4f:%.4f:%.0f", pt.Lat, pt.Lon, s.opts.Radius)
}
