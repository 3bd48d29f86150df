package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"place-indexer/domain"
	"place-indexer/port"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type placeOpts struct {
	located bool
	wifi    domain.TriState
	outlets domain.TriState
	updated time.Time
}

func newTestPlace(id string, o placeOpts) *domain.Place {
	attrs := domain.PlaceAttrs{
		ID:               id,
		Name:             "Place " + id,
		Categories:       []string{"cafe"},
		WifiAvailable:    o.wifi,
		OutletsAvailable: o.outlets,
		CreatedAt:        baseTime,
		UpdatedAt:        o.updated,
	}
	if attrs.UpdatedAt.IsZero() {
		attrs.UpdatedAt = baseTime
	}
	if o.located {
		attrs.Location = &domain.GeoPoint{Lat: 40.73, Lng: -73.99}
	}
	p, err := domain.NewPlace(attrs)
	if err != nil {
		panic(err)
	}
	return p
}

type fakePlaceRepo struct {
	mu       sync.Mutex
	places   map[string]*domain.Place
	evidence map[string]bool
	rejected []string
	err      error

	getCalls    int
	listCalls   int
	nearbyCalls int
	lastPolicy  domain.AmenityPolicy

	// gate, when set, blocks GetPlaceByID after the read until closed.
	gate    chan struct{}
	entered chan struct{}
}

var _ port.PlaceRepository = (*fakePlaceRepo)(nil)

func newFakePlaceRepo(places ...*domain.Place) *fakePlaceRepo {
	r := &fakePlaceRepo{places: map[string]*domain.Place{}, evidence: map[string]bool{}}
	for _, p := range places {
		r.places[p.ID()] = p
	}
	return r
}

func (r *fakePlaceRepo) sorted() []*domain.Place {
	out := make([]*domain.Place, 0, len(r.places))
	for _, p := range r.places {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *fakePlaceRepo) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	r.mu.Lock()
	r.getCalls++
	gate, entered := r.gate, r.entered
	p, ok := r.places[id]
	err := r.err
	r.mu.Unlock()

	// The row is read before blocking, like a slow store response.
	if gate != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-gate
	}

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrPlaceNotFound
	}
	return p, nil
}

func (r *fakePlaceRepo) put(p *domain.Place) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.places[p.ID()] = p
}

func (r *fakePlaceRepo) ListIndexablePlaces(ctx context.Context) ([]*domain.Place, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, nil, r.err
	}
	return r.sorted(), r.rejected, nil
}

func (r *fakePlaceRepo) ListPlaces(ctx context.Context, filter domain.PlaceFilter) ([]*domain.Place, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.err != nil {
		return nil, 0, r.err
	}
	all := r.sorted()
	end := min(filter.Offset()+filter.PerPage, len(all))
	if filter.Offset() >= len(all) {
		return nil, int64(len(all)), nil
	}
	return all[filter.Offset():end], int64(len(all)), nil
}

// NearbyPlaces mirrors the store semantics: under the evidence policy an
// observation can satisfy an amenity filter the record does not.
func (r *fakePlaceRepo) NearbyPlaces(ctx context.Context, filter domain.PlaceFilter, policy domain.AmenityPolicy) ([]port.NearbyPlace, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nearbyCalls++
	r.lastPolicy = policy
	if r.err != nil {
		return nil, 0, r.err
	}

	useEvidence := filter.UsesObservationEvidence(policy)
	var out []port.NearbyPlace
	for _, p := range r.sorted() {
		if p.Location() == nil {
			continue
		}
		if filter.RequireOutlets && !p.OutletsAvailable().IsTrue() && !(useEvidence && r.evidence[p.ID()]) {
			continue
		}
		if filter.RequireWifi && !p.WifiAvailable().IsTrue() && !(useEvidence && r.evidence[p.ID()]) {
			continue
		}
		out = append(out, port.NearbyPlace{Place: p, DistanceMeters: 42})
	}
	return out, int64(len(out)), nil
}

func (r *fakePlaceRepo) PlaceExists(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.places[id]
	return ok, nil
}

type fakeSearchEngine struct {
	mu   sync.Mutex
	docs map[string]domain.IndexDocument

	ensureCalls  int
	clearCalls   int
	searchCalls  int
	importCalls  int
	upsertCalls  int
	lastFilter   domain.PlaceFilter
	rejectIDs    map[string]bool
	failImportAt int
	importErr    error
	upsertErr    error
	searchErr    error
	facets       map[string]map[string]int64
}

var _ port.SearchEngine = (*fakeSearchEngine)(nil)

func newFakeSearchEngine() *fakeSearchEngine {
	return &fakeSearchEngine{docs: map[string]domain.IndexDocument{}, rejectIDs: map[string]bool{}}
}

func (f *fakeSearchEngine) EnsureIndex(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	return nil
}

func (f *fakeSearchEngine) UpsertDocument(ctx context.Context, doc domain.IndexDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeSearchEngine) GetDocument(ctx context.Context, id string) (*domain.IndexDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &doc, nil
}

func (f *fakeSearchEngine) DeleteDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeSearchEngine) ClearDocuments(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	f.docs = map[string]domain.IndexDocument{}
	return nil
}

func (f *fakeSearchEngine) ImportDocuments(ctx context.Context, docs []domain.IndexDocument) (*domain.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.importCalls++
	if f.failImportAt > 0 && f.importCalls == f.failImportAt {
		return nil, f.importErr
	}
	result := &domain.ImportResult{}
	for _, d := range docs {
		if f.rejectIDs[d.ID] {
			result.Failures = append(result.Failures, domain.DocumentFailure{ID: d.ID, Reason: "rejected"})
			continue
		}
		f.docs[d.ID] = d
		result.Imported++
	}
	return result, nil
}

// Search applies amenity filters to the document flags only.
func (f *fakeSearchEngine) Search(ctx context.Context, filter domain.PlaceFilter) (*domain.IndexSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.lastFilter = filter
	if f.searchErr != nil {
		return nil, f.searchErr
	}

	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resp := &domain.IndexSearchResponse{Page: filter.Page, ProcessingTimeMs: 3, Facets: f.facets}
	for _, id := range ids {
		d := f.docs[id]
		if filter.RequireOutlets && (d.OutletsAvailable == nil || !*d.OutletsAvailable) {
			continue
		}
		if filter.RequireWifi && (d.WifiAvailable == nil || !*d.WifiAvailable) {
			continue
		}
		resp.Hits = append(resp.Hits, domain.IndexHit{Document: d})
	}
	resp.TotalHits = int64(len(resp.Hits))
	return resp, nil
}

func (f *fakeSearchEngine) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

type fakeLock struct {
	held     bool
	released int
}

var _ port.SyncLock = (*fakeLock)(nil)

func (l *fakeLock) TryLock(ctx context.Context) (func(context.Context) error, error) {
	if l.held {
		return nil, domain.ErrSyncInProgress
	}
	l.held = true
	return func(context.Context) error {
		l.held = false
		l.released++
		return nil
	}, nil
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.PlaceDetails
	invalidated []string
}

var _ port.PlaceCache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*domain.PlaceDetails{}}
}

func (c *fakeCache) Get(id string) (*domain.PlaceDetails, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.entries[id]
	return d, ok
}

func (c *fakeCache) Add(id string, d *domain.PlaceDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = d
}

func (c *fakeCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
}

type fakeObservationRepo struct {
	stored    []domain.Observation
	total     int
	lastLimit int
	lastSince time.Time
	err       error
}

var _ port.ObservationRepository = (*fakeObservationRepo)(nil)

func (r *fakeObservationRepo) InsertObservation(ctx context.Context, in domain.ObservationInput) (*domain.Observation, error) {
	if r.err != nil {
		return nil, r.err
	}
	obs := domain.Observation{
		ID:          fmt.Sprintf("obs-%d", len(r.stored)+1),
		PlaceID:     in.PlaceID,
		OutletCount: in.OutletCount,
		Crowdedness: in.Crowdedness,
		CreatedAt:   baseTime,
	}
	r.stored = append(r.stored, obs)
	return &obs, nil
}

func (r *fakeObservationRepo) ListObservations(ctx context.Context, placeID string, limit, offset int) ([]domain.Observation, error) {
	r.lastLimit = limit
	return r.stored, r.err
}

func (r *fakeObservationRepo) ListPlaceObservationsSince(ctx context.Context, placeID string, since time.Time) ([]domain.Observation, error) {
	r.lastSince = since
	return r.stored, r.err
}

func (r *fakeObservationRepo) CountPlaceObservations(ctx context.Context, placeID string) (int, error) {
	return r.total, r.err
}
