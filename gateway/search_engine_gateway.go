package gateway

import (
	"context"

	"place-indexer/domain"
	"place-indexer/driver"
	"place-indexer/port"
)

var (
	searchFacets   = []string{"categories", "wifi_available", "outlets_available"}
	searchOnFields = []string{"name", "searchable_text", "categories"}

	// highlightFields are copied from _formatted into result highlights.
	highlightFields = []string{"name", "address"}
)

type SearchDriver interface {
	EnsureIndex(ctx context.Context) error
	UpsertDocument(ctx context.Context, doc driver.PlaceDocument) error
	GetDocument(ctx context.Context, id string) (*driver.PlaceDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteAllDocuments(ctx context.Context) error
	ImportDocuments(ctx context.Context, docs []driver.PlaceDocument) (int, []driver.DocumentFailure, error)
	Search(ctx context.Context, r driver.SearchRequest) (*driver.SearchResponse, error)
}

type SearchEngineGateway struct {
	driver SearchDriver
}

var _ port.SearchEngine = (*SearchEngineGateway)(nil)

func NewSearchEngineGateway(driver SearchDriver) *SearchEngineGateway {
	return &SearchEngineGateway{
		driver: driver,
	}
}

func (g *SearchEngineGateway) EnsureIndex(ctx context.Context) error {
	if err := g.driver.EnsureIndex(ctx); err != nil {
		return searchEngineError("EnsureIndex", err)
	}
	return nil
}

func (g *SearchEngineGateway) UpsertDocument(ctx context.Context, doc domain.IndexDocument) error {
	if err := g.driver.UpsertDocument(ctx, toDriverDocument(doc)); err != nil {
		return searchEngineError("UpsertDocument", err)
	}
	return nil
}

func (g *SearchEngineGateway) GetDocument(ctx context.Context, id string) (*domain.IndexDocument, error) {
	doc, err := g.driver.GetDocument(ctx, id)
	if err != nil {
		return nil, searchEngineError("GetDocument", err)
	}
	if doc == nil {
		return nil, domain.ErrDocumentNotFound
	}
	out := toDomainDocument(*doc)
	return &out, nil
}

func (g *SearchEngineGateway) DeleteDocument(ctx context.Context, id string) error {
	if err := g.driver.DeleteDocument(ctx, id); err != nil {
		return searchEngineError("DeleteDocument", err)
	}
	return nil
}

func (g *SearchEngineGateway) ClearDocuments(ctx context.Context) error {
	if err := g.driver.DeleteAllDocuments(ctx); err != nil {
		return searchEngineError("ClearDocuments", err)
	}
	return nil
}

func (g *SearchEngineGateway) ImportDocuments(ctx context.Context, docs []domain.IndexDocument) (*domain.ImportResult, error) {
	if len(docs) == 0 {
		return &domain.ImportResult{}, nil
	}

	driverDocs := make([]driver.PlaceDocument, len(docs))
	for i, doc := range docs {
		driverDocs[i] = toDriverDocument(doc)
	}

	imported, failures, err := g.driver.ImportDocuments(ctx, driverDocs)
	if err != nil {
		return nil, searchEngineError("ImportDocuments", err)
	}

	result := &domain.ImportResult{Imported: imported}
	for _, f := range failures {
		result.Failures = append(result.Failures, domain.DocumentFailure{ID: f.ID, Reason: f.Reason})
	}
	return result, nil
}

func (g *SearchEngineGateway) Search(ctx context.Context, filter domain.PlaceFilter) (*domain.IndexSearchResponse, error) {
	resp, err := g.driver.Search(ctx, driver.SearchRequest{
		Query:     filter.Query,
		Filter:    driver.RenderMeilisearchFilter(filter),
		Sort:      driver.RenderMeilisearchSort(filter),
		Page:      int64(filter.Page),
		PerPage:   int64(filter.PerPage),
		Facets:    searchFacets,
		SearchOn:  searchOnFields,
		Highlight: filter.Highlight,
	})
	if err != nil {
		return nil, searchEngineError("Search", err)
	}

	out := &domain.IndexSearchResponse{
		Hits:             make([]domain.IndexHit, 0, len(resp.Hits)),
		TotalHits:        resp.TotalHits,
		Page:             int(resp.Page),
		ProcessingTimeMs: resp.ProcessingTimeMs,
		Facets:           resp.FacetDistribution,
	}
	for _, h := range resp.Hits {
		out.Hits = append(out.Hits, domain.IndexHit{
			Document:       toDomainDocument(h.Document),
			DistanceMeters: h.GeoDistance,
			Highlights:     highlightsFrom(h.Formatted),
			RankingScore:   h.RankingScore,
		})
	}
	return out, nil
}

func highlightsFrom(formatted map[string]any) map[string]string {
	if len(formatted) == 0 {
		return nil
	}
	out := make(map[string]string, len(highlightFields))
	for _, field := range highlightFields {
		if s, ok := formatted[field].(string); ok && s != "" {
			out[field] = s
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toDriverDocument(doc domain.IndexDocument) driver.PlaceDocument {
	return driver.PlaceDocument{
		ID:               doc.ID,
		Name:             doc.Name,
		Categories:       doc.Categories,
		Address:          doc.Address,
		WorkabilityScore: doc.WorkabilityScore,
		WifiAvailable:    doc.WifiAvailable,
		OutletsAvailable: doc.OutletsAvailable,
		Geo:              driver.GeoField{Lat: doc.Geo.Lat, Lng: doc.Geo.Lng},
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		SearchableText:   doc.SearchableText,
	}
}

func toDomainDocument(doc driver.PlaceDocument) domain.IndexDocument {
	return domain.IndexDocument{
		ID:               doc.ID,
		Name:             doc.Name,
		Categories:       doc.Categories,
		Address:          doc.Address,
		WorkabilityScore: doc.WorkabilityScore,
		WifiAvailable:    doc.WifiAvailable,
		OutletsAvailable: doc.OutletsAvailable,
		Geo:              domain.GeoPoint{Lat: doc.Geo.Lat, Lng: doc.Geo.Lng},
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		SearchableText:   doc.SearchableText,
	}
}
