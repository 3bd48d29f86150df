package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/meilisearch/meilisearch-go"
)

const defaultTaskPollInterval = 50 * time.Millisecond

var (
	placeFilterableAttributes = []string{"categories", "wifi_available", "outlets_available", "workability_score", "_geo"}
	placeSortableAttributes   = []string{"name", "workability_score", "created_at", "updated_at", "_geo"}
	placeSearchableAttributes = []string{"name", "searchable_text", "categories", "address"}

	highlightAttributes = []string{"name", "address", "searchable_text"}

	// Meilisearch document id charset.
	documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,511}$`)
)

type MeilisearchDriver struct {
	client      meilisearch.ServiceManager
	index       meilisearch.IndexManager
	indexName   string
	taskTimeout time.Duration
}

func NewMeilisearchDriver(client meilisearch.ServiceManager, indexName string, taskTimeout time.Duration) *MeilisearchDriver {
	return &MeilisearchDriver{
		client:      client,
		index:       client.Index(indexName),
		indexName:   indexName,
		taskTimeout: taskTimeout,
	}
}

func (d *MeilisearchDriver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.taskTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.taskTimeout)
}

// Healthy reports whether the server answers its health endpoint.
func (d *MeilisearchDriver) Healthy(ctx context.Context) error {
	if _, err := d.client.HealthWithContext(ctx); err != nil {
		return driverErr("Healthy", err)
	}
	return nil
}

// EnsureIndex creates the index when the existence check returns 404 and
// then applies attribute settings. Other lookup errors are returned
// without touching the index.
func (d *MeilisearchDriver) EnsureIndex(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	if _, err := d.client.GetIndexWithContext(ctx, d.indexName); err != nil {
		if !IsNotFound(err) {
			return driverErr("EnsureIndex", err)
		}
		task, err := d.client.CreateIndexWithContext(ctx, &meilisearch.IndexConfig{
			Uid:        d.indexName,
			PrimaryKey: "id",
		})
		if err != nil {
			return driverErr("EnsureIndex", err)
		}
		if err := d.waitForTask(ctx, "EnsureIndex", task.TaskUID); err != nil {
			return err
		}
	}

	task, err := d.index.UpdateFilterableAttributesWithContext(ctx, &placeFilterableAttributes)
	if err != nil {
		return driverErr("EnsureIndex", fmt.Errorf("filterable attributes: %w", err))
	}
	if err := d.waitForTask(ctx, "EnsureIndex", task.TaskUID); err != nil {
		return err
	}

	task, err = d.index.UpdateSortableAttributesWithContext(ctx, &placeSortableAttributes)
	if err != nil {
		return driverErr("EnsureIndex", fmt.Errorf("sortable attributes: %w", err))
	}
	if err := d.waitForTask(ctx, "EnsureIndex", task.TaskUID); err != nil {
		return err
	}

	task, err = d.index.UpdateSearchableAttributesWithContext(ctx, &placeSearchableAttributes)
	if err != nil {
		return driverErr("EnsureIndex", fmt.Errorf("searchable attributes: %w", err))
	}
	return d.waitForTask(ctx, "EnsureIndex", task.TaskUID)
}

// UpsertDocument replaces the document with the same id.
func (d *MeilisearchDriver) UpsertDocument(ctx context.Context, doc PlaceDocument) error {
	if reason := validateDocument(doc); reason != "" {
		return &DriverError{Op: "UpsertDocument", Err: reason, StatusCode: http.StatusBadRequest}
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	task, err := d.index.AddDocumentsWithContext(ctx, []PlaceDocument{doc})
	if err != nil {
		return driverErr("UpsertDocument", err)
	}
	return d.waitForTask(ctx, "UpsertDocument", task.TaskUID)
}

// ImportDocuments validates each document, reports rejects individually
// and adds the rest as one task. A transport error or a failed task is a
// batch failure.
func (d *MeilisearchDriver) ImportDocuments(ctx context.Context, docs []PlaceDocument) (int, []DocumentFailure, error) {
	valid := make([]PlaceDocument, 0, len(docs))
	var failures []DocumentFailure
	for _, doc := range docs {
		if reason := validateDocument(doc); reason != "" {
			failures = append(failures, DocumentFailure{ID: doc.ID, Reason: reason})
			continue
		}
		valid = append(valid, doc)
	}
	if len(valid) == 0 {
		return 0, failures, nil
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	task, err := d.index.AddDocumentsWithContext(ctx, valid)
	if err != nil {
		return 0, failures, driverErr("ImportDocuments", err)
	}
	if err := d.waitForTask(ctx, "ImportDocuments", task.TaskUID); err != nil {
		return 0, failures, err
	}
	return len(valid), failures, nil
}

// GetDocument returns (nil, nil) when the document does not exist.
func (d *MeilisearchDriver) GetDocument(ctx context.Context, id string) (*PlaceDocument, error) {
	if !documentIDPattern.MatchString(id) {
		return nil, nil
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var doc PlaceDocument
	if err := d.index.GetDocumentWithContext(ctx, id, nil, &doc); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, driverErr("GetDocument", err)
	}
	return &doc, nil
}

// DeleteDocument removes one document. A 404 (missing index) is success;
// Meilisearch already treats a missing document id as a no-op.
func (d *MeilisearchDriver) DeleteDocument(ctx context.Context, id string) error {
	if !documentIDPattern.MatchString(id) {
		return nil
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	task, err := d.index.DeleteDocumentWithContext(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return driverErr("DeleteDocument", err)
	}
	return d.waitForTask(ctx, "DeleteDocument", task.TaskUID)
}

// DeleteAllDocuments empties the index without dropping it.
func (d *MeilisearchDriver) DeleteAllDocuments(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	task, err := d.index.DeleteAllDocumentsWithContext(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return driverErr("DeleteAllDocuments", err)
	}
	return d.waitForTask(ctx, "DeleteAllDocuments", task.TaskUID)
}

type rawHit struct {
	PlaceDocument
	GeoDistance  *float64       `json:"_geoDistance"`
	Formatted    map[string]any `json:"_formatted"`
	RankingScore *float64       `json:"_rankingScore"`
}

func (d *MeilisearchDriver) Search(ctx context.Context, r SearchRequest) (*SearchResponse, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	req := &meilisearch.SearchRequest{
		Page:                 r.Page,
		HitsPerPage:          r.PerPage,
		Sort:                 r.Sort,
		Facets:               r.Facets,
		AttributesToSearchOn: r.SearchOn,
		ShowRankingScore:     true,
	}
	if r.Filter != "" {
		req.Filter = r.Filter
	}
	if r.Highlight {
		req.AttributesToHighlight = highlightAttributes
	}

	query := r.Query
	if query == "*" {
		query = ""
	}

	result, err := d.index.SearchWithContext(ctx, query, req)
	if err != nil {
		return nil, driverErr("Search", err)
	}

	// Hits and facets are re-decoded through JSON into local types.
	rawHits, err := json.Marshal(result.Hits)
	if err != nil {
		return nil, &DriverError{Op: "Search", Err: "encode hits: " + err.Error(), Cause: err}
	}
	var hits []rawHit
	if err := json.Unmarshal(rawHits, &hits); err != nil {
		return nil, &DriverError{Op: "Search", Err: "decode hits: " + err.Error(), Cause: err}
	}

	facets := map[string]map[string]int64{}
	if result.FacetDistribution != nil {
		rawFacets, err := json.Marshal(result.FacetDistribution)
		if err != nil {
			return nil, &DriverError{Op: "Search", Err: "encode facets: " + err.Error(), Cause: err}
		}
		if err := json.Unmarshal(rawFacets, &facets); err != nil {
			return nil, &DriverError{Op: "Search", Err: "decode facets: " + err.Error(), Cause: err}
		}
	}

	out := &SearchResponse{
		Hits:              make([]SearchHit, 0, len(hits)),
		TotalHits:         result.TotalHits,
		Page:              result.Page,
		ProcessingTimeMs:  result.ProcessingTimeMs,
		FacetDistribution: facets,
	}
	for _, h := range hits {
		out.Hits = append(out.Hits, SearchHit{
			Document:     h.PlaceDocument,
			GeoDistance:  h.GeoDistance,
			Formatted:    h.Formatted,
			RankingScore: h.RankingScore,
		})
	}
	return out, nil
}

func (d *MeilisearchDriver) waitForTask(ctx context.Context, op string, taskUID int64) error {
	task, err := d.index.WaitForTaskWithContext(ctx, taskUID, defaultTaskPollInterval)
	if err != nil {
		return driverErr(op, fmt.Errorf("wait for task %d: %w", taskUID, err))
	}
	if task.Status == meilisearch.TaskStatusFailed {
		return &DriverError{
			Op:         op,
			Err:        fmt.Sprintf("task %d failed: %s", taskUID, task.Error.Message),
			StatusCode: http.StatusUnprocessableEntity,
		}
	}
	return nil
}

func validateDocument(doc PlaceDocument) string {
	switch {
	case !documentIDPattern.MatchString(doc.ID):
		return "invalid document id"
	case doc.Name == "":
		return "missing name"
	case doc.Geo.Lat < -90 || doc.Geo.Lat > 90 || doc.Geo.Lng < -180 || doc.Geo.Lng > 180:
		return "geo coordinate out of range"
	}
	return ""
}

// IsNotFound reports a 404 from Meilisearch.
func IsNotFound(err error) bool {
	var me *meilisearch.Error
	if errors.As(err, &me) {
		return me.StatusCode == http.StatusNotFound
	}
	var de *DriverError
	if errors.As(err, &de) {
		return de.StatusCode == http.StatusNotFound
	}
	return false
}

func driverErr(op string, err error) *DriverError {
	de := &DriverError{Op: op, Err: err.Error(), Cause: err}
	var me *meilisearch.Error
	if errors.As(err, &me) {
		de.StatusCode = me.StatusCode
	}
	return de
}
