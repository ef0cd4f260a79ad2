// Package airtable provides the Airtable REST record store implementation.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heritagebox/chat-service/internal/core/records"
)

const defaultBaseURL = "https://api.airtable.com/v0"

// StoreConfig holds the Airtable connection configuration.
type StoreConfig struct {
	// BaseURL overrides the Airtable API endpoint (for tests).
	BaseURL string
	APIKey  string
	BaseID  string
	// TableIDs maps logical table names to Airtable table ids. Unmapped
	// tables are addressed by name.
	TableIDs   map[string]string
	HTTPClient *http.Client
}

// Store implements the records.Store interface against the Airtable REST API.
type Store struct {
	baseURL    string
	apiKey     string
	baseID     string
	tableIDs   map[string]string
	httpClient *http.Client
}

// NewStore creates a new Airtable record store.
func NewStore(config *StoreConfig) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("airtable API key is required")
	}
	if config.BaseID == "" {
		return nil, fmt.Errorf("airtable base id is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Store{
		baseURL:    baseURL,
		apiKey:     config.APIKey,
		baseID:     config.BaseID,
		tableIDs:   config.TableIDs,
		httpClient: httpClient,
	}, nil
}

type airtableRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type airtableList struct {
	Records []airtableRecord `json:"records"`
}

// FindByField returns records whose field equals value, via filterByFormula.
func (s *Store) FindByField(ctx context.Context, table, field string, value any) ([]records.Record, error) {
	formula := fmt.Sprintf("{%s}='%v'", field, value)
	query := url.Values{"filterByFormula": {formula}}

	endpoint := fmt.Sprintf("%s/%s/%s?%s", s.baseURL, s.baseID, s.tableID(table), query.Encode())

	var list airtableList
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &list); err != nil {
		return nil, err
	}
	return convertRecords(list.Records), nil
}

// List returns all records in a table.
func (s *Store) List(ctx context.Context, table string) ([]records.Record, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", s.baseURL, s.baseID, s.tableID(table))

	var list airtableList
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &list); err != nil {
		return nil, err
	}
	return convertRecords(list.Records), nil
}

// Create inserts a new record.
func (s *Store) Create(ctx context.Context, table string, fields map[string]any) (*records.Record, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", s.baseURL, s.baseID, s.tableID(table))
	body := map[string]any{"fields": fields}

	var created airtableRecord
	if err := s.do(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}
	return &records.Record{ID: created.ID, Fields: created.Fields}, nil
}

// Update patches fields on an existing record.
func (s *Store) Update(ctx context.Context, table, id string, fields map[string]any) (*records.Record, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/%s", s.baseURL, s.baseID, s.tableID(table), id)
	body := map[string]any{"fields": fields}

	var updated airtableRecord
	if err := s.do(ctx, http.MethodPatch, endpoint, body, &updated); err != nil {
		return nil, err
	}
	return &records.Record{ID: updated.ID, Fields: updated.Fields}, nil
}

// EnsureIndexes is a no-op: Airtable manages its own indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return nil
}

// Ping verifies the API is reachable by listing one record from any table.
func (s *Store) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s/%s?maxRecords=1", s.baseURL, s.baseID, s.tableID(records.TableProducts))
	var list airtableList
	return s.do(ctx, http.MethodGet, endpoint, nil, &list)
}

// Close releases resources (no persistent connection for HTTP).
func (s *Store) Close(ctx context.Context) error {
	return nil
}

// tableID resolves a logical table name to its Airtable id.
func (s *Store) tableID(table string) string {
	if id, ok := s.tableIDs[table]; ok && id != "" {
		return id
	}
	return table
}

// do executes one API request and decodes the response into out.
func (s *Store) do(ctx context.Context, method, endpoint string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("airtable API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// setHeaders sets the required headers for Airtable API requests.
func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// convertRecords maps API records to domain records.
func convertRecords(in []airtableRecord) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		out = append(out, records.Record{ID: r.ID, Fields: r.Fields})
	}
	return out
}
