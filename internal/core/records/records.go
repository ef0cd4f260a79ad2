// Package records defines the record store interface used for customer,
// prospect, product, order and chat-transcript records. Calls against the
// store are best-effort: failures are logged by callers and never block the
// chat flow.
package records

import "context"

// Logical table names. Backends map these to collections (MongoDB) or table
// ids (Airtable).
const (
	TableCustomers   = "Customers"
	TableProspects   = "Prospects"
	TableProducts    = "Products"
	TableOrders      = "Orders"
	TableTranscripts = "ChatTranscripts"
)

// Record is one row/document in a table.
type Record struct {
	ID     string
	Fields map[string]any
}

// StringField returns a field as a string, or the empty string if absent or
// not a string.
func (r Record) StringField(name string) string {
	if v, ok := r.Fields[name].(string); ok {
		return v
	}
	return ""
}

// FloatField returns a numeric field as a float64, tolerating the types the
// backends decode numbers into.
func (r Record) FloatField(name string) float64 {
	switch v := r.Fields[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Store defines the record store operations.
type Store interface {
	// FindByField returns records whose field equals value.
	FindByField(ctx context.Context, table, field string, value any) ([]Record, error)

	// List returns all records in a table.
	List(ctx context.Context, table string) ([]Record, error)

	// Create inserts a new record and returns it with its assigned id.
	Create(ctx context.Context, table string, fields map[string]any) (*Record, error)

	// Update patches fields on an existing record.
	Update(ctx context.Context, table, id string, fields map[string]any) (*Record, error)

	// EnsureIndexes creates any lookup indexes the backend supports.
	EnsureIndexes(ctx context.Context) error

	// Ping checks if the store connection is alive.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close(ctx context.Context) error
}
