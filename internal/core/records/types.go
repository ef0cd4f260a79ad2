// Package records provides the record store type constants.
package records

// Type represents the type of record store backend.
type Type string

const (
	// TypeMongoDB represents a MongoDB-backed record store.
	TypeMongoDB Type = "mongodb"
	// TypeAirtable represents the Airtable REST API.
	TypeAirtable Type = "airtable"
)
