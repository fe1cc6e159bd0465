package catalog

import "fmt"

// StoreType selects the catalog persistence backend.
type StoreType string

const (
	// StoreTypeJSON uses a JSON metadata file (the artifact format served
	// from the CDN).
	StoreTypeJSON StoreType = "json"
	// StoreTypeSQLite uses a SQLite database.
	StoreTypeSQLite StoreType = "sqlite"
)

// NewStore creates a catalog store of the specified type at path.
func NewStore(storeType, path string) (Store, error) {
	switch StoreType(storeType) {
	case StoreTypeJSON, "":
		return NewJSONStore(path), nil
	case StoreTypeSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown catalog store type: %s (supported: json, sqlite)", storeType)
	}
}
