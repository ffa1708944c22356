package domain

import "context"

// ReferenceTableStore is the persistence contract for reference tables.
// Implementations: the volatile in-memory store and the durable file store
// (store.MemoryStore, store.FileStore). Both honor the contract identically:
//
//   - Table identity is the normalized (lower-cased) name; the display name
//     keeps its creation-time casing.
//   - Mutations on a single table are serialized; a reader never observes a
//     partially-written row.
//   - A store instance is long-lived and shared across concurrent callers.
type ReferenceTableStore interface {
	// CreateTable creates a new table. Returns a ConflictError when a table
	// with the same normalized name already exists.
	CreateTable(ctx context.Context, name string, columns []Column, isVisible, notifyOnNewMapping bool) (*ReferenceTable, error)

	// GetTable returns the table, or (nil, nil) when absent. Absence is a
	// normal, non-error outcome.
	GetTable(ctx context.Context, name string) (*ReferenceTable, error)

	// ListTableNames returns the display names of all tables. Ordering is
	// not contractual.
	ListTableNames(ctx context.Context) ([]string, error)

	// Exists reports whether a table with the given name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// UpsertRow merges attributes into the row identified by key, refreshing
	// UpdatedAt and leaving IsNew untouched; a missing key creates a new row
	// with IsNew = true. Returns a NotFoundError when the table is missing.
	UpsertRow(ctx context.Context, table, key string, attributes map[string]interface{}) error

	// AddKeysIfAbsent inserts an empty row (IsNew = true) for every key not
	// already present and returns the number of rows added. Existing rows
	// are left entirely untouched. The decide-and-insert step is atomic per
	// table, so two racing syncs never double-insert a key.
	AddKeysIfAbsent(ctx context.Context, table string, keys []string) (int, error)

	// MarkRowClassified clears IsNew on the row. Returns a NotFoundError
	// when the table or row is missing.
	MarkRowClassified(ctx context.Context, table, key string) error

	// DeleteTable removes the table, reporting whether it existed.
	DeleteTable(ctx context.Context, name string) (bool, error)
}
