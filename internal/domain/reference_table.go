package domain

import (
	"strings"
	"time"
)

// KeyColumnName is the fixed name of the key column of every reference table.
// The key column is not listed in a table's Columns.
const KeyColumnName = "key"

// Column describes one attribute column of a reference table. Order is the
// authoritative display and serialization position.
type Column struct {
	Name        string  `json:"name"`
	DataType    string  `json:"dataType"`
	Description *string `json:"description,omitempty"`
	Order       int     `json:"order"`
}

// Row is one entry of a reference table. Key equality is the table's primary
// identity; attribute values are nullable. IsNew starts true and is only
// cleared through an explicit MarkRowClassified call, never by the store.
type Row struct {
	Key        string                 `json:"key"`
	Attributes map[string]interface{} `json:"attributes"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	IsNew      bool                   `json:"isNew"`
}

// ReferenceTable is a named lookup table of key → classification-attribute
// rows used to enrich or classify external data.
type ReferenceTable struct {
	Name               string    `json:"name"`
	KeyColumn          string    `json:"keyColumn"`
	Columns            []Column  `json:"columns"`
	Rows               []Row     `json:"rows"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	IsVisible          bool      `json:"isVisible"`
	NotifyOnNewMapping bool      `json:"notifyOnNewMapping"`
}

// NormalizeTableName returns the canonical identity of a table name. Both
// store backends compare and index tables by this form; the display name
// keeps its creation-time casing.
func NormalizeTableName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindRow returns a pointer into Rows for the given key, or nil.
func (t *ReferenceTable) FindRow(key string) *Row {
	for i := range t.Rows {
		if t.Rows[i].Key == key {
			return &t.Rows[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the table. Stores hand out clones so callers
// can never observe or corrupt shared state.
func (t *ReferenceTable) Clone() *ReferenceTable {
	out := *t
	out.Columns = make([]Column, len(t.Columns))
	copy(out.Columns, t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out.Rows[i] = r
		if r.Attributes != nil {
			attrs := make(map[string]interface{}, len(r.Attributes))
			for k, v := range r.Attributes {
				attrs[k] = v
			}
			out.Rows[i].Attributes = attrs
		}
	}
	return &out
}

// CreateReferenceTableRequest holds parameters for creating a reference table.
type CreateReferenceTableRequest struct {
	Name               string   `json:"name"`
	Columns            []Column `json:"columns"`
	IsVisible          bool     `json:"isVisible"`
	NotifyOnNewMapping bool     `json:"notifyOnNewMapping"`
}

// Validate checks that the request is well-formed.
func (r *CreateReferenceTableRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrValidation("table name is required")
	}
	seen := make(map[string]struct{}, len(r.Columns))
	for _, c := range r.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return ErrValidation("column name is required")
		}
		if strings.EqualFold(c.Name, KeyColumnName) {
			return ErrValidation("column name %q is reserved for the key column", c.Name)
		}
		lower := strings.ToLower(c.Name)
		if _, dup := seen[lower]; dup {
			return ErrValidation("duplicate column %q", c.Name)
		}
		seen[lower] = struct{}{}
	}
	return nil
}

// MappingEntry is one row of a mapping read: the row's attributes plus the
// row key under the reserved "key" entry, for uniform iteration.
type MappingEntry map[string]interface{}
