// Package service implements the mapping I/O façade: the operation layer
// between callers and the reference-table store, including the idempotent
// key-sync reconciliation.
package service

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/mapping"
)

// MappingService exposes reference-table operations and object mapping over
// a pluggable store backend.
type MappingService struct {
	store  domain.ReferenceTableStore
	mapper *mapping.Mapper
	conv   *mapping.Converter
	logger *slog.Logger
}

// NewMappingService creates the façade over the given store.
func NewMappingService(store domain.ReferenceTableStore, logger *slog.Logger) *MappingService {
	return &MappingService{
		store:  store,
		mapper: mapping.NewMapper(),
		conv:   mapping.NewConverter(),
		logger: logger,
	}
}

// Mapper returns the object mapper, for profile registration by callers.
func (s *MappingService) Mapper() *mapping.Mapper { return s.mapper }

// CreateReferenceTable validates and creates a new reference table. Columns
// are stored in their declared display order.
func (s *MappingService) CreateReferenceTable(ctx context.Context, req domain.CreateReferenceTableRequest) (*domain.ReferenceTable, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	columns := append([]domain.Column(nil), req.Columns...)
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Order < columns[j].Order })

	table, err := s.store.CreateTable(ctx, req.Name, columns, req.IsVisible, req.NotifyOnNewMapping)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reference table created", "table", req.Name, "columns", len(columns))
	return table, nil
}

// AddOrUpdateRow upserts a single row: attribute merge on an existing key,
// a fresh row (IsNew = true) otherwise.
func (s *MappingService) AddOrUpdateRow(ctx context.Context, table, key string, attributes map[string]interface{}) error {
	if strings.TrimSpace(key) == "" {
		return domain.ErrValidation("row key is required")
	}
	return s.store.UpsertRow(ctx, table, key, attributes)
}

// GetReferenceTable returns a table, or (nil, nil) when absent.
func (s *MappingService) GetReferenceTable(ctx context.Context, name string) (*domain.ReferenceTable, error) {
	return s.store.GetTable(ctx, name)
}

// GetAllTableNames returns the display names of all tables, sorted for
// stable output.
func (s *MappingService) GetAllTableNames(ctx context.Context) ([]string, error) {
	names, err := s.store.ListTableNames(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// DeleteReferenceTable removes a table, reporting whether it existed.
func (s *MappingService) DeleteReferenceTable(ctx context.Context, name string) (bool, error) {
	existed, err := s.store.DeleteTable(ctx, name)
	if err != nil {
		return false, err
	}
	if existed {
		s.logger.Info("reference table deleted", "table", name)
	}
	return existed, nil
}

// MarkRowClassified clears a row's IsNew flag. This is the explicit caller
// action that declares a row's classification attributes supplied; the store
// never clears the flag on its own.
func (s *MappingService) MarkRowClassified(ctx context.Context, table, key string) error {
	return s.store.MarkRowClassified(ctx, table, key)
}

// ReadMapping returns the table's rows in insertion order. Each entry holds
// the row's attributes plus the row key under the reserved "key" entry.
func (s *MappingService) ReadMapping(ctx context.Context, table string) ([]domain.MappingEntry, error) {
	t, err := s.store.GetTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound("reference table %q not found", table)
	}

	entries := make([]domain.MappingEntry, 0, len(t.Rows))
	for _, row := range t.Rows {
		entry := make(domain.MappingEntry, len(row.Attributes)+1)
		for k, v := range row.Attributes {
			entry[k] = v
		}
		entry[domain.KeyColumnName] = row.Key
		entries = append(entries, entry)
	}
	return entries, nil
}

// SyncMapping reconciles the keys found in a raw dataset against a table:
// the key attribute is extracted from each record by reflective name lookup,
// the batch is deduplicated, and a placeholder row (empty attributes,
// IsNew = true) is inserted for every key not yet present. Existing rows are
// left entirely untouched, so re-syncing the same dataset is idempotent.
// The table is created key-only when missing. Returns the number of
// genuinely new keys; empty input returns 0.
func (s *MappingService) SyncMapping(ctx context.Context, data []interface{}, keyAttribute, table string) (int, error) {
	if strings.TrimSpace(table) == "" {
		return 0, domain.ErrValidation("table name is required")
	}
	if strings.TrimSpace(keyAttribute) == "" {
		return 0, domain.ErrValidation("key attribute name is required")
	}

	exists, err := s.store.Exists(ctx, table)
	if err != nil {
		return 0, err
	}
	if !exists {
		if _, err := s.store.CreateTable(ctx, table, nil, true, false); err != nil {
			// A concurrent sync may have created it in the meantime.
			if _, ok := err.(*domain.ConflictError); !ok {
				return 0, err
			}
		} else {
			s.logger.Info("reference table created by sync", "table", table)
		}
	}

	keys := s.extractKeys(data, keyAttribute)
	if len(keys) == 0 {
		return 0, nil
	}

	added, err := s.store.AddKeysIfAbsent(ctx, table, keys)
	if err != nil {
		return 0, err
	}
	s.logger.Info("mapping synced", "table", table, "records", len(data), "distinct_keys", len(keys), "new_keys", added)
	return added, nil
}

// extractKeys pulls the key attribute out of each record and deduplicates
// while preserving first-seen order. Records without the attribute, or with
// a nil or empty key value, are skipped.
func (s *MappingService) extractKeys(data []interface{}, keyAttribute string) []string {
	seen := make(map[string]struct{}, len(data))
	keys := make([]string, 0, len(data))
	for _, record := range data {
		value, ok := mapping.LookupField(record, keyAttribute, false)
		if !ok || value == nil {
			continue
		}
		converted, err := s.conv.Convert(value, reflect.TypeOf(""))
		if err != nil {
			s.logger.Warn("skipping record with unconvertible key", "attribute", keyAttribute, "error", err)
			continue
		}
		key := converted.(string)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// MapRecord maps a raw record onto a table's column schema: for each column,
// the record field with the matching name is converted to the column's
// declared data type. Missing fields yield nil attribute values.
func (s *MappingService) MapRecord(ctx context.Context, table string, record map[string]interface{}) (map[string]interface{}, error) {
	t, err := s.store.GetTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound("reference table %q not found", table)
	}

	attrs := make(map[string]interface{}, len(t.Columns))
	var failures []string
	for _, col := range t.Columns {
		value, ok := mapping.LookupField(record, col.Name, false)
		if !ok || value == nil {
			attrs[col.Name] = nil
			continue
		}
		target := mapping.TypeForName(col.DataType)
		if target == nil {
			attrs[col.Name] = value
			continue
		}
		converted, err := s.conv.Convert(value, target)
		if err != nil {
			failures = append(failures, col.Name+": "+err.Error())
			continue
		}
		attrs[col.Name] = converted
	}
	if len(failures) > 0 {
		return nil, domain.ErrValidation("record does not match table schema: %s", strings.Join(failures, "; "))
	}
	return attrs, nil
}

// MapObject maps a source record onto the target shape using the registered
// profiles and the per-call configuration.
func (s *MappingService) MapObject(source, target interface{}, cfg mapping.Config) (*mapping.Result, error) {
	return s.mapper.Map(source, target, cfg)
}
