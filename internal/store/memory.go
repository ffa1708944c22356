package store

import (
	"context"
	"sync"
	"time"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
)

// MemoryStore is the volatile in-memory reference-table store. It is
// provisioned once per process and shared across concurrent callers:
// mutations on a single table are serialized by a per-table lock, and reads
// hand out deep copies so a caller never observes a partially-written row.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable // keyed by normalized name
}

type memTable struct {
	mu    sync.RWMutex
	table domain.ReferenceTable
}

var _ domain.ReferenceTableStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

func (s *MemoryStore) lookup(name string) *memTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[domain.NormalizeTableName(name)]
}

func (s *MemoryStore) CreateTable(ctx context.Context, name string, columns []domain.Column, isVisible, notifyOnNewMapping bool) (*domain.ReferenceTable, error) {
	normalized := domain.NormalizeTableName(name)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.tables[normalized]; taken {
		return nil, domain.ErrConflict("reference table %q already exists", name)
	}

	entry := &memTable{table: domain.ReferenceTable{
		Name:               name,
		KeyColumn:          domain.KeyColumnName,
		Columns:            append([]domain.Column(nil), columns...),
		CreatedAt:          now,
		UpdatedAt:          now,
		IsVisible:          isVisible,
		NotifyOnNewMapping: notifyOnNewMapping,
	}}
	s.tables[normalized] = entry
	return entry.table.Clone(), nil
}

func (s *MemoryStore) GetTable(ctx context.Context, name string) (*domain.ReferenceTable, error) {
	entry := s.lookup(name)
	if entry == nil {
		return nil, nil
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.table.Clone(), nil
}

func (s *MemoryStore) ListTableNames(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for _, entry := range s.tables {
		names = append(names, entry.table.Name)
	}
	return names, nil
}

func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	return s.lookup(name) != nil, nil
}

func (s *MemoryStore) UpsertRow(ctx context.Context, table, key string, attributes map[string]interface{}) error {
	entry := s.lookup(table)
	if entry == nil {
		return domain.ErrNotFound("reference table %q not found", table)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	now := time.Now().UTC()

	if row := entry.table.FindRow(key); row != nil {
		if row.Attributes == nil {
			row.Attributes = make(map[string]interface{}, len(attributes))
		}
		for k, v := range attributes {
			row.Attributes[k] = v
		}
		row.UpdatedAt = now
	} else {
		entry.table.Rows = append(entry.table.Rows, newRow(key, attributes, now))
	}
	entry.table.UpdatedAt = now
	return nil
}

func (s *MemoryStore) AddKeysIfAbsent(ctx context.Context, table string, keys []string) (int, error) {
	entry := s.lookup(table)
	if entry == nil {
		return 0, domain.ErrNotFound("reference table %q not found", table)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	now := time.Now().UTC()

	added := 0
	for _, key := range keys {
		if entry.table.FindRow(key) != nil {
			continue
		}
		entry.table.Rows = append(entry.table.Rows, newRow(key, nil, now))
		added++
	}
	if added > 0 {
		entry.table.UpdatedAt = now
	}
	return added, nil
}

func (s *MemoryStore) MarkRowClassified(ctx context.Context, table, key string) error {
	entry := s.lookup(table)
	if entry == nil {
		return domain.ErrNotFound("reference table %q not found", table)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	row := entry.table.FindRow(key)
	if row == nil {
		return domain.ErrNotFound("row %q not found in table %q", key, table)
	}
	row.IsNew = false
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeleteTable(ctx context.Context, name string) (bool, error) {
	normalized := domain.NormalizeTableName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[normalized]; !ok {
		return false, nil
	}
	delete(s.tables, normalized)
	return true, nil
}

func newRow(key string, attributes map[string]interface{}, now time.Time) domain.Row {
	attrs := make(map[string]interface{}, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return domain.Row{
		Key:        key,
		Attributes: attrs,
		CreatedAt:  now,
		UpdatedAt:  now,
		IsNew:      true,
	}
}
