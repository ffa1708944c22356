package store

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
)

const (
	schemaSuffix = ".schema.json"
	rowsSuffix   = ".rows.json"
)

// Layout names the sub-folders the file store keeps table configuration and
// row data under.
type Layout struct {
	ConfigDir string // default "config"
	DataDir   string // default "data"
}

func (l Layout) withDefaults() Layout {
	if l.ConfigDir == "" {
		l.ConfigDir = "config"
	}
	if l.DataDir == "" {
		l.DataDir = "data"
	}
	return l
}

// schemaDoc is the persisted table configuration: column schema and flags,
// one JSON document per table.
type schemaDoc struct {
	Name               string          `json:"name"`
	KeyColumn          string          `json:"keyColumn"`
	Columns            []domain.Column `json:"columns"`
	IsVisible          bool            `json:"isVisible"`
	NotifyOnNewMapping bool            `json:"notifyOnNewMapping"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// rowsDoc is the persisted row array, one JSON document per table.
type rowsDoc struct {
	Rows []domain.Row `json:"rows"`
}

// FileStore is the durable reference-table store. Each table is serialized
// to two JSON documents (schema and rows) at deterministic paths derived
// from the sanitized, lower-cased table name. The physical medium is
// abstracted behind a DocumentProvider, so the same logic runs against local
// disk or an object store. Mutations on a single table are serialized by a
// per-table lock.
type FileStore struct {
	provider DocumentProvider
	layout   Layout

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per normalized table name
}

var _ domain.ReferenceTableStore = (*FileStore)(nil)

// NewFileStore creates a file store over the given provider.
func NewFileStore(provider DocumentProvider, layout Layout) *FileStore {
	return &FileStore{
		provider: provider,
		layout:   layout.withDefaults(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// tableLock returns the mutex serializing mutations on one table.
func (s *FileStore) tableLock(name string) *sync.Mutex {
	normalized := domain.NormalizeTableName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[normalized]
	if !ok {
		l = &sync.Mutex{}
		s.locks[normalized] = l
	}
	return l
}

// SanitizeTableFileName derives the file-name stem for a table: lower-cased,
// with anything outside [a-z0-9._-] replaced by an underscore.
func SanitizeTableFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (s *FileStore) schemaPath(name string) string {
	return path.Join(s.layout.ConfigDir, SanitizeTableFileName(name)+schemaSuffix)
}

func (s *FileStore) rowsPath(name string) string {
	return path.Join(s.layout.DataDir, SanitizeTableFileName(name)+rowsSuffix)
}

func (s *FileStore) CreateTable(ctx context.Context, name string, columns []domain.Column, isVisible, notifyOnNewMapping bool) (*domain.ReferenceTable, error) {
	lock := s.tableLock(name)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.provider.Exists(ctx, s.schemaPath(name))
	if err != nil {
		return nil, domain.ErrStorage(err, "check table %q", name)
	}
	if exists {
		return nil, domain.ErrConflict("reference table %q already exists", name)
	}

	if err := s.provider.EnsureDir(ctx, s.layout.ConfigDir); err != nil {
		return nil, domain.ErrStorage(err, "ensure config dir")
	}
	if err := s.provider.EnsureDir(ctx, s.layout.DataDir); err != nil {
		return nil, domain.ErrStorage(err, "ensure data dir")
	}

	now := time.Now().UTC()
	schema := schemaDoc{
		Name:               name,
		KeyColumn:          domain.KeyColumnName,
		Columns:            append([]domain.Column(nil), columns...),
		IsVisible:          isVisible,
		NotifyOnNewMapping: notifyOnNewMapping,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.provider.WriteJSON(ctx, s.schemaPath(name), &schema); err != nil {
		return nil, domain.ErrStorage(err, "write schema for table %q", name)
	}
	if err := s.provider.WriteJSON(ctx, s.rowsPath(name), &rowsDoc{Rows: []domain.Row{}}); err != nil {
		return nil, domain.ErrStorage(err, "write rows for table %q", name)
	}
	return assemble(&schema, &rowsDoc{}), nil
}

// load reads both documents of a table. Absent tables return (nil, nil, nil).
func (s *FileStore) load(ctx context.Context, name string) (*schemaDoc, *rowsDoc, error) {
	var schema schemaDoc
	found, err := s.provider.ReadJSON(ctx, s.schemaPath(name), &schema)
	if err != nil {
		return nil, nil, domain.ErrStorage(err, "read schema for table %q", name)
	}
	if !found {
		return nil, nil, nil
	}
	var rows rowsDoc
	if _, err := s.provider.ReadJSON(ctx, s.rowsPath(name), &rows); err != nil {
		return nil, nil, domain.ErrStorage(err, "read rows for table %q", name)
	}
	return &schema, &rows, nil
}

func (s *FileStore) GetTable(ctx context.Context, name string) (*domain.ReferenceTable, error) {
	schema, rows, err := s.load(ctx, name)
	if err != nil || schema == nil {
		return nil, err
	}
	return assemble(schema, rows), nil
}

func (s *FileStore) ListTableNames(ctx context.Context) ([]string, error) {
	files, err := s.provider.List(ctx, s.layout.ConfigDir)
	if err != nil {
		return nil, domain.ErrStorage(err, "list tables")
	}
	var names []string
	for _, f := range files {
		if !strings.HasSuffix(f, schemaSuffix) {
			continue
		}
		var schema schemaDoc
		found, err := s.provider.ReadJSON(ctx, path.Join(s.layout.ConfigDir, f), &schema)
		if err != nil {
			return nil, domain.ErrStorage(err, "read schema document %q", f)
		}
		if found {
			names = append(names, schema.Name)
		}
	}
	return names, nil
}

func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	exists, err := s.provider.Exists(ctx, s.schemaPath(name))
	if err != nil {
		return false, domain.ErrStorage(err, "check table %q", name)
	}
	return exists, nil
}

func (s *FileStore) UpsertRow(ctx context.Context, table, key string, attributes map[string]interface{}) error {
	lock := s.tableLock(table)
	lock.Lock()
	defer lock.Unlock()

	schema, rows, err := s.load(ctx, table)
	if err != nil {
		return err
	}
	if schema == nil {
		return domain.ErrNotFound("reference table %q not found", table)
	}

	now := time.Now().UTC()
	updated := false
	for i := range rows.Rows {
		if rows.Rows[i].Key == key {
			if rows.Rows[i].Attributes == nil {
				rows.Rows[i].Attributes = make(map[string]interface{}, len(attributes))
			}
			for k, v := range attributes {
				rows.Rows[i].Attributes[k] = v
			}
			rows.Rows[i].UpdatedAt = now
			updated = true
			break
		}
	}
	if !updated {
		rows.Rows = append(rows.Rows, newRow(key, attributes, now))
	}
	return s.flush(ctx, table, schema, rows, now)
}

func (s *FileStore) AddKeysIfAbsent(ctx context.Context, table string, keys []string) (int, error) {
	lock := s.tableLock(table)
	lock.Lock()
	defer lock.Unlock()

	schema, rows, err := s.load(ctx, table)
	if err != nil {
		return 0, err
	}
	if schema == nil {
		return 0, domain.ErrNotFound("reference table %q not found", table)
	}

	existing := make(map[string]struct{}, len(rows.Rows))
	for _, r := range rows.Rows {
		existing[r.Key] = struct{}{}
	}

	now := time.Now().UTC()
	added := 0
	for _, key := range keys {
		if _, ok := existing[key]; ok {
			continue
		}
		rows.Rows = append(rows.Rows, newRow(key, nil, now))
		existing[key] = struct{}{}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.flush(ctx, table, schema, rows, now); err != nil {
		return 0, err
	}
	return added, nil
}

func (s *FileStore) MarkRowClassified(ctx context.Context, table, key string) error {
	lock := s.tableLock(table)
	lock.Lock()
	defer lock.Unlock()

	schema, rows, err := s.load(ctx, table)
	if err != nil {
		return err
	}
	if schema == nil {
		return domain.ErrNotFound("reference table %q not found", table)
	}

	now := time.Now().UTC()
	for i := range rows.Rows {
		if rows.Rows[i].Key == key {
			rows.Rows[i].IsNew = false
			rows.Rows[i].UpdatedAt = now
			return s.flush(ctx, table, schema, rows, now)
		}
	}
	return domain.ErrNotFound("row %q not found in table %q", key, table)
}

func (s *FileStore) DeleteTable(ctx context.Context, name string) (bool, error) {
	lock := s.tableLock(name)
	lock.Lock()
	defer lock.Unlock()

	exists, err := s.provider.Exists(ctx, s.schemaPath(name))
	if err != nil {
		return false, domain.ErrStorage(err, "check table %q", name)
	}
	if !exists {
		return false, nil
	}
	if err := s.provider.Delete(ctx, s.rowsPath(name)); err != nil {
		return false, domain.ErrStorage(err, "delete rows for table %q", name)
	}
	if err := s.provider.Delete(ctx, s.schemaPath(name)); err != nil {
		return false, domain.ErrStorage(err, "delete schema for table %q", name)
	}
	return true, nil
}

// flush writes the rows document, then the schema document with a refreshed
// timestamp. Each write is individually atomic.
func (s *FileStore) flush(ctx context.Context, table string, schema *schemaDoc, rows *rowsDoc, now time.Time) error {
	if err := s.provider.WriteJSON(ctx, s.rowsPath(table), rows); err != nil {
		return domain.ErrStorage(err, "write rows for table %q", table)
	}
	schema.UpdatedAt = now
	if err := s.provider.WriteJSON(ctx, s.schemaPath(table), schema); err != nil {
		return domain.ErrStorage(err, "write schema for table %q", table)
	}
	return nil
}

func assemble(schema *schemaDoc, rows *rowsDoc) *domain.ReferenceTable {
	t := &domain.ReferenceTable{
		Name:               schema.Name,
		KeyColumn:          schema.KeyColumn,
		Columns:            append([]domain.Column(nil), schema.Columns...),
		Rows:               append([]domain.Row(nil), rows.Rows...),
		CreatedAt:          schema.CreatedAt,
		UpdatedAt:          schema.UpdatedAt,
		IsVisible:          schema.IsVisible,
		NotifyOnNewMapping: schema.NotifyOnNewMapping,
	}
	if t.KeyColumn == "" {
		t.KeyColumn = domain.KeyColumnName
	}
	return t
}
