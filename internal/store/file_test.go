package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
)

func TestSanitizeTableFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Products", "products"},
		{"  Sales Regions  ", "sales_regions"},
		{"a/b\\c", "a_b_c"},
		{"konto.2024-v1", "konto.2024-v1"},
		{"Umsatz€", "umsatz_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeTableFileName(tt.in), "input %q", tt.in)
	}
}

func TestFileStore_SurvivesReinstantiation(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFileStore(NewLocalProvider(dir), Layout{})
	_, err := s.CreateTable(ctx, "Products", []domain.Column{{Name: "category", DataType: "string", Order: 1}}, true, true)
	require.NoError(t, err)
	require.NoError(t, s.UpsertRow(ctx, "Products", "A", map[string]interface{}{"category": "X"}))
	require.NoError(t, s.MarkRowClassified(ctx, "Products", "A"))

	// A brand new store over the same directory sees everything.
	s2 := NewFileStore(NewLocalProvider(dir), Layout{})
	got, err := s2.GetTable(ctx, "products")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Products", got.Name)
	assert.True(t, got.NotifyOnNewMapping)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "X", got.Rows[0].Attributes["category"])
	assert.False(t, got.Rows[0].IsNew)
}

func TestFileStore_DocumentLayout(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFileStore(NewLocalProvider(dir), Layout{})
	_, err := s.CreateTable(ctx, "Sales Regions", nil, true, false)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config", "sales_regions.schema.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "data", "sales_regions.rows.json"))
	require.NoError(t, err)
}

func TestFileStore_CustomLayout(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFileStore(NewLocalProvider(dir), Layout{ConfigDir: "meta", DataDir: "tables"})
	_, err := s.CreateTable(ctx, "products", nil, true, false)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "meta", "products.schema.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "tables", "products.rows.json"))
	require.NoError(t, err)
}

func TestFileStore_CorruptSchemaSurfacesStorageError(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFileStore(NewLocalProvider(dir), Layout{})
	_, err := s.CreateTable(ctx, "products", nil, true, false)
	require.NoError(t, err)

	schemaFile := filepath.Join(dir, "config", "products.schema.json")
	require.NoError(t, os.WriteFile(schemaFile, []byte("{not json"), 0o644))

	_, err = s.GetTable(ctx, "products")
	var storageErr *domain.StorageError
	require.ErrorAs(t, err, &storageErr)
}

func TestFileStore_DeleteRemovesBothDocuments(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewFileStore(NewLocalProvider(dir), Layout{})
	_, err := s.CreateTable(ctx, "products", nil, true, false)
	require.NoError(t, err)

	existed, err := s.DeleteTable(ctx, "products")
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = os.Stat(filepath.Join(dir, "config", "products.schema.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "data", "products.rows.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalProvider_ReadMissingDocument(t *testing.T) {
	p := NewLocalProvider(t.TempDir())

	var v map[string]interface{}
	found, err := p.ReadJSON(context.Background(), "nope/missing.json", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalProvider_WriteThenRead(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	ctx := context.Background()

	in := map[string]interface{}{"hello": "world"}
	require.NoError(t, p.WriteJSON(ctx, "sub/doc.json", in))

	var out map[string]interface{}
	found, err := p.ReadJSON(ctx, "sub/doc.json", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "world", out["hello"])

	names, err := p.List(ctx, "sub")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.json"}, names)

	require.NoError(t, p.Delete(ctx, "sub/doc.json"))
	require.NoError(t, p.Delete(ctx, "sub/doc.json"), "deleting a missing document is not an error")
}
