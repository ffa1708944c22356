package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
)

// storeFactory builds a fresh store per subtest so the contract suite runs
// against every backend.
type storeFactory func(t *testing.T) domain.ReferenceTableStore

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) domain.ReferenceTableStore {
			return NewMemoryStore()
		},
		"file": func(t *testing.T) domain.ReferenceTableStore {
			return NewFileStore(NewLocalProvider(t.TempDir()), Layout{})
		},
	}
}

func testColumns() []domain.Column {
	return []domain.Column{
		{Name: "category", DataType: "string", Order: 1},
		{Name: "amount", DataType: "float", Order: 2},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			created, err := s.CreateTable(ctx, "Products", testColumns(), true, false)
			require.NoError(t, err)
			assert.Equal(t, "Products", created.Name)
			assert.Equal(t, domain.KeyColumnName, created.KeyColumn)
			assert.Len(t, created.Columns, 2)
			assert.Empty(t, created.Rows)
			assert.True(t, created.IsVisible)

			got, err := s.GetTable(ctx, "Products")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Products", got.Name)

			// Lookup by any casing resolves to the same table.
			got, err = s.GetTable(ctx, "PRODUCTS")
			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func TestStore_CreateConflictIsCaseInsensitive(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.CreateTable(ctx, "Products", nil, true, false)
			require.NoError(t, err)

			_, err = s.CreateTable(ctx, "PRODUCTS", nil, true, false)
			var conflict *domain.ConflictError
			require.ErrorAs(t, err, &conflict)
		})
	}
}

func TestStore_GetAbsentTableIsNotAnError(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			got, err := s.GetTable(context.Background(), "nope")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStore_ExistsAndList(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			ok, err := s.Exists(ctx, "Products")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = s.CreateTable(ctx, "Products", nil, true, false)
			require.NoError(t, err)
			_, err = s.CreateTable(ctx, "Regions", nil, true, false)
			require.NoError(t, err)

			ok, err = s.Exists(ctx, "products")
			require.NoError(t, err)
			assert.True(t, ok)

			names, err := s.ListTableNames(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"Products", "Regions"}, names)
		})
	}
}

func TestStore_UpsertRowMergesAttributes(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.CreateTable(ctx, "products", testColumns(), true, false)
			require.NoError(t, err)

			err = s.UpsertRow(ctx, "products", "A", map[string]interface{}{"Category": "X"})
			require.NoError(t, err)
			err = s.UpsertRow(ctx, "products", "A", map[string]interface{}{"Group": "Y"})
			require.NoError(t, err)

			got, err := s.GetTable(ctx, "products")
			require.NoError(t, err)
			row := got.FindRow("A")
			require.NotNil(t, row)
			assert.Equal(t, "X", row.Attributes["Category"])
			assert.Equal(t, "Y", row.Attributes["Group"])
			assert.True(t, row.IsNew, "upsert leaves the classification flag untouched")
		})
	}
}

func TestStore_UpsertRowMissingTable(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)

			err := s.UpsertRow(context.Background(), "nope", "A", nil)
			var notFound *domain.NotFoundError
			require.ErrorAs(t, err, &notFound)
		})
	}
}

func TestStore_AddKeysIfAbsent(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.CreateTable(ctx, "products", nil, true, false)
			require.NoError(t, err)

			err = s.UpsertRow(ctx, "products", "A", map[string]interface{}{"Category": "X"})
			require.NoError(t, err)

			added, err := s.AddKeysIfAbsent(ctx, "products", []string{"A", "B", "C"})
			require.NoError(t, err)
			assert.Equal(t, 2, added)

			// Idempotent: a second pass adds nothing.
			added, err = s.AddKeysIfAbsent(ctx, "products", []string{"A", "B", "C"})
			require.NoError(t, err)
			assert.Equal(t, 0, added)

			got, err := s.GetTable(ctx, "products")
			require.NoError(t, err)
			require.Len(t, got.Rows, 3)

			// Existing rows keep their attributes.
			row := got.FindRow("A")
			require.NotNil(t, row)
			assert.Equal(t, "X", row.Attributes["Category"])

			row = got.FindRow("B")
			require.NotNil(t, row)
			assert.True(t, row.IsNew)
		})
	}
}

func TestStore_MarkRowClassified(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.CreateTable(ctx, "products", nil, true, false)
			require.NoError(t, err)
			require.NoError(t, s.UpsertRow(ctx, "products", "A", nil))

			require.NoError(t, s.MarkRowClassified(ctx, "products", "A"))

			got, err := s.GetTable(ctx, "products")
			require.NoError(t, err)
			row := got.FindRow("A")
			require.NotNil(t, row)
			assert.False(t, row.IsNew)

			var notFound *domain.NotFoundError
			require.ErrorAs(t, s.MarkRowClassified(ctx, "products", "missing"), &notFound)
		})
	}
}

func TestStore_DeleteTable(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			existed, err := s.DeleteTable(ctx, "products")
			require.NoError(t, err)
			assert.False(t, existed)

			_, err = s.CreateTable(ctx, "products", nil, true, false)
			require.NoError(t, err)

			existed, err = s.DeleteTable(ctx, "PRODUCTS")
			require.NoError(t, err)
			assert.True(t, existed)

			got, err := s.GetTable(ctx, "products")
			require.NoError(t, err)
			assert.Nil(t, got)

			// Name is free for re-creation.
			_, err = s.CreateTable(ctx, "products", nil, true, false)
			require.NoError(t, err)
		})
	}
}

func TestStore_ConcurrentUpsertsAreSerialized(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.CreateTable(ctx, "products", nil, true, false)
			require.NoError(t, err)

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < 8; i++ {
				i := i
				g.Go(func() error {
					for j := 0; j < 10; j++ {
						key := fmt.Sprintf("key-%d", j)
						attr := fmt.Sprintf("writer-%d", i)
						if err := s.UpsertRow(gctx, "products", key, map[string]interface{}{attr: j}); err != nil {
							return err
						}
					}
					return nil
				})
			}
			require.NoError(t, g.Wait())

			got, err := s.GetTable(ctx, "products")
			require.NoError(t, err)
			require.Len(t, got.Rows, 10, "one row per key regardless of writer interleaving")
			for _, row := range got.Rows {
				assert.Len(t, row.Attributes, 8, "every writer's merge survived")
			}
		})
	}
}

func TestStore_ConcurrentAddKeysNeverDoubleInsert(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.CreateTable(ctx, "products", nil, true, false)
			require.NoError(t, err)

			keys := []string{"A", "B", "C", "D"}
			totals := make(chan int, 8)

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < 8; i++ {
				g.Go(func() error {
					added, err := s.AddKeysIfAbsent(gctx, "products", keys)
					if err != nil {
						return err
					}
					totals <- added
					return nil
				})
			}
			require.NoError(t, g.Wait())
			close(totals)

			sum := 0
			for n := range totals {
				sum += n
			}
			assert.Equal(t, len(keys), sum, "each key counted as new exactly once across racing syncs")

			got, err := s.GetTable(ctx, "products")
			require.NoError(t, err)
			assert.Len(t, got.Rows, len(keys))
		})
	}
}
