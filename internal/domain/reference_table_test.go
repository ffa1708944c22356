package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTableName(t *testing.T) {
	assert.Equal(t, "products", NormalizeTableName("  Products "))
	assert.Equal(t, "sales regions", NormalizeTableName("Sales Regions"))
}

func TestCreateReferenceTableRequest_Validate(t *testing.T) {
	valid := CreateReferenceTableRequest{
		Name: "products",
		Columns: []Column{
			{Name: "category", DataType: "string", Order: 1},
			{Name: "group", DataType: "string", Order: 2},
		},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		req  CreateReferenceTableRequest
	}{
		{"empty table name", CreateReferenceTableRequest{Name: "  "}},
		{"empty column name", CreateReferenceTableRequest{
			Name:    "t",
			Columns: []Column{{Name: " "}},
		}},
		{"reserved key column", CreateReferenceTableRequest{
			Name:    "t",
			Columns: []Column{{Name: "KEY"}},
		}},
		{"duplicate column", CreateReferenceTableRequest{
			Name:    "t",
			Columns: []Column{{Name: "a"}, {Name: "A"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}
}

func TestReferenceTable_Clone(t *testing.T) {
	original := &ReferenceTable{
		Name:    "products",
		Columns: []Column{{Name: "category", DataType: "string"}},
		Rows: []Row{
			{Key: "A", Attributes: map[string]interface{}{"category": "X"}, IsNew: true},
		},
	}

	clone := original.Clone()
	clone.Rows[0].Attributes["category"] = "mutated"
	clone.Columns[0].Name = "mutated"

	assert.Equal(t, "X", original.Rows[0].Attributes["category"])
	assert.Equal(t, "category", original.Columns[0].Name)
}

func TestReferenceTable_FindRow(t *testing.T) {
	table := &ReferenceTable{Rows: []Row{{Key: "A"}, {Key: "B"}}}

	row := table.FindRow("B")
	require.NotNil(t, row)
	assert.Equal(t, "B", row.Key)

	assert.Nil(t, table.FindRow("missing"))
}
