// Package declarative loads reference-table definitions from YAML and
// applies them idempotently at startup.
package declarative

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/domain"
	"github.com/philippfrenzel/msfabric-mapping-etk-sub002/internal/service"
)

// ColumnDefinition declares one attribute column.
type ColumnDefinition struct {
	Name        string  `yaml:"name"`
	DataType    string  `yaml:"dataType"`
	Description *string `yaml:"description,omitempty"`
	Order       int     `yaml:"order"`
}

// RowDefinition declares one seeded row. Classified rows have their IsNew
// flag cleared after the upsert.
type RowDefinition struct {
	Key        string                 `yaml:"key"`
	Attributes map[string]interface{} `yaml:"attributes"`
	Classified bool                   `yaml:"classified"`
}

// TableDefinition declares one reference table and its seed rows.
type TableDefinition struct {
	Name               string             `yaml:"name"`
	IsVisible          *bool              `yaml:"isVisible"` // default true
	NotifyOnNewMapping bool               `yaml:"notifyOnNewMapping"`
	Columns            []ColumnDefinition `yaml:"columns"`
	Rows               []RowDefinition    `yaml:"rows"`
}

// SeedFile is the root of a declarative seed document.
type SeedFile struct {
	Tables []TableDefinition `yaml:"tables"`
}

// Load reads and validates a seed file.
func Load(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed file: %w", err)
	}

	var f SeedFile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	for i, t := range f.Tables {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("seed file %s: table %d has no name", path, i)
		}
		for _, r := range t.Rows {
			if strings.TrimSpace(r.Key) == "" {
				return nil, fmt.Errorf("seed file %s: table %q has a row with no key", path, t.Name)
			}
		}
	}
	return &f, nil
}

// Apply creates missing tables and upserts seed rows. Existing tables are
// left with their stored schema; re-applying the same file is safe.
func Apply(ctx context.Context, f *SeedFile, svc *service.MappingService, logger *slog.Logger) error {
	for _, t := range f.Tables {
		existing, err := svc.GetReferenceTable(ctx, t.Name)
		if err != nil {
			return fmt.Errorf("seed table %q: %w", t.Name, err)
		}
		if existing == nil {
			visible := true
			if t.IsVisible != nil {
				visible = *t.IsVisible
			}
			columns := make([]domain.Column, len(t.Columns))
			for i, c := range t.Columns {
				columns[i] = domain.Column{
					Name:        c.Name,
					DataType:    c.DataType,
					Description: c.Description,
					Order:       c.Order,
				}
			}
			_, err := svc.CreateReferenceTable(ctx, domain.CreateReferenceTableRequest{
				Name:               t.Name,
				Columns:            columns,
				IsVisible:          visible,
				NotifyOnNewMapping: t.NotifyOnNewMapping,
			})
			if err != nil {
				return fmt.Errorf("seed table %q: %w", t.Name, err)
			}
			logger.Info("seeded reference table", "table", t.Name, "rows", len(t.Rows))
		}

		for _, r := range t.Rows {
			if err := svc.AddOrUpdateRow(ctx, t.Name, r.Key, r.Attributes); err != nil {
				return fmt.Errorf("seed row %q in table %q: %w", r.Key, t.Name, err)
			}
			if r.Classified {
				if err := svc.MarkRowClassified(ctx, t.Name, r.Key); err != nil {
					return fmt.Errorf("classify row %q in table %q: %w", r.Key, t.Name, err)
				}
			}
		}
	}
	return nil
}
