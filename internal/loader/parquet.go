package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/shopqa/shopqa/internal/shop"
	"github.com/shopqa/shopqa/internal/storage"
)

// ParquetExporter writes each table of a Dataset to <snapshot>/<table>.parquet.
type ParquetExporter struct {
	Store    storage.ObjectStore
	Snapshot string
	Logger   *slog.Logger
}

func (e *ParquetExporter) Export(ctx context.Context, data Dataset) ([]storage.ObjectInfo, error) {
	if e.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	var written []storage.ObjectInfo
	for _, table := range shop.Tables() {
		key, err := storage.TablePath(e.Snapshot, table.Name)
		if err != nil {
			return written, err
		}
		encoded, err := EncodeParquet(table, data[table.Name])
		if err != nil {
			return written, fmt.Errorf("encode %s: %w", table.Name, err)
		}
		info, err := e.Store.Put(ctx, key, bytes.NewReader(encoded), int64(len(encoded)), storage.PutOptions{ContentType: storage.ContentTypeParquet})
		if err != nil {
			return written, err
		}
		written = append(written, info)
		if e.Logger != nil {
			e.Logger.Info("table exported", slog.String("table", table.Name), slog.String("key", key), slog.Int64("bytes", int64(len(encoded))))
		}
	}
	return written, nil
}

// TableSchema maps a shop table to an all-optional Parquet schema. Dates are strings.
func TableSchema(table shop.Table) *parquet.Schema {
	group := parquet.Group{}
	for _, column := range table.Columns {
		var node parquet.Node
		switch column.Type {
		case shop.Integer:
			node = parquet.Int(64)
		case shop.Real:
			node = parquet.Leaf(parquet.DoubleType)
		default:
			node = parquet.String()
		}
		group[column.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema(table.Name, group)
}

// EncodeParquet serializes rows (in table column order) into a Parquet file.
func EncodeParquet(table shop.Table, rows [][]any) ([]byte, error) {
	schema := TableSchema(table)

	// Leaf order in the schema is not the table's column order.
	leaves := schema.Columns()
	sources := make([]int, len(leaves))
	for leaf, path := range leaves {
		name := strings.Join(path, ".")
		sources[leaf] = columnIndex(table, name)
		if sources[leaf] < 0 {
			return nil, fmt.Errorf("schema column %q not in table %s", name, table.Name)
		}
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewWriter(buf, schema)
	batch := make([]parquet.Row, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("row %d: %d values, want %d", i+1, len(row), len(table.Columns))
		}
		record := make(parquet.Row, len(leaves))
		for leaf, source := range sources {
			value, err := parquetValue(table.Columns[source], row[source])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			if value.IsNull() {
				record[leaf] = value.Level(0, 0, leaf)
			} else {
				record[leaf] = value.Level(0, 1, leaf)
			}
		}
		batch = append(batch, record)
	}
	if _, err := writer.WriteRows(batch); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func parquetValue(column shop.Column, value any) (parquet.Value, error) {
	if value == nil {
		return parquet.NullValue(), nil
	}
	switch column.Type {
	case shop.Integer:
		switch v := value.(type) {
		case int64:
			return parquet.ValueOf(v), nil
		case int:
			return parquet.ValueOf(int64(v)), nil
		}
	case shop.Real:
		switch v := value.(type) {
		case float64:
			return parquet.ValueOf(v), nil
		case int64:
			return parquet.ValueOf(float64(v)), nil
		}
	default:
		if v, ok := value.(string); ok {
			return parquet.ValueOf(v), nil
		}
	}
	return parquet.Value{}, fmt.Errorf("column %s: unexpected %T", column.Name, value)
}
