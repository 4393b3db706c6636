// Package loader fills the nine shop tables from CSV files or generated rows and
// optionally mirrors every table into the object store as Parquet.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopqa/shopqa/internal/shop"
)

// Dataset holds rows per table name. Each row follows the table's column order.
type Dataset map[string][][]any

// csvNames lists the file names tried for a table, in order.
var csvNames = map[string][]string{
	"shippings": {"shipping.csv", "shippings.csv"},
}

// CSVPath resolves the CSV file for table inside dir.
func CSVPath(dir string, table shop.Table) (string, error) {
	names, ok := csvNames[table.Name]
	if !ok {
		names = []string{table.Name + ".csv"}
	}
	for _, name := range names {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("missing file: %s", filepath.Join(dir, names[0]))
}

// ReadDir reads one CSV per shop table from dir.
func ReadDir(dir string) (Dataset, error) {
	data := Dataset{}
	for _, table := range shop.Tables() {
		path, err := CSVPath(dir, table)
		if err != nil {
			return nil, err
		}
		rows, err := readFile(path, table)
		if err != nil {
			return nil, err
		}
		data[table.Name] = rows
	}
	return data, nil
}

func readFile(path string, table shop.Table) ([][]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := ReadCSV(file, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV parses a CSV stream with a header row into rows for table. Header names
// are normalized; columns absent from the file load as NULL and so do empty cells.
func ReadCSV(r io.Reader, table shop.Table) ([][]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	positions := make([]int, len(header))
	for i, raw := range header {
		if i == 0 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		name := NormalizeHeader(raw)
		index := columnIndex(table, name)
		if index < 0 {
			return nil, fmt.Errorf("unknown column %q for table %s", name, table.Name)
		}
		positions[i] = index
	}

	var rows [][]any
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make([]any, len(table.Columns))
		for i, cell := range record {
			if i >= len(positions) {
				return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(record), len(positions))
			}
			column := table.Columns[positions[i]]
			value, err := convert(column, cell)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row[positions[i]] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeHeader trims, lower-cases and replaces spaces with underscores.
func NormalizeHeader(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func columnIndex(table shop.Table, name string) int {
	for i, column := range table.Columns {
		if column.Name == name {
			return i
		}
	}
	return -1
}

func convert(column shop.Column, cell string) (any, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	switch column.Type {
	case shop.Integer:
		if value, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return value, nil
		}
		// Integer columns exported through a float type arrive as "12.0".
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil || value != math.Trunc(value) {
			return nil, fmt.Errorf("column %s: invalid integer %q", column.Name, cell)
		}
		return int64(value), nil
	case shop.Real:
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: invalid number %q", column.Name, cell)
		}
		return value, nil
	default:
		return cell, nil
	}
}
