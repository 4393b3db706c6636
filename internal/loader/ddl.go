package loader

import (
	"fmt"
	"strings"

	"github.com/shopqa/shopqa/internal/config"
	"github.com/shopqa/shopqa/internal/shop"
)

// DropStatements drops the shop tables children first.
func DropStatements() []string {
	tables := shop.Tables()
	statements := make([]string, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		statements = append(statements, "DROP TABLE IF EXISTS "+tables[i].Name)
	}
	return statements
}

// CreateStatements creates the shop tables parents first. The first column of each
// table is its primary key; any other column named after a table's key references it.
func CreateStatements(driver string) ([]string, error) {
	tables := shop.Tables()
	keys := map[string]string{}
	for _, table := range tables {
		keys[table.Columns[0].Name] = table.Name
	}

	statements := make([]string, 0, len(tables))
	for _, table := range tables {
		var parts []string
		var references []string
		for i, column := range table.Columns {
			columnType, err := sqlType(driver, column.Type)
			if err != nil {
				return nil, err
			}
			definition := column.Name + " " + columnType
			if i == 0 {
				definition += " PRIMARY KEY"
			} else if parent, ok := keys[column.Name]; ok && parent != table.Name {
				references = append(references, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)", column.Name, parent, column.Name))
			}
			parts = append(parts, definition)
		}
		parts = append(parts, references...)
		statements = append(statements, fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", table.Name, strings.Join(parts, ",\n    ")))
	}
	return statements, nil
}

// Dates stay text on every driver so CSV values load as written.
func sqlType(driver string, columnType shop.ColumnType) (string, error) {
	switch driver {
	case config.DriverSQLite:
		return string(columnType), nil
	case config.DriverPostgres:
		switch columnType {
		case shop.Integer:
			return "BIGINT", nil
		case shop.Real:
			return "DOUBLE PRECISION", nil
		default:
			return "TEXT", nil
		}
	case config.DriverMySQL:
		switch columnType {
		case shop.Integer:
			return "BIGINT", nil
		case shop.Real:
			return "DOUBLE", nil
		case shop.Date:
			return "VARCHAR(32)", nil
		default:
			return "VARCHAR(255)", nil
		}
	default:
		return "", fmt.Errorf("unsupported store driver %q", driver)
	}
}
