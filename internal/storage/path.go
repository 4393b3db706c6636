package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

const tableFileSuffix = ".parquet"

// TablePath is the object key of one exported table: <snapshot>/<table>.parquet.
func TablePath(snapshot, table string) (string, error) {
	prefix, err := SnapshotPrefix(snapshot)
	if err != nil {
		return "", err
	}
	if err := validatePathComponent(table, "table name"); err != nil {
		return "", err
	}
	return path.Join(prefix, table+tableFileSuffix), nil
}

// SnapshotPrefix is the listing prefix for every table in a snapshot, with a trailing slash.
func SnapshotPrefix(snapshot string) (string, error) {
	if err := validatePathComponent(snapshot, "snapshot"); err != nil {
		return "", err
	}
	return snapshot + "/", nil
}

// TableFromPath reverses TablePath. It reports false for keys that are not a
// direct child of the snapshot or lack the Parquet suffix.
func TableFromPath(snapshot, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, snapshot+"/")
	if !ok || strings.Contains(rest, "/") {
		return "", false
	}
	table, ok := strings.CutSuffix(rest, tableFileSuffix)
	if !ok || validatePathComponent(table, "table name") != nil {
		return "", false
	}
	return table, true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
