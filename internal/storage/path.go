package storage

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

const snapshotLayout = "20060102T150405Z"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildSnapshotPath returns the key of one parquet part of a table snapshot:
// <table>/snapshot=<UTC timestamp>/part-<sequence>.parquet.
func BuildSnapshotPath(tableName string, createdAt time.Time, sequence int) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return path.Join(
		tableName,
		"snapshot="+createdAt.UTC().Format(snapshotLayout),
		fmt.Sprintf("part-%05d.parquet", sequence),
	), nil
}

func LatestSnapshot(tableName string, objects []ObjectInfo) (string, []ObjectInfo, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", nil, err
	}
	parts := map[string][]ObjectInfo{}
	for _, object := range objects {
		snapshot, ok := snapshotOf(tableName, object.Key)
		if !ok {
			continue
		}
		parts[snapshot] = append(parts[snapshot], object)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("no snapshot found for table %q", tableName)
	}

	snapshots := make([]string, 0, len(parts))
	for snapshot := range parts {
		snapshots = append(snapshots, snapshot)
	}
	sort.Strings(snapshots)
	latest := snapshots[len(snapshots)-1]

	selected := parts[latest]
	sort.Slice(selected, func(i, j int) bool { return selected[i].Key < selected[j].Key })
	return latest, selected, nil
}

func snapshotOf(tableName, key string) (string, bool) {
	segments := strings.Split(key, "/")
	if len(segments) != 3 || segments[0] != tableName || !strings.HasSuffix(segments[2], ".parquet") {
		return "", false
	}
	stamp, ok := strings.CutPrefix(segments[1], "snapshot=")
	if !ok {
		return "", false
	}
	if _, err := time.Parse(snapshotLayout, stamp); err != nil {
		return "", false
	}
	return stamp, true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
