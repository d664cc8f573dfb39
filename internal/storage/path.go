package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

const chartsRoot = "charts"

// BuildChartPath returns charts/<session>/<yyyy-mm-dd>/<unix-nano>.<ext>.
func BuildChartPath(sessionID string, renderedAt time.Time, ext string) (string, error) {
	if err := validatePathComponent(sessionID, "session id"); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if err := validatePathComponent(ext, "extension"); err != nil {
		return "", err
	}
	ts := renderedAt.UTC()
	return path.Join(
		chartsRoot,
		sessionID,
		fmt.Sprintf("%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%d.%s", ts.UnixNano(), ext),
	), nil
}

// ChartSession reports the session that owns a key built by BuildChartPath.
func ChartSession(key string) (string, bool) {
	parts := strings.Split(path.Clean(strings.TrimPrefix(key, "/")), "/")
	if len(parts) != 4 || parts[0] != chartsRoot {
		return "", false
	}
	if validatePathComponent(parts[1], "session id") != nil {
		return "", false
	}
	return parts[1], true
}

// ParseObjectURL splits s3://bucket/key. ok is false for any other scheme.
func ParseObjectURL(raw string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(raw), "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
