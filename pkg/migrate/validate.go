package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

	// Snapshot tables are created on postgres and sqlite alike, so
	// postgres-only types and functions are refused.
	nonPortableRe = regexp.MustCompile(`(?i)\b(?:jsonb|timestamptz|bigserial|serial|gen_random_uuid)\b|(?i)\bnow\(\)`)
)

// ValidateDir checks every migration in dir and reports all problems at once.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var errs error
	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := versions[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		versions[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read %q: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, validateBody(name, string(body)))
	}
	return errs
}

func validateBody(name, body string) error {
	var errs error
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Up\"", name))
	case down < 0:
		errs = multierr.Append(errs, fmt.Errorf("migration %q missing \"-- +goose Down\"", name))
	case down < up:
		errs = multierr.Append(errs, fmt.Errorf("migration %q has Down before Up", name))
	}

	begins := strings.Count(body, "-- +goose StatementBegin")
	ends := strings.Count(body, "-- +goose StatementEnd")
	if begins != ends {
		errs = multierr.Append(errs, fmt.Errorf("migration %q has %d StatementBegin and %d StatementEnd", name, begins, ends))
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		for _, hit := range nonPortableRe.FindAllString(trimmed, -1) {
			errs = multierr.Append(errs, fmt.Errorf("migration %q uses postgres-only %q", name, hit))
		}
	}
	return errs
}
