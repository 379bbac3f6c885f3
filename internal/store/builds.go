package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrBuildNotFound is returned by GetBuild for an unknown build id.
var ErrBuildNotFound = errors.New("build not found")

// BuildRecord is one journal entry.
type BuildRecord struct {
	ID                 string        `json:"id"`
	Seq                int64         `json:"seq"` // assigned by the store
	Root               string        `json:"root"`
	Signature          string        `json:"signature"`
	MetamodelSignature string        `json:"metamodel_signature"`
	SpaceCount         int           `json:"space_count"`
	Options            string        `json:"options"`   // canonical JSON
	PlanText           string        `json:"plan_text"` // rendered plan
	PlanView           string        `json:"plan_view"` // JSON plan view
	RecordedAt         time.Time     `json:"recorded_at"`
	Spaces             []SpaceRecord `json:"spaces,omitempty"`
}

// SpaceRecord is one query space of a recorded build.
type SpaceRecord struct {
	Ordinal    int    `json:"ordinal"`
	UID        string `json:"uid"`
	Kind       string `json:"kind"`
	Descriptor string `json:"descriptor"`
	Alias      string `json:"alias"`
}

// ListOptions filters ListBuilds.
type ListOptions struct {
	// Limit keeps only the most recent builds. 0 means no limit.
	Limit int
	// Root keeps only builds of this root descriptor.
	Root string
	// Signature keeps only builds with this plan signature.
	Signature string
}

// RecordBuild inserts a build and its query spaces in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - recording the same build
// id twice leaves the first record untouched and returns nil.
func (s *Store) RecordBuild(ctx context.Context, rec BuildRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record build: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record build: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO builds
		(id, root, signature, metamodel_signature, space_count, options, plan_text, plan_view, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Root,
		rec.Signature,
		rec.MetamodelSignature,
		rec.SpaceCount,
		rec.Options,
		rec.PlanText,
		rec.PlanView,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for _, sp := range rec.Spaces {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO build_spaces (build_id, ordinal, uid, kind, descriptor, alias)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.ID, sp.Ordinal, sp.UID, sp.Kind, sp.Descriptor, sp.Alias)
		if err != nil {
			return fmt.Errorf("record build: space %s: %w", sp.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record build: commit: %w", err)
	}
	return nil
}

// ListBuilds returns recorded builds ordered by seq ascending. With a limit,
// only the most recent builds are returned (still oldest first).
// Spaces are not loaded; use GetBuild for a full record.
//
// Returns an empty slice (not nil) if no builds match.
func (s *Store) ListBuilds(ctx context.Context, opts ListOptions) ([]BuildRecord, error) {
	query := `
		SELECT seq, id, root, signature, metamodel_signature, space_count, options, plan_text, plan_view, recorded_at
		FROM builds
		WHERE (? = '' OR root = ?) AND (? = '' OR signature = ?)
		ORDER BY seq DESC`
	args := []any{opts.Root, opts.Root, opts.Signature, opts.Signature}
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	builds := []BuildRecord{}
	for rows.Next() {
		rec, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("list builds: %w", err)
		}
		builds = append(builds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list builds: iterate: %w", err)
	}

	// newest-first for LIMIT; hand back in seq order
	for i, j := 0, len(builds)-1; i < j; i, j = i+1, j-1 {
		builds[i], builds[j] = builds[j], builds[i]
	}
	return builds, nil
}

// GetBuild returns the build with id, including its spaces in ordinal order.
// Returns an error wrapping ErrBuildNotFound if no such build exists.
func (s *Store) GetBuild(ctx context.Context, id string) (BuildRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, root, signature, metamodel_signature, space_count, options, plan_text, plan_view, recorded_at
		FROM builds
		WHERE id = ?
	`, id)
	rec, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildRecord{}, fmt.Errorf("get build %q: %w", id, ErrBuildNotFound)
	}
	if err != nil {
		return BuildRecord{}, fmt.Errorf("get build %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, uid, kind, descriptor, alias
		FROM build_spaces
		WHERE build_id = ?
		ORDER BY ordinal ASC
	`, id)
	if err != nil {
		return BuildRecord{}, fmt.Errorf("get build %q: spaces: %w", id, err)
	}
	defer rows.Close()

	rec.Spaces = []SpaceRecord{}
	for rows.Next() {
		var sp SpaceRecord
		if err := rows.Scan(&sp.Ordinal, &sp.UID, &sp.Kind, &sp.Descriptor, &sp.Alias); err != nil {
			return BuildRecord{}, fmt.Errorf("get build %q: scan space: %w", id, err)
		}
		rec.Spaces = append(rec.Spaces, sp)
	}
	if err := rows.Err(); err != nil {
		return BuildRecord{}, fmt.Errorf("get build %q: iterate spaces: %w", id, err)
	}
	return rec, nil
}

// CountBuilds returns the number of recorded builds.
func (s *Store) CountBuilds(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count builds: %w", err)
	}
	return n, nil
}

// IsBuildNotFound reports whether err is a missing-build error.
func IsBuildNotFound(err error) bool {
	return errors.Is(err, ErrBuildNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (BuildRecord, error) {
	var (
		rec        BuildRecord
		recordedAt string
	)
	err := row.Scan(
		&rec.Seq,
		&rec.ID,
		&rec.Root,
		&rec.Signature,
		&rec.MetamodelSignature,
		&rec.SpaceCount,
		&rec.Options,
		&rec.PlanText,
		&rec.PlanView,
		&recordedAt,
	)
	if err != nil {
		return BuildRecord{}, err
	}
	rec.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return BuildRecord{}, fmt.Errorf("parse recorded_at %q: %w", recordedAt, err)
	}
	return rec, nil
}
