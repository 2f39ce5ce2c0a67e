package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anophel-labs/sweepmill/internal/sweep"
)

// ErrNoSweep indicates the manifest contains no sweep matching the request.
var ErrNoSweep = errors.New("manifest: no such sweep")

// SweepRow is the stored metadata of one built sweep.
type SweepRow struct {
	ID         string
	Scenario   string
	SeedPeriod int
	Points     int
	CreatedAt  string
}

// PointRow is one dispatched run configuration as stored in the manifest.
type PointRow struct {
	SampleID  string
	RunNumber int
	District  string
	Seed      int64
	TagHash   string
	Tags      map[string]string
}

// ReadSweep returns the metadata row for one sweep.
func (s *Store) ReadSweep(ctx context.Context, sweepID string) (SweepRow, error) {
	var row SweepRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, seed_period, points, created_at
		FROM sweeps WHERE id = ?
	`, sweepID).Scan(&row.ID, &row.Scenario, &row.SeedPeriod, &row.Points, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SweepRow{}, fmt.Errorf("%w: %s", ErrNoSweep, sweepID)
	}
	if err != nil {
		return SweepRow{}, fmt.Errorf("read sweep: %w", err)
	}
	return row, nil
}

// LatestSweep returns the most recently created sweep.
func (s *Store) LatestSweep(ctx context.Context) (SweepRow, error) {
	var row SweepRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, seed_period, points, created_at
		FROM sweeps ORDER BY created_at DESC, id DESC LIMIT 1
	`).Scan(&row.ID, &row.Scenario, &row.SeedPeriod, &row.Points, &row.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SweepRow{}, fmt.Errorf("%w: manifest is empty", ErrNoSweep)
	}
	if err != nil {
		return SweepRow{}, fmt.Errorf("latest sweep: %w", err)
	}
	return row, nil
}

// ReadPoints returns a sweep's points in dispatch order (run_number).
func (s *Store) ReadPoints(ctx context.Context, sweepID string) ([]PointRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sample_id, run_number, district, seed, tag_hash, tags
		FROM sweep_points
		WHERE sweep_id = ?
		ORDER BY run_number
	`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	defer rows.Close()

	var points []PointRow
	for rows.Next() {
		var p PointRow
		var tagJSON string
		if err := rows.Scan(&p.SampleID, &p.RunNumber, &p.District, &p.Seed, &p.TagHash, &tagJSON); err != nil {
			return nil, fmt.Errorf("read points: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(tagJSON), &p.Tags); err != nil {
			return nil, fmt.Errorf("read points: tags for (sample=%s, run=%d): %w", p.SampleID, p.RunNumber, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read points: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s has no points", ErrNoSweep, sweepID)
	}

	return points, nil
}

// Match selects the single burn-in record for the given match keys at a
// resume day. Implements sweep.BurninMatcher.
//
// Exactly-one semantics: zero matches is SERIALIZATION_NOT_FOUND; more than
// one match at the highest priority is AMBIGUOUS_MATCH. A higher-priority
// record shadows lower-priority ones, but ties are never broken by guessing.
func (s *Store) Match(district, serializedID string, resumeDay int) (sweep.BurninRef, error) {
	rows, err := s.db.Query(`
		SELECT path, priority
		FROM burnin_records
		WHERE district = ? AND sample_id = ? AND resume_day = ?
		ORDER BY priority DESC, id
	`, district, serializedID, resumeDay)
	if err != nil {
		return sweep.BurninRef{}, fmt.Errorf("match burnin: %w", err)
	}
	defer rows.Close()

	var (
		paths       []string
		topPriority int
	)
	for rows.Next() {
		var path string
		var priority int
		if err := rows.Scan(&path, &priority); err != nil {
			return sweep.BurninRef{}, fmt.Errorf("match burnin: scan: %w", err)
		}
		if len(paths) == 0 {
			topPriority = priority
		}
		if priority < topPriority {
			break // lower-priority records are shadowed
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return sweep.BurninRef{}, fmt.Errorf("match burnin: %w", err)
	}

	switch len(paths) {
	case 0:
		return sweep.BurninRef{}, &sweep.MatchError{
			Code:      sweep.ErrCodeNotFound,
			District:  district,
			SampleID:  serializedID,
			ResumeDay: resumeDay,
		}
	case 1:
		return sweep.BurninRef{Path: paths[0]}, nil
	default:
		return sweep.BurninRef{}, &sweep.MatchError{
			Code:      sweep.ErrCodeAmbiguousMatch,
			District:  district,
			SampleID:  serializedID,
			ResumeDay: resumeDay,
			Matches:   len(paths),
		}
	}
}
