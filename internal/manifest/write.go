package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/anophel-labs/sweepmill/internal/sweep"
)

// WriteSweep persists a built sweep atomically: the sweeps row plus one
// sweep_points row per point, in one transaction.
//
// Points are inserted with a plain INSERT, not ON CONFLICT DO NOTHING: a
// duplicate (sweep_id, sample_id, run_number) means the builder's identity
// invariant was violated, and that must surface as an error rather than be
// silently absorbed.
func (s *Store) WriteSweep(ctx context.Context, sweepID, scenarioID string, seedPeriod int, points []sweep.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write sweep: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweeps (id, scenario, seed_period, points)
		VALUES (?, ?, ?, ?)
	`, sweepID, scenarioID, seedPeriod, len(points))
	if err != nil {
		return fmt.Errorf("write sweep: insert sweep row: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sweep_points
		(sweep_id, sample_id, run_number, district, seed, tag_hash, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write sweep: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		tagJSON, err := sweep.MarshalCanonical(p.Tags.Map())
		if err != nil {
			return fmt.Errorf("write sweep: marshal tags for sample %s: %w", p.Sample.ID, err)
		}
		tagHash, err := p.Tags.Hash()
		if err != nil {
			return fmt.Errorf("write sweep: hash tags for sample %s: %w", p.Sample.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			sweepID,
			p.Tags.SampleID(),
			p.Tags.RunNumber(),
			p.District,
			p.Seed,
			tagHash,
			string(tagJSON),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &sweep.BuildError{
					Code:     sweep.ErrCodeIdentityCollision,
					Message:  "manifest rejected duplicate identity pair",
					District: p.District,
					SampleID: p.Tags.SampleID(),
					Run:      p.Tags.RunNumber(),
				}
			}
			return fmt.Errorf("write sweep: insert point (sample=%s, run=%d): %w",
				p.Tags.SampleID(), p.Tags.RunNumber(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write sweep: commit: %w", err)
	}

	return nil
}

// BurninRecord is one registered burn-in run available for warm starts.
type BurninRecord struct {
	District  string
	SampleID  string
	ResumeDay int
	Priority  int
	Path      string
}

// AddBurnin registers a burn-in record in the warm-start index.
func (s *Store) AddBurnin(ctx context.Context, rec BurninRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO burnin_records (district, sample_id, resume_day, priority, path)
		VALUES (?, ?, ?, ?, ?)
	`, rec.District, rec.SampleID, rec.ResumeDay, rec.Priority, rec.Path)
	if err != nil {
		return fmt.Errorf("add burnin: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite uniqueness violation.
// Matched on message text to avoid depending on driver error internals.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
