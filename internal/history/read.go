package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DefaultListLimit is used by ListRuns when limit <= 0.
const DefaultListLimit = 20

const runColumns = `seq, id, command, args, toolchain, toolchain_version, target, arch, workspace,
	status, exit_code, error, started_at, finished_at`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// GetRun returns a run by id, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// Artifacts returns the artifacts of a run ordered by path. An unknown run
// returns ErrRunNotFound.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	ok, err := s.runExists(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("query artifacts %s: %w", runID, ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, path, digest, size, location
		FROM artifacts
		WHERE run_id = ?
		ORDER BY path COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.RunID, &a.Path, &a.Digest, &a.Size, &a.Location); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}

	return artifacts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run               Run
		argsJSON, status  string
		started, finished string
	)
	err := row.Scan(
		&run.Seq,
		&run.ID,
		&run.Command,
		&argsJSON,
		&run.Toolchain,
		&run.ToolchainVersion,
		&run.Target,
		&run.Arch,
		&run.Workspace,
		&status,
		&run.ExitCode,
		&run.Error,
		&started,
		&finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Status = Status(status)
	if run.Args, err = unmarshalArgs(argsJSON); err != nil {
		return Run{}, err
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, err
	}
	return run, nil
}
