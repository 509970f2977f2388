package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// RecordRun inserts a new run in the running state. An empty ID is filled
// with a UUIDv7 and a zero StartedAt with the current time. Returns the run
// as stored.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Run{}, fmt.Errorf("record run: generate id: %w", err)
		}
		run.ID = id.String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.StartedAt = run.StartedAt.UTC()
	if run.Status == "" {
		run.Status = StatusRunning
	}

	argsJSON, err := marshalArgs(run.Args)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, command, args, toolchain, toolchain_version, target, arch, workspace, status, exit_code, error, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Command,
		argsJSON,
		run.Toolchain,
		run.ToolchainVersion,
		run.Target,
		run.Arch,
		run.Workspace,
		string(run.Status),
		run.ExitCode,
		run.Error,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	run.Seq, err = res.LastInsertId()
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// UpdateToolchain stores the toolchain a run resolved. Bootstrap happens
// after the run is recorded, so this is a separate step.
func (s *Store) UpdateToolchain(ctx context.Context, id, name, version string) error {
	return s.update(ctx, "update toolchain", `
		UPDATE runs SET toolchain = ?, toolchain_version = ? WHERE id = ?
	`, name, version, id)
}

// FinishRun marks a run finished. A nil runErr records success; otherwise
// the run is failed with exitCode and the error text.
func (s *Store) FinishRun(ctx context.Context, id string, exitCode int, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	return s.update(ctx, "finish run", `
		UPDATE runs SET status = ?, exit_code = ?, error = ?, finished_at = ? WHERE id = ?
	`, string(status), exitCode, msg, formatTime(s.now()), id)
}

func (s *Store) update(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrRunNotFound)
	}
	return nil
}

// RecordArtifact stores an artifact of a run. Recording the same path
// again replaces its digest and size; an existing location is kept unless
// a new one is given.
func (s *Store) RecordArtifact(ctx context.Context, a Artifact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (run_id, path, digest, size, location)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, path) DO UPDATE SET
			digest = excluded.digest,
			size = excluded.size,
			location = CASE WHEN excluded.location = '' THEN artifacts.location ELSE excluded.location END
	`, a.RunID, a.Path, a.Digest, a.Size, a.Location)
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	return nil
}

// runExists reports whether a run id is stored.
func (s *Store) runExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
