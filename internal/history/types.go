package history

import "time"

// Status is the state of a run.
type Status string

// Run states.
const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded invocation of a build command.
type Run struct {
	Seq              int64     `json:"seq"`
	ID               string    `json:"id"`
	Command          string    `json:"command"`
	Args             []string  `json:"args"`
	Toolchain        string    `json:"toolchain,omitempty"`
	ToolchainVersion string    `json:"toolchain_version,omitempty"`
	Target           string    `json:"target,omitempty"`
	Arch             string    `json:"arch,omitempty"`
	Workspace        string    `json:"workspace,omitempty"`
	Status           Status    `json:"status"`
	ExitCode         int       `json:"exit_code"`
	Error            string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at,omitzero"`
}

// Artifact is a file produced by a run.
type Artifact struct {
	RunID    string `json:"run_id"`
	Path     string `json:"path"`
	Digest   string `json:"digest"`
	Size     int64  `json:"size"`
	Location string `json:"location,omitempty"` // Object storage URL once published.
}
