package run

import (
	"time"

	"gotidy/domain/core"
	"gotidy/internal/errors"
)

// Manifest describes a finished run: what was asked, what each stage did and
// which artifacts were written
type Manifest struct {
	RunID       core.RunID    `json:"run_id"`
	Job         string        `json:"job"`
	Source      string        `json:"source"`
	Fingerprint Fingerprint   `json:"fingerprint"`
	StartedAt   time.Time     `json:"started_at"`
	DurationMs  int64         `json:"duration_ms"`
	Stages      []StageResult `json:"stages"`
	Artifacts   []string      `json:"artifacts"`
}

// NewManifest starts a manifest for a run
func NewManifest(runID core.RunID, job, source string, fingerprint Fingerprint) *Manifest {
	return &Manifest{
		RunID:       runID,
		Job:         job,
		Source:      source,
		Fingerprint: fingerprint,
		StartedAt:   time.Now().UTC(),
	}
}

// AddStage appends a stage result in execution order
func (m *Manifest) AddStage(r StageResult) {
	m.Stages = append(m.Stages, r)
}

// Stage returns the result of a named stage, if it ran
func (m *Manifest) Stage(name StageName) (StageResult, bool) {
	for _, s := range m.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// Finish records the total duration
func (m *Manifest) Finish() {
	m.DurationMs = time.Since(m.StartedAt).Milliseconds()
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return errors.InvalidInput("run_id cannot be empty")
	}
	if m.Job == "" {
		return errors.InvalidInput("job cannot be empty")
	}
	if m.Fingerprint == "" {
		return errors.InvalidInput("fingerprint cannot be empty")
	}
	if len(m.Stages) == 0 || m.Stages[0].Stage != StageLoad {
		return errors.InvalidInput("a run starts with the load stage")
	}
	return nil
}
