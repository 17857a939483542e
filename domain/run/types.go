package run

import (
	"time"

	"gotidy/domain/core"
)

// StageName identifies one step of a pipeline run
type StageName string

const (
	StageLoad      StageName = "load"
	StageClean     StageName = "clean"
	StageFilter    StageName = "filter"
	StageAggregate StageName = "aggregate"
	StageTopN      StageName = "top_n"
	StageProfile   StageName = "profile"
	StageEmit      StageName = "emit"
)

// StageResult records what one stage consumed and produced
type StageResult struct {
	Stage      StageName `json:"stage"`
	RowsIn     int       `json:"rows_in"`
	RowsOut    int       `json:"rows_out"`
	DurationMs int64     `json:"duration_ms"`
}

// NewStageResult measures a stage from its start time
func NewStageResult(stage StageName, rowsIn, rowsOut int, started time.Time) StageResult {
	return StageResult{
		Stage:      stage,
		RowsIn:     rowsIn,
		RowsOut:    rowsOut,
		DurationMs: time.Since(started).Milliseconds(),
	}
}

// Fingerprint is a content hash of a job definition. Two runs with the same
// fingerprint were asked to do the same thing.
type Fingerprint string

// NewFingerprint hashes the encoded job definition together with its source
// location
func NewFingerprint(jobDefinition []byte, location string) Fingerprint {
	return Fingerprint(core.HashParts(jobDefinition, []byte(location)))
}
