package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gotidy/domain/core"
)

func TestFingerprint_Deterministic(t *testing.T) {
	job := []byte("name: liquor-top-items\n")
	fp1 := NewFingerprint(job, "finance_liquor_sales.csv")
	fp2 := NewFingerprint(job, "finance_liquor_sales.csv")

	assert.Equal(t, fp1, fp2)
	assert.Len(t, string(fp1), 64)
}

func TestFingerprint_Unique(t *testing.T) {
	base := NewFingerprint([]byte("name: a\n"), "x.csv")
	assert.NotEqual(t, base, NewFingerprint([]byte("name: b\n"), "x.csv"))
	assert.NotEqual(t, base, NewFingerprint([]byte("name: a\n"), "y.csv"))
	// the separator keeps definition and location from running together
	assert.NotEqual(t, NewFingerprint([]byte("ab"), "c"), NewFingerprint([]byte("a"), "bc"))
}

func TestManifest(t *testing.T) {
	m := NewManifest(core.NewRunID(), "auto-mpg", "auto-mpg.data", NewFingerprint([]byte("auto"), "auto-mpg.data"))
	assert.Error(t, m.Validate(), "no stages yet")

	m.AddStage(NewStageResult(StageLoad, 0, 398, time.Now()))
	m.AddStage(NewStageResult(StageClean, 398, 392, time.Now()))
	m.Finish()
	require.NoError(t, m.Validate())

	clean, ok := m.Stage(StageClean)
	require.True(t, ok)
	assert.Equal(t, 6, clean.RowsIn-clean.RowsOut)

	_, ok = m.Stage(StageAggregate)
	assert.False(t, ok)
}
