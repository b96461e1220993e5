package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
)

func fixedRecorder(now time.Time) *Recorder {
	r := New()
	r.now = func() time.Time { return now }
	return r
}

func TestObserve_Success(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	r := fixedRecorder(now)

	r.Observe(ComponentSync, now.Add(-3*time.Second), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(ComponentSync, OutcomeSuccess)))
	assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(r.lastSuccess.WithLabelValues(ComponentSync)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration, "contractbot_workspace_step_duration_seconds"))
}

func TestObserve_FailureKeepsLastSuccess(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	r := fixedRecorder(now)

	r.Observe(ComponentBootstrap, now, model.NewKindError(model.KindDependencyInstall, "pip failed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues(ComponentBootstrap, "dependency-install")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.lastSuccess))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "vcs-operation", Outcome(model.NewKindError(model.KindVCSOperation, "fetch failed")))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
	assert.Equal(t, "error", Outcome(&model.CLIError{Code: model.ExitGeneralError, Message: "unclassified"}))
}

func TestWriteTextfile(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	r := fixedRecorder(now)
	r.Observe(ComponentSync, now, nil)
	r.Observe(ComponentBootstrap, now, model.NewKindError(model.KindEnvironment, "no python"))

	path := filepath.Join(t.TempDir(), "contractbot.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `contractbot_workspace_runs_total{component="sync",outcome="success"} 1`)
	assert.Contains(t, out, `contractbot_workspace_runs_total{component="bootstrap",outcome="environment"} 1`)
	assert.Contains(t, out, `contractbot_workspace_last_success_timestamp_seconds{component="sync"} `)
	assert.False(t, strings.Contains(out, `contractbot_workspace_last_success_timestamp_seconds{component="bootstrap"}`))
}
