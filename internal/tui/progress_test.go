package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

var importSteps = []pgjson.Step{pgjson.StepStage, pgjson.StepDiscoverKeys, pgjson.StepProject}

func apply(t *testing.T, m progressModel, msgs ...tea.Msg) (progressModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(progressModel)
	}
	return m, cmd
}

func TestProgressModel_StepLifecycle(t *testing.T) {
	t0 := time.Unix(100, 0)
	m := newProgressModel("Importing", importSteps, nil)

	m, _ = apply(t, m,
		stepStartedMsg{step: pgjson.StepStage, at: t0},
		stepCompletedMsg{step: pgjson.StepStage, detail: "2 rows", at: t0.Add(1500 * time.Millisecond)},
		stepStartedMsg{step: pgjson.StepDiscoverKeys, at: t0.Add(2 * time.Second)},
	)

	assert.Equal(t, stateDone, m.rows[0].state)
	assert.Equal(t, 1500*time.Millisecond, m.rows[0].elapsed)
	assert.Equal(t, stateRunning, m.rows[1].state)
	assert.Equal(t, statePending, m.rows[2].state)
	assert.InDelta(t, 1.0/3.0, m.fraction(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "Importing")
	assert.Contains(t, view, "2 rows (1.5s)")
	assert.Contains(t, view, SymbolPending)
	assert.Contains(t, view, "ctrl+c cancel")
}

func TestProgressModel_FailureAndDone(t *testing.T) {
	m := newProgressModel("Importing", importSteps, nil)
	failure := errors.New("malformed record")

	m, cmd := apply(t, m,
		stepStartedMsg{step: pgjson.StepStage, at: time.Unix(1, 0)},
		stepFailedMsg{step: pgjson.StepStage, err: failure, at: time.Unix(2, 0)},
		workDoneMsg{err: failure},
	)

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, stateFailed, m.rows[0].state)
	assert.True(t, m.done)
	assert.Equal(t, 2, strings.Count(m.View(), "malformed record"))
}

func TestProgressModel_IgnoresUnknownSteps(t *testing.T) {
	m := newProgressModel("Importing", importSteps, nil)

	m, _ = apply(t, m, stepStartedMsg{step: pgjson.StepRecordHistory, at: time.Now()})

	for _, r := range m.rows {
		assert.Equal(t, statePending, r.state)
	}
}

func TestProgressModel_CancelKeyStopsOnce(t *testing.T) {
	stops := 0
	m := newProgressModel("Importing", importSteps, func() { stops++ })

	ctrlC := tea.KeyMsg{Type: tea.KeyCtrlC}
	m, cmd := apply(t, m, ctrlC, ctrlC)

	assert.Nil(t, cmd, "the view waits for the work to return")
	assert.Equal(t, 1, stops)
	assert.Contains(t, m.View(), "cancelling")
}

func TestProgressModel_WindowResize(t *testing.T) {
	m := newProgressModel("Importing", importSteps, nil)

	m, _ = apply(t, m, tea.WindowSizeMsg{Width: 30})
	assert.Equal(t, 26, m.bar.Width)

	m, _ = apply(t, m, tea.WindowSizeMsg{Width: 200})
	assert.Equal(t, maxBarWidth, m.bar.Width)
}

func TestReporter(t *testing.T) {
	var sent []tea.Msg
	var printed []string
	now := time.Unix(42, 0)
	r := &Reporter{
		send:    func(m tea.Msg) { sent = append(sent, m) },
		println: func(a ...interface{}) { printed = append(printed, fmt.Sprint(a...)) },
		now:     func() time.Time { return now },
	}

	r.StepStarted(pgjson.StepStage)
	r.StepCompleted(pgjson.StepStage, "ok")
	r.StepFailed(pgjson.StepProject, errors.New("boom"))

	require.Len(t, sent, 3)
	assert.Equal(t, stepStartedMsg{step: pgjson.StepStage, at: now}, sent[0])
	assert.Equal(t, stepCompletedMsg{step: pgjson.StepStage, detail: "ok", at: now}, sent[1])
	assert.Equal(t, pgjson.StepProject, sent[2].(stepFailedMsg).step)

	r.Verbose("hidden %d", 1)
	r.Info("imported %d rows", 3)
	r.Error("100%% broken")
	require.Len(t, printed, 2)
	assert.Contains(t, printed[0], "imported 3 rows")
	assert.Contains(t, printed[1], "[ERROR] 100% broken")

	r.verbose = true
	r.Verbose("shown")
	assert.Len(t, printed, 3)
}

func TestRunWithProgress_ViewExitsBeforeWork(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		done <- RunWithProgress(context.Background(), "Importing", importSteps, true,
			func(ctx context.Context, r *Reporter) error {
				r.send(tea.QuitMsg{})
				<-ctx.Done()
				r.Info("Staging table %s retained", "mathesar_inference_schema.t")
				r.StepFailed(pgjson.StepStage, ctx.Err())
				return ctx.Err()
			},
			tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler(),
		)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("RunWithProgress still blocked after the view exited")
	}
}
