package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/pgjson/pkg/pgjson"
)

func TestStepReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewStepReporter(NewConsoleLoggerTo(&buf, true))

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	r.StepStarted(pgjson.StepStage)
	clock = clock.Add(250 * time.Millisecond)
	r.StepCompleted(pgjson.StepStage, "3 rows")

	r.StepStarted(pgjson.StepDiscoverKeys)
	clock = clock.Add(time.Second)
	r.StepFailed(pgjson.StepDiscoverKeys, errors.New("not an object"))

	assert.Equal(t,
		"[VERBOSE] -> stage\n"+
			"✓ stage: 3 rows (250ms)\n"+
			"[VERBOSE] -> discover keys\n"+
			"[ERROR] ✗ discover keys failed after 1s: not an object\n",
		buf.String())
}

func TestStepReporter_CompletedWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	r := NewStepReporter(NewConsoleLoggerTo(&buf, false))
	r.StepCompleted(pgjson.StepCleanup, "")
	assert.Equal(t, "✓ cleanup (0s)\n", buf.String())
}

var _ pgjson.ProgressReporter = NullReporter{}
var _ pgjson.ProgressReporter = (*StepReporter)(nil)
