package workload_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/china-tjj/dyncast"
	"github.com/china-tjj/dyncast/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool {
	return &b
}

func TestRun(t *testing.T) {
	w := &workload.Workload{
		Workers: 4,
		Rounds:  20,
		Conversions: []workload.Conversion{
			{Object: "D", Via: "A", To: "B", Succeeds: boolPtr(true), Repeat: 2},
			{Object: "D", Via: "B", To: "C", Succeeds: boolPtr(true), Repeat: 1},
			{Object: "B", Via: "A", To: "C", Succeeds: boolPtr(false), Repeat: 1},
			{Object: "SimpleDerivedFromDerived", Via: "SimpleBase", To: "OtherSimpleDerivedFinal", Succeeds: boolPtr(false), Repeat: 1},
			{Object: "Diamond", Via: "Left", To: "Right", Repeat: 1},
		},
	}
	s := dyncast.NewScope()
	report, err := workload.Run(context.Background(), s, w, discard())
	require.NoError(t, err)

	perRound := uint64(2 + 1 + 1 + 1 + 1)
	assert.Equal(t, 4*20*perRound, report.Conversions)
	assert.Equal(t, uint64(4*20*2), report.Failed)
	assert.Zero(t, report.Mismatches)
	assert.Equal(t, s.Fingerprint(), report.Fingerprint)
	assert.Positive(t, report.Stats.Hits)
	assert.Positive(t, report.Stats.Shortcuts)
}

func TestRunDefault(t *testing.T) {
	w := workload.Default()
	w.Workers, w.Rounds = 2, 3
	report, err := workload.Run(context.Background(), dyncast.NewScope(), w, discard())
	require.NoError(t, err)
	assert.Zero(t, report.Mismatches)
	assert.Positive(t, report.Stats.Uncacheable)
}

func TestRunExpectationMismatch(t *testing.T) {
	w := &workload.Workload{
		Workers:     1,
		Rounds:      1,
		Conversions: []workload.Conversion{{Object: "B", Via: "B", To: "C", Succeeds: boolPtr(true), Repeat: 1}},
	}
	_, err := workload.Run(context.Background(), dyncast.NewScope(), w, discard())
	assert.ErrorIs(t, err, workload.ErrMismatch)
}

func TestRunUnreachableVia(t *testing.T) {
	w := &workload.Workload{
		Workers:     1,
		Rounds:      1,
		Conversions: []workload.Conversion{{Object: "SimpleBase", Via: "D", To: "C", Repeat: 1}},
	}
	_, err := workload.Run(context.Background(), dyncast.NewScope(), w, discard())
	assert.ErrorIs(t, err, workload.ErrUnreachableVia)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	_, err := workload.Run(ctx, dyncast.NewScope(), workload.Default(), slog.New(slog.NewTextHandler(&buf, nil)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, buf.String(), "workload prepared")
}
