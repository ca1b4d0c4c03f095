package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)
	run := domain.AnalysisRun{ID: "run-1", GeneratedAt: now}
	record := domain.IncidentRecord{
		ID:             "chain-0123456789abcdef",
		NetworkElement: "E1",
		Kind:           domain.KindSequential,
		Type:           "sequential",
		Gaps:           []float64{10},
		Members:        "A;B",
	}

	msg, err := serializeToMessage(run, record)
	require.NoError(t, err)

	assert.Equal(t, []byte("chain-0123456789abcdef"), msg.Key)
	assert.Contains(t, string(msg.Value), `"kind":"sequential"`)
	assert.Contains(t, string(msg.Value), `"members":"A;B"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "chain_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("sequential"), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestWriter_PublishEmptyRun(t *testing.T) {
	w := NewWriter([]string{"localhost:1"}, "outage-chains", slog.Default())
	t.Cleanup(func() { _ = w.Close() })

	// Nothing to write, so no broker connection is attempted.
	require.NoError(t, w.Publish(context.Background(), domain.AnalysisRun{ID: "run-1"}))
	assert.Equal(t, "kafka", w.Name())
}
