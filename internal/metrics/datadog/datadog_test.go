package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dataflow/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{})
	require.Error(t, err)
	require.Nil(t, b)
}

func TestLabelsToTags_Sorted(t *testing.T) {
	t.Parallel()

	require.Nil(t, labelsToTags(nil))
	require.Equal(t,
		[]string{"job:nightly", "status:success", "step:copy", "table:events"},
		labelsToTags(metrics.Labels{"table": "events", "step": "copy", "status": "success", "job": "nightly"}),
	)
}

func TestMetricName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "step_total", metricName(metrics.StepTotal))
	require.Equal(t, "records_total", metricName(metrics.RecordsTotal))
	require.Equal(t, "custom", metricName("custom"))
}

func TestZeroBackendIsNoop(t *testing.T) {
	t.Parallel()

	b := &Backend{}
	b.IncCounter(metrics.StepTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 1, nil)
	require.NoError(t, b.Flush())
}

// TestFlush_SendsToAgent points the client at a local UDP socket standing in
// for the DogStatsD agent.
func TestFlush_SendsToAgent(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), GlobalTags: []string{"env:test"}})
	require.NoError(t, err)

	b.IncCounter(metrics.RecordsTotal, 7, metrics.Labels{"table": "events", "kind": "inserted"})
	require.NoError(t, b.Flush())

	buf := make([]byte, 64*1024)
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, pc.SetReadDeadline(deadline))
		n, _, err := pc.ReadFrom(buf)
		require.NoError(t, err, "no datagram carrying dataflow.records_total")
		payload := string(buf[:n])
		if strings.Contains(payload, "dataflow.records_total:7|c") {
			require.Contains(t, payload, "kind:inserted")
			require.Contains(t, payload, "env:test")
			return
		}
	}
}
