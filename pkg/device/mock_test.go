package device

import (
	"testing"
	"time"

	"github.com/itohio/golightmeter/pkg/config"
	"github.com/itohio/golightmeter/pkg/metering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockConfig() *config.Config {
	cfg := config.Default()
	cfg.Measurement.SampleInterval = 0
	cfg.Mock.Seed = 5
	return cfg
}

// waitFor reads reports until one of the wanted kind arrives.
func waitFor(t *testing.T, reports <-chan Report, kind Kind) Report {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case r, ok := <-reports:
			require.True(t, ok, "reports channel closed")
			if r.Kind == kind {
				return r
			}
		case <-timeout:
			t.Fatalf("no %s report within timeout", kind)
		}
	}
}

func TestMock_NotConnected(t *testing.T) {
	m := NewMock(mockConfig())
	assert.False(t, m.IsConnected())
	assert.ErrorIs(t, m.Send("help"), ErrNotConnected)
	assert.NoError(t, m.Close())
}

func TestMock_ConnectTwice(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	assert.True(t, m.IsConnected())
	assert.Error(t, m.Connect())
}

func TestMock_Measure(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	reports := m.Reports()
	banner := waitFor(t, reports, Text)
	assert.Contains(t, banner.Text, "Light Meter")

	require.NoError(t, m.Send("config type matrix"))
	reply := waitFor(t, reports, Reply)
	assert.Equal(t, "Metering type configured to: matrix", reply.Text)

	require.NoError(t, m.Send("start measure"))
	reply = waitFor(t, reports, Reply)
	assert.Equal(t, "Measurement started", reply.Text)

	r := waitFor(t, reports, Measurement)
	assert.Equal(t, metering.Matrix, r.Mode)
	assert.Equal(t, 100, r.ISO)
	assert.Greater(t, r.Shutter, float32(0))
	assert.Contains(t, r.Recommendation, "ISO 100")

	// The reported grid is the simulated scene, quantized to ADC counts
	lux := m.Scene().Lux()
	for i := range lux {
		for j := range lux[i] {
			assert.InDelta(t, lux[i][j], r.Cells[i][j].Lux, 60)
		}
	}
}

func TestMock_InvalidCommand(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())
	defer m.Close()

	require.NoError(t, m.Send("config iso 0"))
	r := waitFor(t, m.Reports(), Failure)
	assert.Contains(t, r.Text, "invalid configuration")
}

func TestMock_BadConfig(t *testing.T) {
	cfg := mockConfig()
	cfg.Exposure.Model = "incident"
	m := NewMock(cfg)
	assert.Error(t, m.Connect())
	assert.False(t, m.IsConnected())
}

// TestMock_GracefulShutdown tests that Mock closes the reports channel
// when Close() is called and can connect again afterwards.
func TestMock_GracefulShutdown(t *testing.T) {
	m := NewMock(mockConfig())
	require.NoError(t, m.Connect())

	reports := m.Reports()
	waitFor(t, reports, Text)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range reports {
		}
	}()

	require.NoError(t, m.Close())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Reports channel did not close within timeout")
	}
	assert.False(t, m.IsConnected())

	// Reconnect gets a fresh channel
	require.NoError(t, m.Connect())
	defer m.Close()
	waitFor(t, m.Reports(), Text)
}
