package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveIssue(398, 20*time.Millisecond)
	m.ObserveVerification("authentic_first_verification")
	m.ObserveVerification("tampered")
	m.ObserveVerification("tampered")

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()

	assert.Contains(t, out, "kaitiaki_items_issued_total 1")
	assert.Contains(t, out, `kaitiaki_verifications_total{outcome="tampered"} 2`)
	assert.Contains(t, out, `kaitiaki_verifications_total{outcome="authentic_first_verification"} 1`)
	assert.Contains(t, out, "kaitiaki_mining_attempts_sum 398")
	assert.Contains(t, out, "kaitiaki_mining_duration_seconds_count 1")
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveVerification("validation_error")

	path := filepath.Join(t.TempDir(), "kaitiaki.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `kaitiaki_verifications_total{outcome="validation_error"} 1`)

	assert.NoError(t, m.WriteTextfile(""))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveIssue(1, time.Second)
		m.ObserveVerification("tampered")
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.NoError(t, m.WritePrometheus(&bytes.Buffer{}))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveVerification("tampered")

	var buf bytes.Buffer
	require.NoError(t, b.WritePrometheus(&buf))
	assert.NotContains(t, buf.String(), "tampered")
}
