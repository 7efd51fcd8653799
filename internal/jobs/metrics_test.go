package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("autopost:sweep").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("autopost:sweep").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("autopost:sweep", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("autopost:sweep", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("autopost:sweep")))
}

func TestAddSweptIgnoresEmpty(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddSwept("enqueued", 0)
	m.AddSwept("enqueued", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.swept.WithLabelValues("enqueued")))

	var nilMetrics *Metrics
	nilMetrics.AddSwept("enqueued", 1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
