package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	o.RecordPaste("clipboard", "success")
	o.RecordPaste("clipboard", "success")
	o.RecordPaste("markdown", "error")
	o.RecordUpload(20*time.Millisecond, 1024, nil)
	o.RecordUpload(5*time.Millisecond, 2048, errors.New("boom"))
	o.RecordConversion(time.Millisecond, errors.New("bad"))
	o.RecordCleanupFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(o.pastes.WithLabelValues("clipboard", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.pastes.WithLabelValues("markdown", "error")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(o.uploadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.stageErrors.WithLabelValues("upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.stageErrors.WithLabelValues("convert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.cleanupFailures))
}

func TestPrometheusObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusObserver("dup", reg)
	require.NoError(t, err)

	_, err = NewPrometheusObserver("dup", reg)
	assert.Error(t, err)
}

func TestNilAndNopObservers(t *testing.T) {
	var o *PrometheusObserver
	assert.NotPanics(t, func() {
		o.RecordPaste("clipboard", "success")
		o.RecordUpload(time.Second, 1, nil)
		o.RecordConversion(time.Second, nil)
		o.RecordCleanupFailure()
		Nop().RecordPaste("x", "y")
	})
}
