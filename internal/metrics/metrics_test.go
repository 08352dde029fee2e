package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/googydeaath/dbhandle/internal/database"
	"github.com/googydeaath/dbhandle/internal/handle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_StatusChanged(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.StatusChanged("h1", handle.StatusNotExist, handle.StatusBusy)
	c.StatusChanged("h1", handle.StatusBusy, handle.StatusReady)

	assert.Equal(t, float64(handle.StatusReady), testutil.ToFloat64(c.status.WithLabelValues("h1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("not_exist", "busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("busy", "ready")))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestCollector_ObservesHandle(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	h, err := handle.Open(database.NewMockDriver(), handle.Options{
		Address:     "mongodb://mock:27017",
		Database:    "app",
		Collections: []string{"users"},
		Observer:    c,
	}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := h.Connected().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, handle.StatusReady, status)

	op, err := h.Close()
	require.NoError(t, err)
	status, err = op.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, handle.StatusDisconnected, status)

	assert.Equal(t, float64(handle.StatusDisconnected), testutil.ToFloat64(c.status.WithLabelValues(h.ID())))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("ready", "busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("busy", "disconnected")))
}
