package handle

import (
	"testing"
	"time"

	"github.com/googydeaath/dbhandle/internal/database"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpen_UnreachableMongo drives the real driver against a port nothing listens on
func TestOpen_UnreachableMongo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	logger, hook := logtest.NewNullLogger()
	recorder := &transitionRecorder{}

	h, err := Open(database.NewMongoDriver(), Options{
		Address:        "mongodb://localhost:1",
		Database:       "app",
		Collections:    []string{"users"},
		ConnectTimeout: 2 * time.Second,
		Observer:       recorder,
	}, logger)
	require.NoError(t, err)

	status, err := waitFor(t, h.Connected())
	assert.Equal(t, StatusError, status)
	assert.ErrorIs(t, err, ErrConnectFailure)
	assert.Equal(t, StatusError, h.Status())

	_, err = h.Collection("users")
	assert.ErrorIs(t, err, ErrNotReady)

	assert.Equal(t, 1, errorEntries(hook))
	assert.Equal(t, [][2]Status{
		{StatusNotExist, StatusBusy},
		{StatusBusy, StatusError},
	}, recorder.Transitions())
}
