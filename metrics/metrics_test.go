package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsCount(t *testing.T) {
	m := New()

	m.ConnectedClients.Inc()
	m.ActiveSessions.Inc()
	m.ActiveSessions.Dec()
	m.SessionsStarted.Inc()
	m.SessionsStarted.Inc()
	m.DroppedDeliveries.Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectedClients))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DroppedDeliveries))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.LinesBroadcast.Add(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "podlogs_lines_broadcast_total 5")
}

func TestInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
