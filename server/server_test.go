package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/onepanelio/podlogs/hub"
	"github.com/onepanelio/podlogs/kube"
	"github.com/onepanelio/podlogs/manager"
	"github.com/onepanelio/podlogs/metrics"
	"github.com/onepanelio/podlogs/model"
	"github.com/onepanelio/podlogs/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func writeTemplates(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.Nil(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.Nil(t, os.MkdirAll(filepath.Join(dir, "js"), 0o755))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte("<!DOCTYPE html>\n<html><head><title>Pod Logs</title></head><body></body></html>\n"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "css", "style.css"),
		[]byte("body { margin: 0; }\n"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "js", "app.js"),
		[]byte("console.log(\"ok\");\n"), 0o644))

	return dir
}

func newTestServer(t *testing.T, source stream.Source) (*Server, *manager.Manager, *metrics.Metrics) {
	t.Helper()

	m := metrics.New()
	mgr := manager.New(source, hub.New(), m)

	srv, err := NewServer(kube.NewMockClient(), mgr, m, writeTemplates(t))
	require.Nil(t, err)

	return srv, mgr, m
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndexServesUI(t *testing.T) {
	srv, _, _ := newTestServer(t, stream.NewSyntheticSource(time.Millisecond))

	rec := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html")
}

func TestListPods(t *testing.T) {
	srv, _, _ := newTestServer(t, stream.NewSyntheticSource(time.Millisecond))

	rec := get(t, srv, "/pods/default")
	require.Equal(t, http.StatusOK, rec.Code)

	var pods []model.Pod
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &pods))
	require.Len(t, pods, 2)
	assert.Equal(t, "pod-1", pods[0].Name)
	assert.Equal(t, []string{"container-1", "container-2"}, pods[0].Containers)
	assert.Equal(t, "pod-2", pods[1].Name)
	assert.Equal(t, []string{"container-3"}, pods[1].Containers)
}

type notFoundCluster struct{}

func (notFoundCluster) ListPods(ctx context.Context, namespace string) ([]*model.Pod, error) {
	return nil, apierrors.NewNotFound(schema.GroupResource{Resource: "namespaces"}, namespace)
}

func (notFoundCluster) ClusterName() string {
	return "broken"
}

type brokenCluster struct{}

func (brokenCluster) ListPods(ctx context.Context, namespace string) ([]*model.Pod, error) {
	return nil, errors.New("connection refused")
}

func (brokenCluster) ClusterName() string {
	return "broken"
}

func TestListPodsNamespaceNotFound(t *testing.T) {
	m := metrics.New()
	mgr := manager.New(stream.NewSyntheticSource(time.Millisecond), hub.New(), m)
	srv, err := NewServer(notFoundCluster{}, mgr, m, writeTemplates(t))
	require.Nil(t, err)

	rec := get(t, srv, "/pods/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Namespace not found.", body["error"])
}

func TestListPodsClusterFailure(t *testing.T) {
	m := metrics.New()
	mgr := manager.New(stream.NewSyntheticSource(time.Millisecond), hub.New(), m)
	srv, err := NewServer(brokenCluster{}, mgr, m, writeTemplates(t))
	require.Nil(t, err)

	rec := get(t, srv, "/pods/default")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Unknown error.", body["error"])
}

func TestClusterName(t *testing.T) {
	srv, _, _ := newTestServer(t, stream.NewSyntheticSource(time.Millisecond))

	rec := get(t, srv, "/cluster-name")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, kube.MockClusterName, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, stream.NewSyntheticSource(time.Millisecond))

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAssets(t *testing.T) {
	srv, _, _ := newTestServer(t, stream.NewSyntheticSource(time.Millisecond))

	rec := get(t, srv, "/assets/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "margin")

	rec = get(t, srv, "/assets/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")

	rec = get(t, srv, "/assets/notes.txt")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "File type not supported.", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, m := newTestServer(t, stream.NewSyntheticSource(time.Millisecond))
	m.SessionsStarted.Inc()

	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "podlogs_sessions_started_total 1")
}

func TestNewServerMissingTemplates(t *testing.T) {
	m := metrics.New()
	mgr := manager.New(stream.NewSyntheticSource(time.Millisecond), hub.New(), m)

	srv, err := NewServer(kube.NewMockClient(), mgr, m, t.TempDir())
	assert.Nil(t, srv)
	assert.NotNil(t, err)
}
