// internal/httpapi/server_test.go
package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formsync/internal/common/logger"
)

type stubStore struct {
	resetCalls int
	resetErr   error
}

func (s *stubStore) Init(ctx context.Context) error { return nil }

func (s *stubStore) IsNew(ctx context.Context, id string) (bool, error) { return true, nil }

func (s *stubStore) MarkDelivered(ctx context.Context, id string) error { return nil }

func (s *stubStore) Reset(ctx context.Context) error {
	s.resetCalls++
	return s.resetErr
}

func newTestServer(t *testing.T) (*httptest.Server, string, *stubStore) {
	t.Helper()
	dir := t.TempDir()
	store := &stubStore{}
	s := NewServer(":0", dir, store, logger.NewTestLogger(t))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, dir, store
}

func TestDownload_ServesArtifact(t *testing.T) {
	srv, dir, _ := newTestServer(t)

	content := "Name\tScore\nAda\t10\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "responses.csv"), []byte(content), 0o644))

	resp, err := http.Get(srv.URL + "/download/responses.csv")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "responses.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, string(body))
}

func TestDownload_MissingArtifactIs404(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/download/nope.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownload_RejectsPathTraversal(t *testing.T) {
	srv, dir, _ := newTestServer(t)

	// a file outside the export dir must stay unreachable
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("nope"), 0o644))
	defer os.Remove(outside)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/download/..%2Fsecret.txt", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminReset(t *testing.T) {
	srv, _, store := newTestServer(t)

	resp, err := http.Post(srv.URL+"/admin/reset", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, store.resetCalls)
}

func TestAdminReset_GetRejected(t *testing.T) {
	srv, _, store := newTestServer(t)

	resp, err := http.Get(srv.URL + "/admin/reset")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, 0, store.resetCalls)
}
