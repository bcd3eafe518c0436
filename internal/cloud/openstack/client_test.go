package openstack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken   = "token-abc"
	testProject = "proj-1"
)

// fakeNAS emulates the identity and NAS endpoints of the provider.
type fakeNAS struct {
	mu sync.Mutex

	authStatus int
	shares     []cloud.Share
	snapshots  []cloud.Snapshot
	failDelete map[string]int

	authBody    map[string]any
	created     []createSnapshotRequest
	deleted     []string
	deleteDelay  time.Duration
	deleteStarts []time.Time
	deleteEnds   []time.Time
	badTokens   int
}

func newFakeNAS() *fakeNAS {
	return &fakeNAS{
		authStatus: http.StatusCreated,
		failDelete: map[string]int{},
	}
}

func (f *fakeNAS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/identity/auth/tokens" && r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&f.authBody)
		if f.authStatus != http.StatusCreated {
			w.WriteHeader(f.authStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"The request you have made requires authentication."}}`))
			return
		}
		w.Header().Set("X-Subject-Token", testToken)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":{"expires_at":"2030-01-01T00:00:00.000000Z","project":{"id":"` + testProject + `","name":"alice","domain":{"id":"default"}}}}`))
		return
	}

	if r.Header.Get("X-Auth-Token") != testToken {
		f.badTokens++
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	prefix := "/nas/" + testProject
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == prefix+"/shares":
		_ = json.NewEncoder(w).Encode(listSharesResponse{Shares: f.shares})
	case r.Method == http.MethodGet && r.URL.Path == prefix+"/snapshots/detail":
		_ = json.NewEncoder(w).Encode(listSnapshotsResponse{Snapshots: f.snapshots})
	case r.Method == http.MethodPost && r.URL.Path == prefix+"/snapshots":
		var req createSnapshotRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Snapshot.ShareID == "broken" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"badRequest":{"message":"share is busy"}}`))
			return
		}
		f.created = append(f.created, req)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"snapshot":{"id":"new-snap","share_id":"` + req.Snapshot.ShareID + `"}}`))
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, prefix+"/snapshots/"):
		id := strings.TrimPrefix(r.URL.Path, prefix+"/snapshots/")
		if code, ok := f.failDelete[id]; ok {
			w.WriteHeader(code)
			return
		}
		f.deleteStarts = append(f.deleteStarts, time.Now())
		time.Sleep(f.deleteDelay)
		f.deleted = append(f.deleted, id)
		f.deleteEnds = append(f.deleteEnds, time.Now())
		w.WriteHeader(http.StatusAccepted)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeNAS) *Client {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	c := &Client{
		BaseURL:        srv.URL + "/",
		Location:       seoul,
		DeleteInterval: 0,
	}
	require.NoError(t, c.NewClient())
	c.now = func() time.Time { return time.Date(2025, 12, 21, 3, 30, 0, 0, time.UTC) }
	return c
}

func TestClient_NewClient(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.NewClient(), "empty base URL must be rejected")

	c = &Client{BaseURL: "https://api.example.com/gd1/"}
	require.NoError(t, c.NewClient())
	assert.Equal(t, "https://api.example.com/gd1/identity/", c.IdentityClient.Endpoint)
	assert.Equal(t, "default", c.DomainID)
	assert.Equal(t, "openstack-nas", c.GetCloudProviderName())
}

func TestClient_Authenticate(t *testing.T) {
	fake := newFakeNAS()
	c := newTestClient(t, fake)

	session, err := c.Authenticate(context.Background(), cloud.Credentials{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, testToken, session.Token)
	assert.Equal(t, testProject, session.ProjectID)
	assert.True(t, strings.HasSuffix(c.NASClient.Endpoint, "/nas/proj-1/"), "endpoint %s", c.NASClient.Endpoint)

	// Password method, project scoped by the user name.
	raw, err := json.Marshal(fake.authBody)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `"methods":["password"]`)
	assert.Contains(t, body, `"name":"alice"`)
	assert.Contains(t, body, `"password":"s3cret"`)
	assert.Contains(t, body, `"project"`)
}

func TestClient_Authenticate_Failure(t *testing.T) {
	fake := newFakeNAS()
	fake.authStatus = http.StatusUnauthorized
	c := newTestClient(t, fake)

	_, err := c.Authenticate(context.Background(), cloud.Credentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)

	var authErr *cloud.AuthError
	assert.True(t, errors.As(err, &authErr), "expected *cloud.AuthError, got %T", err)
}

func TestClient_CallsRequireSession(t *testing.T) {
	c := newTestClient(t, newFakeNAS())
	ctx := context.Background()

	_, err := c.ListShares(ctx)
	var fetchErr *cloud.InventoryFetchError
	assert.True(t, errors.As(err, &fetchErr))

	_, err = c.ListSnapshots(ctx)
	assert.True(t, errors.As(err, &fetchErr))

	_, err = c.CreateSnapshot(ctx, "share-1", "nas")
	assert.ErrorIs(t, err, errNoSession)
	assert.ErrorIs(t, c.DeleteSnapshots(ctx, []string{"a"}), errNoSession)
}

func TestClient_Inventory(t *testing.T) {
	fake := newFakeNAS()
	fake.shares = []cloud.Share{
		{ID: "share-1", Name: "data"},
		{ID: "share-2", Name: "logs"},
		{ID: "share-3", Name: "data"},
	}
	fake.snapshots = []cloud.Snapshot{
		{ID: "s1", ShareID: "share-1", CreatedAt: "2025-12-20T10:00:00.000000"},
		{ID: "s2", ShareID: "share-2", CreatedAt: "2025-12-19T10:00:00.000000"},
	}
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.Authenticate(ctx, cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	shares, err := c.ListShares(ctx)
	require.NoError(t, err)
	assert.Len(t, shares, 3)

	id, err := c.FindShareID(ctx, "data")
	require.NoError(t, err)
	assert.Equal(t, "share-1", id, "first match in listing order wins")

	_, err = c.FindShareID(ctx, "missing")
	assert.ErrorIs(t, err, cloud.ErrShareNotFound)

	snaps, err := c.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "2025-12-20T10:00:00.000000", snaps[0].CreatedAt, "created_at is kept verbatim")
	assert.Equal(t, "share-2", snaps[1].ShareID)
	assert.Zero(t, fake.badTokens)
}

func TestClient_CreateSnapshot(t *testing.T) {
	fake := newFakeNAS()
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.Authenticate(ctx, cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	status, err := c.CreateSnapshot(ctx, "share-1", "data")
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)

	require.Len(t, fake.created, 1)
	assert.Equal(t, createSnapshotOpts{
		Name:        "251221-12:30-data-snapshot",
		ShareID:     "share-1",
		Force:       "True",
		Description: "",
	}, fake.created[0].Snapshot)
}

func TestClient_CreateSnapshot_Rejected(t *testing.T) {
	fake := newFakeNAS()
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.Authenticate(ctx, cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	status, err := c.CreateSnapshot(ctx, "broken", "data")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, status)

	var httpErr *cloud.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "CreateSnapshot", httpErr.Op)
}

func TestClient_DeleteSnapshots(t *testing.T) {
	fake := newFakeNAS()
	fake.deleteDelay = 60 * time.Millisecond
	c := newTestClient(t, fake)
	c.DeleteInterval = 80 * time.Millisecond
	ctx := context.Background()

	_, err := c.Authenticate(ctx, cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, c.DeleteSnapshots(ctx, []string{"a", "b", "c"}))
	assert.Equal(t, []string{"a", "b", "c"}, fake.deleted, "deletes are issued in order")

	// The pause is counted from the end of the previous call, so a slow
	// call does not eat into it.
	require.Len(t, fake.deleteStarts, 3)
	require.Len(t, fake.deleteEnds, 3)
	for i := 1; i < len(fake.deleteStarts); i++ {
		pause := fake.deleteStarts[i].Sub(fake.deleteEnds[i-1])
		assert.GreaterOrEqual(t, pause, 75*time.Millisecond, "delete %d followed too early", i)
	}
}

func TestClient_DeleteSnapshots_SingleCallDoesNotWait(t *testing.T) {
	fake := newFakeNAS()
	c := newTestClient(t, fake)
	c.DeleteInterval = time.Hour
	ctx := context.Background()

	_, err := c.Authenticate(ctx, cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, c.DeleteSnapshots(ctx, []string{"a"}))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"a"}, fake.deleted)
}

func TestClient_LogsThroughConfiguredLogger(t *testing.T) {
	fake := newFakeNAS()
	c := newTestClient(t, fake)

	var buf bytes.Buffer
	c.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	_, err := c.Authenticate(ctx, cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteSnapshots(ctx, []string{"a"}))

	assert.Contains(t, buf.String(), "NAS session established")
	assert.Contains(t, buf.String(), `"snapshot_id":"a"`)
}

func TestClient_DeleteSnapshots_StopsOnFailure(t *testing.T) {
	fake := newFakeNAS()
	fake.failDelete["b"] = http.StatusNotFound
	c := newTestClient(t, fake)
	ctx := context.Background()

	_, err := c.Authenticate(ctx, cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	err = c.DeleteSnapshots(ctx, []string{"a", "b", "c"})
	require.Error(t, err)

	var httpErr *cloud.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, httpErr.Op, "b")
	assert.Equal(t, []string{"a"}, fake.deleted)
}

func TestClient_DeleteSnapshots_ContextCancelled(t *testing.T) {
	fake := newFakeNAS()
	c := newTestClient(t, fake)
	c.DeleteInterval = time.Hour

	_, err := c.Authenticate(context.Background(), cloud.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = c.DeleteSnapshots(ctx, []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, fake.deleted)
}
