package workflow

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/config"
	"github.com/aravindh-murugesan/nas-snapsentry-go/internal/notifications"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInvocation(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		want    []string
		wantErr string
	}{
		{
			name:   "single name",
			params: map[string]any{"user": "u", "pwd": "p", "nasname": "data"},
			want:   []string{"data"},
		},
		{
			name:   "list of names",
			params: map[string]any{"user": "u", "pwd": "p", "nasname": []any{"data", "logs"}},
			want:   []string{"data", "logs"},
		},
		{
			name:    "missing password",
			params:  map[string]any{"user": "u", "nasname": "data"},
			wantErr: "missing parameter: pwd",
		},
		{
			name:    "empty list",
			params:  map[string]any{"user": "u", "pwd": "p", "nasname": []any{}},
			wantErr: "missing parameter: nasname",
		},
		{
			name:    "wrong type",
			params:  map[string]any{"user": "u", "pwd": "p", "nasname": 42},
			wantErr: "invalid invocation parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := DecodeInvocation(tt.params)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, inv.NASNames)
			assert.Equal(t, "u", inv.Credentials().Username)
			assert.Equal(t, "p", inv.Credentials().Password)
		})
	}
}

func TestNewNotifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Nil(t, NewNotifier(&config.Config{}, logger))

	n := NewNotifier(&config.Config{Webhook: config.WebhookConfig{URL: "http://hooks.local/nas"}}, logger)
	assert.NotNil(t, n)
}

func TestNewNotifier_UnreachableTelegramIsSkipped(t *testing.T) {
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer tg.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cfg := &config.Config{Telegram: config.TelegramConfig{BotToken: "123:abc", ChatID: "42", APIEndpoint: tg.URL + "/bot%s/%s"}}
	assert.Nil(t, NewNotifier(cfg, logger))
	assert.Contains(t, logs.String(), "Telegram notifications disabled")

	cfg.Webhook.URL = "http://hooks.local/nas"
	multi, ok := NewNotifier(cfg, logger).(notifications.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 1)
}

// newFakeService serves the identity and NAS endpoints for project "p1".
func newFakeService(t *testing.T, authStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /identity/auth/tokens", func(w http.ResponseWriter, r *http.Request) {
		if authStatus != http.StatusCreated {
			w.WriteHeader(authStatus)
			return
		}
		w.Header().Set("X-Subject-Token", "token-1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":{"project":{"id":"p1","name":"u","domain":{"id":"default"}}}}`))
	})
	mux.HandleFunc("GET /nas/p1/shares", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"shares":[{"id":"s-a","name":"a","status":"available","size":100}]}`))
	})
	mux.HandleFunc("GET /nas/p1/snapshots/detail", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"snapshots":[]}`))
	})
	mux.HandleFunc("POST /nas/p1/snapshots", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Cloud: config.CloudConfig{
			BaseURL:  baseURL,
			DomainID: "default",
			TimeZone: "Asia/Seoul",
		},
		Log: config.LogConfig{Level: "error"},
	}
}

func TestRunRetentionWorkflow(t *testing.T) {
	srv := newFakeService(t, http.StatusCreated)

	inv := Invocation{User: "u", Password: "p", NASNames: []string{"a", "missing"}}
	res := RunRetentionWorkflow(testConfig(srv.URL), inv, false)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":{"a":"Created snapshot (status: 202)","missing":"NAS not found"}}`, string(out))
}

func TestRunRetentionWorkflow_TelegramDown(t *testing.T) {
	srv := newFakeService(t, http.StatusCreated)
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer tg.Close()

	cfg := testConfig(srv.URL)
	cfg.Telegram = config.TelegramConfig{BotToken: "123:abc", ChatID: "42", APIEndpoint: tg.URL + "/bot%s/%s"}

	inv := Invocation{User: "u", Password: "p", NASNames: []string{"a", "missing"}}
	res := RunRetentionWorkflow(cfg, inv, false)

	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, map[string]string{
		"a":       "Created snapshot (status: 202)",
		"missing": "NAS not found",
	}, res.Result)
}

func TestRunRetentionWorkflow_AuthFailure(t *testing.T) {
	srv := newFakeService(t, http.StatusUnauthorized)

	inv := Invocation{User: "u", Password: "wrong", NASNames: []string{"a"}}
	res := RunRetentionWorkflow(testConfig(srv.URL), inv, false)

	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "authentication failed")
	assert.Nil(t, res.Result)
}

func TestRunRetentionWorkflow_InvalidInvocation(t *testing.T) {
	res := RunRetentionWorkflow(testConfig("http://127.0.0.1:1"), Invocation{User: "u"}, false)

	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "missing parameter: pwd")
}
