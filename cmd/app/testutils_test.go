package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func testConfig() *Config {
	return &Config{
		Environment:    "testing",
		Version:        "1.0.0",
		Secret:         testSecret,
		TokenTTL:       time.Hour,
		TrustedOrigins: []string{"http://localhost:5173"},
	}
}

func testTokens(t *testing.T) *userservice.TokenService {
	t.Helper()

	tokens, err := userservice.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	return tokens
}

// newBareApplication has no database behind it; only token checks work.
func newBareApplication(t *testing.T) *application {
	return &application{
		config:      testConfig(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		userService: userservice.NewUserService(nil, testTokens(t), 4),
	}
}

func newTestApplication(t *testing.T) (*application, *sql.DB) {
	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	app := &application{
		config:      testConfig(),
		logger:      logger,
		userService: userservice.NewUserService(db, testTokens(t), 4),
		blogService: blogservice.NewBlogService(db, cache, nil, logger),
	}

	return app, db
}

// do sends payload as JSON and returns the status and the raw body.
func (ts *testServer) do(t *testing.T, method, path string, token string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		js, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(js)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func errorMessage(t *testing.T, raw []byte) string {
	t.Helper()

	return decode[map[string]string](t, raw)["error"]
}
