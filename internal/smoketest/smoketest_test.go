package smoketest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragstack/ragctl/internal/config"
	"github.com/ragstack/ragctl/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewWriterLogger(io.Discard, logging.ERROR)
}

func TestHTTPCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{name: "healthy", statusCode: http.StatusOK, wantErr: false},
		{name: "redirect is acceptable", statusCode: http.StatusNoContent, wantErr: false},
		{name: "server error", statusCode: http.StatusInternalServerError, wantErr: true},
		{name: "not found", statusCode: http.StatusNotFound, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			check := NewHTTPCheck("api", server.URL)
			err := check.Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPCheck_UnreachableServer(t *testing.T) {
	check := NewHTTPCheck("api", "http://127.0.0.1:1/health")
	assert.Error(t, check.Run(context.Background()))
}

func TestRunner_ProbesEveryTarget(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := &config.Environment{
		Name: "staging",
		Services: []config.ServiceTarget{
			{Name: "model", ProbePath: "/health"},
			{Name: "api", ProbePath: "/health"},
			{Name: "ui", ProbePath: "/health"},
		},
		SmokeTest: config.SmokeTest{BaseURL: server.URL},
	}

	err := NewRunner(env, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/model/health", "/api/health", "/ui/health"}, paths)
}

func TestRunner_FirstFailureWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := &config.Environment{
		Name: "production",
		Services: []config.ServiceTarget{
			{Name: "model", ProbePath: "/health"},
			{Name: "api", ProbePath: "/health"},
		},
		SmokeTest: config.SmokeTest{BaseURL: server.URL},
	}

	err := NewRunner(env, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api")
}

func TestRunner_NothingConfiguredIsANoOp(t *testing.T) {
	env := &config.Environment{
		Name:     "staging",
		Services: []config.ServiceTarget{{Name: "api", ProbePath: "/health"}},
	}

	assert.NoError(t, NewRunner(env, testLogger()).Run(context.Background()))
}

func TestRunner_ExternalCommand(t *testing.T) {
	env := &config.Environment{
		Name:      "staging",
		SmokeTest: config.SmokeTest{Command: "true"},
	}
	assert.NoError(t, NewRunner(env, testLogger()).Run(context.Background()))

	env.SmokeTest.Command = "false"
	assert.Error(t, NewRunner(env, testLogger()).Run(context.Background()))
}
