package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgdeck/internal/interfaces/http/handlers/testutil"
)

type stubPinger struct{ err error }

func (s stubPinger) PingContext(context.Context) error { return s.err }

func TestHealthHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		pinger     dbPinger
		wantStatus int
		wantDB     string
	}{
		{name: "healthy", pinger: stubPinger{}, wantStatus: http.StatusOK, wantDB: "up"},
		{name: "database down", pinger: stubPinger{err: errors.New("dial tcp: refused")}, wantStatus: http.StatusServiceUnavailable, wantDB: "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.pinger, "test", testutil.NewMockLogger())
			c, w := testutil.NewTestContext(http.MethodGet, "/health", nil)
			handler.HealthCheck(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantDB, body["database"])
			assert.Equal(t, "test", body["version"])
		})
	}
}
