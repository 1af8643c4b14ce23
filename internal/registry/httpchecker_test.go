// ABOUTME: Tests for the HTTP premium checker
// ABOUTME: Verifies state parsing and failure mapping against httptest servers

package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-assist/internal/model"
)

func TestHTTPPremiumChecker_Active(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"state":"active","remaining_credentials":7}`))
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPPremiumChecker(srv.URL, nil, nil)
	state, info, err := c.CheckPremiumStatus(context.Background())
	require.NoError(t, err)

	assert.Equal(t, model.PremiumActive, state)
	require.NotNil(t, info)
	assert.Equal(t, 7, info.RemainingCredentials)
}

func TestHTTPPremiumChecker_StateParsing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.PremiumState
	}{
		{"inactive", `{"state":"inactive"}`, model.PremiumInactive},
		{"unrecognized", `{"state":"trial"}`, model.PremiumUnknown},
		{"empty", `{}`, model.PremiumUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			c := NewHTTPPremiumChecker(srv.URL, nil, nil)
			state, _, err := c.CheckPremiumStatus(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestHTTPPremiumChecker_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPPremiumChecker(srv.URL, nil, nil)
	state, info, err := c.CheckPremiumStatus(context.Background())
	assert.Error(t, err)
	assert.Equal(t, model.PremiumUnknown, state)
	assert.Nil(t, info)
}

func TestHTTPPremiumChecker_Unreachable(t *testing.T) {
	c := NewHTTPPremiumChecker("http://127.0.0.1:1/status", nil, nil)
	_, _, err := c.CheckPremiumStatus(context.Background())
	assert.Error(t, err)
}
