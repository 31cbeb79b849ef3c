package vies

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"euvat/pkg/domain"
)

func TestClient_Check(t *testing.T) {
	var gotPath string
	respond := func(status int, body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
	}

	tests := []struct {
		name     string
		status   int
		body     string
		want     Result
		category ErrorCategory
	}{
		{
			name:   "valid number",
			status: http.StatusOK,
			body:   `{"isValid":true,"userError":"VALID","name":"ACME LTD","address":"DUBLIN"}`,
			want:   Result{Outcome: OutcomeValid, Name: "ACME LTD", Address: "DUBLIN"},
		},
		{
			name:   "invalid number",
			status: http.StatusOK,
			body:   `{"isValid":false,"userError":"INVALID"}`,
			want:   Result{Outcome: OutcomeInvalid},
		},
		{
			name:   "server busy is unknown",
			status: http.StatusOK,
			body:   `{"isValid":false,"userError":"SERVER_BUSY"}`,
			want:   Unknown(ErrCodeServerBusy),
		},
		{
			name:   "member state unavailable is unknown",
			status: http.StatusOK,
			body:   `{"isValid":false,"userError":"MS_UNAVAILABLE"}`,
			want:   Unknown(ErrCodeMSUnavailable),
		},
		{
			name:   "invalid input on 400",
			status: http.StatusBadRequest,
			body:   `{"userError":"INVALID_INPUT"}`,
			want:   Result{Outcome: OutcomeInvalid, Errors: []string{ErrCodeInvalidInput}},
		},
		{
			name:     "gateway error is an outage",
			status:   http.StatusBadGateway,
			body:     ``,
			category: ErrorProviderOutage,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			category: ErrorRateLimited,
		},
		{
			name:     "garbage body",
			status:   http.StatusOK,
			body:     `<html>`,
			category: ErrorBadData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := respond(tt.status, tt.body)
			defer srv.Close()

			got, err := NewClient(srv.URL, time.Second).Check(context.Background(), domain.CountryGreece, "094259216")
			if tt.category != "" {
				require.Error(t, err)
				assert.Equal(t, tt.category, GetCategory(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "/ms/EL/vat/094259216", gotPath, "greek numbers use the EL prefix")
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 20*time.Millisecond).Check(context.Background(), "IE", "6388047V")
	require.Error(t, err)
	assert.Equal(t, ErrorTimeout, GetCategory(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, Unknown(ErrCodeTimeout), ResultForError(err))
}

func TestResult_JSON(t *testing.T) {
	t.Run("unknown renders null", func(t *testing.T) {
		b, err := json.Marshal(Unknown(ErrCodeServerBusy))
		require.NoError(t, err)
		assert.JSONEq(t, `{"valid":null,"errors":["SERVER_BUSY"]}`, string(b))
	})

	t.Run("invalid renders false with empty errors", func(t *testing.T) {
		b, err := json.Marshal(Result{Outcome: OutcomeInvalid})
		require.NoError(t, err)
		assert.JSONEq(t, `{"valid":false,"errors":[]}`, string(b))
	})

	t.Run("round trip keeps the outcome", func(t *testing.T) {
		var r Result
		require.NoError(t, json.Unmarshal([]byte(`{"valid":true,"errors":[]}`), &r))
		assert.Equal(t, OutcomeValid, r.Outcome)
	})
}

func TestResult_IsServerBusy(t *testing.T) {
	assert.True(t, Unknown("server_busy").IsServerBusy())
	assert.False(t, Unknown(ErrCodeMSUnavailable).IsServerBusy())
	assert.False(t, Result{}.IsServerBusy())
}
