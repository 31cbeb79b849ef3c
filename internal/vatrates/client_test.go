package vatrates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = `{
  "last_updated": "2024-01-01",
  "disclaimer": "rates may change",
  "rates": {
    "FR": {"country": "France", "standard_rate": 20, "reduced_rate": 10, "reduced_rate_alt": 5.5, "super_reduced_rate": 2.1, "parking_rate": false},
    "UK": {"country": "United Kingdom", "standard_rate": 20, "reduced_rate": 5, "reduced_rate_alt": false, "super_reduced_rate": false, "parking_rate": false},
    "EL": {"country": "Greece", "standard_rate": "24", "reduced_rate": 13, "reduced_rate_alt": 6, "super_reduced_rate": false, "parking_rate": false},
    "DK": {"country": "Denmark", "standard_rate": 25, "reduced_rate": false, "reduced_rate_alt": false, "super_reduced_rate": false, "parking_rate": false}
  }
}`

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	table, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)

	t.Run("feed codes renamed to ISO", func(t *testing.T) {
		assert.Contains(t, table.Rates, "GR")
		assert.Contains(t, table.Rates, "GB")
		assert.NotContains(t, table.Rates, "EL")
		assert.NotContains(t, table.Rates, "UK")
		assert.Equal(t, "24", table.Rates["GR"].StandardRate.String())
	})

	t.Run("territories borrow rates", func(t *testing.T) {
		require.Contains(t, table.Rates, "MC")
		require.Contains(t, table.Rates, "IM")
		assert.Equal(t, "Monaco", table.Rates["MC"].Country)
		assert.Equal(t, "Isle of Man", table.Rates["IM"].Country)
		assert.Equal(t, "20", table.Rates["MC"].StandardRate.String())
		assert.Equal(t, "5", table.Rates["IM"].ReducedRate.String())
		assert.Equal(t, "France", table.Rates["FR"].Country)
	})

	t.Run("missing reduced rate falls back to standard", func(t *testing.T) {
		assert.Equal(t, "25", table.Rates["DK"].ReducedRate.String())
		assert.Nil(t, table.Rates["DK"].ParkingRate)
	})

	assert.True(t, table.Valid())
	assert.Equal(t, "2024-01-01", table.LastUpdated)
}

func TestClient_FetchErrors(t *testing.T) {
	t.Run("non 200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
		require.Error(t, err)
	})
}

func TestTable_Valid(t *testing.T) {
	twenty := parseRate([]byte("20"))
	assert.False(t, Table{}.Valid())
	assert.True(t, Table{Rates: map[string]Rates{"FR": {StandardRate: twenty}}}.Valid())
	assert.False(t, Table{Rates: map[string]Rates{"FR": {StandardRate: twenty}, "XX": {}}}.Valid())
	assert.Nil(t, parseRate([]byte("false")))
	assert.Nil(t, parseRate([]byte("null")))
}
