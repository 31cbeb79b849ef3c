package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"euvat/internal/exemption"
	"euvat/internal/ordervat"
	"euvat/internal/ordervat/store"
	"euvat/pkg/testutil"
)

func newRouter(t *testing.T, manual bool) (http.Handler, *store.InMemoryStore) {
	t.Helper()
	s := store.NewInMemoryStore()
	rec, err := ordervat.NewRecorder(s, ordervat.WithManualCollection(manual))
	require.NoError(t, err)

	h := New(rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	return r, s
}

func seed(t *testing.T, s *store.InMemoryStore) {
	t.Helper()
	require.NoError(t, s.SetOrderMeta(context.Background(), "42", map[string]string{
		ordervat.MetaVATNumber:       "DE123456789",
		ordervat.MetaVATCountry:      "DE",
		ordervat.MetaValidationState: string(exemption.StateValid),
		ordervat.MetaSelfCertified:   ordervat.No,
		ordervat.MetaBillingCountry:  "DE",
	}))
}

func TestHandleGet(t *testing.T) {
	router, s := newRouter(t, false)
	seed(t, s)

	t.Run("stored order", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/orders/42/vat", "", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		got := testutil.UnmarshalResponse[ordervat.OrderVAT](t, rr)
		assert.Equal(t, "DE123456789", got.VATNumber)
		assert.Equal(t, exemption.StateValid, got.ValidationState)
	})

	t.Run("unknown order", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/orders/7/vat", "", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}

func TestHandleCollect(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		router, s := newRouter(t, false)
		seed(t, s)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/orders/42/vat/collect", "", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("enabled", func(t *testing.T) {
		router, s := newRouter(t, true)
		seed(t, s)
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/orders/42/vat/collect", "", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		got := testutil.UnmarshalResponse[ordervat.OrderVAT](t, rr)
		assert.Equal(t, exemption.StateEnteredManually, got.ValidationState)
	})
}

func TestHandleCopyToRenewal(t *testing.T) {
	router, s := newRouter(t, false)
	seed(t, s)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/orders/42/renewals/43", "", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	meta, err := s.OrderMeta(context.Background(), "43")
	require.NoError(t, err)
	assert.Equal(t, "DE123456789", meta[ordervat.MetaVATNumber])
	assert.Equal(t, string(exemption.StateValid), meta[ordervat.MetaValidationState])
}
