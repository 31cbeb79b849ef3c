package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"euvat/pkg/platform/audit"
	"euvat/pkg/platform/audit/publisher"
	"euvat/pkg/platform/audit/store/memory"
	"euvat/pkg/testutil"
)

type failingReader struct{}

func (failingReader) List(context.Context, string) ([]audit.Event, error) {
	return nil, errors.New("connection reset")
}

func newRouter(reader AuditReader) http.Handler {
	r := chi.NewRouter()
	New(reader, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterAdmin(r)
	return r
}

func TestHandleAuditTrail(t *testing.T) {
	t.Run("lists events for the subject", func(t *testing.T) {
		pub := publisher.NewPublisher(memory.NewInMemoryStore())
		defer pub.Close()
		ctx := context.Background()
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventOrderVATRecorded), Subject: "1001", Country: "DE"}))
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventManualCollection), Subject: "1001"}))
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventOrderVATRecorded), Subject: "1002"}))

		rr := testutil.DoRequest(newRouter(pub), httptest.NewRequest(http.MethodGet, "/admin/audit/1001", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		resp := testutil.UnmarshalResponse[AuditTrailResponse](t, rr)
		assert.Equal(t, "1001", resp.Subject)
		assert.Equal(t, 2, resp.Total)
		assert.Equal(t, string(audit.EventOrderVATRecorded), resp.Events[0].Action)
		assert.Equal(t, "DE", resp.Events[0].Country)
	})

	t.Run("unknown subject returns an empty trail", func(t *testing.T) {
		pub := publisher.NewPublisher(memory.NewInMemoryStore())
		defer pub.Close()

		rr := testutil.DoRequest(newRouter(pub), httptest.NewRequest(http.MethodGet, "/admin/audit/none", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"subject":"none","events":[],"total":0}`, rr.Body.String())
	})

	t.Run("store failure hides details", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(failingReader{}), httptest.NewRequest(http.MethodGet, "/admin/audit/1001", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
		assert.NotContains(t, rr.Body.String(), "connection reset")
	})
}
