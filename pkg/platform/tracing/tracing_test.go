package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapHTTPClient_PassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := WrapHTTPClient(nil, "test")
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.NotSame(t, http.DefaultClient, client)
}

func TestStart_NoopProvider(t *testing.T) {
	ctx, finish := Start(context.Background(), Tracer("test"), "op")
	assert.NotNil(t, ctx)
	finish(errors.New("boom"))
	finish(nil)
}
