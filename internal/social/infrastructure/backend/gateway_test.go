package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/nourish/internal/shared/infrastructure/rpc"
	"github.com/felixgeelhaar/nourish/internal/shared/resilience"
	"github.com/felixgeelhaar/nourish/internal/social/domain"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGateway(rpc.NewClient(rpc.Config{BaseURL: server.URL}, rpc.SessionTokenSource("token"), nil))
}

func TestGateway_Connect(t *testing.T) {
	gateway := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, rpc.FunctionsPath+ConnectFunction, r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))

		var req domain.ConnectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "auth-code", req.Code)
		assert.Equal(t, "https://app/cb", req.RedirectURI)

		_, _ = w.Write([]byte(`{"account":{"id":"acc-1","account_name":"nourish.kitchen"}}`))
	})

	account, err := gateway.Connect(context.Background(),
		domain.ConnectRequest{Provider: "instagram", Code: "auth-code", RedirectURI: "https://app/cb"}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, "acc-1", account.ID)
	assert.Equal(t, "nourish.kitchen", account.AccountName)
	assert.Equal(t, "instagram", account.Provider)
}

func TestGateway_Share(t *testing.T) {
	gateway := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, rpc.FunctionsPath+ShareFunction, r.URL.Path)
		var req domain.ShareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"facebook"}, req.Platforms)

		_, _ = w.Write([]byte(`{"results":[{"platform":"facebook","success":true,"post_id":"123"}]}`))
	})

	results, err := gateway.Share(context.Background(),
		domain.ShareRequest{Platforms: []string{"facebook"}, Caption: "Lunch"}, "key-2")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "123", results[0].PostID)
}

func TestGateway_ShareRejected(t *testing.T) {
	gateway := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Account not linked"}`))
	})

	_, err := gateway.Share(context.Background(), domain.ShareRequest{Platforms: []string{"tiktok"}, Caption: "x"}, "key-3")
	assert.ErrorIs(t, err, resilience.ErrValidation)
}
