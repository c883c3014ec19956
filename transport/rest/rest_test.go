package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/registry"
)

func newRequest(t *testing.T, method, path string, body requestBody) *http.Request {
	t.Helper()
	enc, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(method, path, bytes.NewReader(enc))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestServeEchoesClientSuppliedID(t *testing.T) {
	dict := registry.NewDict().RPC(registry.NewRPC("add", func(ctx context.Context, args []any) (any, error) {
		return args[1].(float64) + args[2].(float64), nil
	}, []int{3}, false))

	h := NewHandler(registry.NewCell(dict), "/api", nil)
	id := uuid.NewString()
	req := newRequest(t, "POST", "/api/v1/rpc/add", requestBody{ID: id, Args: []any{float64(2), float64(3)}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp successBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, message.EventRPCResponse, resp.Event)
	assert.Equal(t, id, resp.ID)
	assert.InDelta(t, 5, resp.Result, 0.0001)
}

func TestServePrependsTransportRequestToArgs(t *testing.T) {
	var sawRequest bool
	dict := registry.NewDict().RPC(registry.NewRPC("whoami", func(ctx context.Context, args []any) (any, error) {
		_, sawRequest = args[0].(*http.Request)
		return "ok", nil
	}, []int{1}, false))

	h := NewHandler(registry.NewCell(dict), "/api", nil)
	req := newRequest(t, "POST", "/api/v1/rpc/whoami", requestBody{ID: uuid.NewString()})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, sawRequest, "the transport request must be prepended to the handler's args")
}

func TestServeReturnsFiveHundredOnUnhandledRPC(t *testing.T) {
	h := NewHandler(registry.NewCell(registry.NewDict()), "/api", nil)
	req := newRequest(t, "POST", "/api/v1/rpc/missing", requestBody{ID: uuid.NewString()})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "missing")
}

func TestServeReturnsFiveHundredOnHandlerError(t *testing.T) {
	dict := registry.NewDict().RPC(registry.NewRPC("boom", func(ctx context.Context, args []any) (any, error) {
		panic("kaboom")
	}, []int{1}, false))

	h := NewHandler(registry.NewCell(dict), "/api", nil)
	req := newRequest(t, "POST", "/api/v1/rpc/boom", requestBody{ID: uuid.NewString()})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "kaboom")
}

func TestServeRejectsNonRPCCategory(t *testing.T) {
	h := NewHandler(registry.NewCell(registry.NewDict()), "/api", nil)
	req := newRequest(t, "POST", "/api/v1/event/ping", requestBody{ID: uuid.NewString()})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
