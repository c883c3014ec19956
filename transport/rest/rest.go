// Package rest is the synchronous HTTP shim: it exposes handlers from
// a registry.Cell at api/v{major}/{category}/{fn}, bypassing the
// interceptor chain entirely, in the same direct-dispatch style the
// teacher's rpc/http.go uses for its single-request JSON endpoint.
package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/cors"

	"github.com/thinktopic/peer/message"
	"github.com/thinktopic/peer/registry"
)

const maxRequestBody = 1024 * 128

// requestBody is the JSON body accepted for an RPC-category call: a
// client-supplied correlation id plus the positional arguments, same
// shape as an inbound rpc message over the websocket transport.
type requestBody struct {
	ID   string `json:"id"`
	Args []any  `json:"args"`
}

// successBody is the shape of a successful call: the same
// rpc-response envelope the chain's response writer would produce.
type successBody struct {
	Event  string `json:"event"`
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
}

// errorBody carries only a message: the REST shim has no interceptor
// chain response writer to attach a correlation id to a failed call.
type errorBody struct {
	Error string `json:"error"`
}

// Handler mounts the REST shim over a registry cell. It does not touch
// the peer table or the subscription machinery; every call is a bare
// function invocation against the currently installed dictionary.
type Handler struct {
	api         *registry.Cell
	allowedCORS []string
	corsHandler http.Handler
	pathPrefix  string
}

// NewHandler builds a REST shim bound to api, serving under prefix
// (e.g. "/api"), accepting cross-origin requests from allowedOrigins.
func NewHandler(api *registry.Cell, prefix string, allowedOrigins []string) *Handler {
	h := &Handler{
		api:         api,
		allowedCORS: allowedOrigins,
		pathPrefix:  strings.TrimSuffix(prefix, "/"),
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"POST", "GET"},
	})
	h.corsHandler = c.Handler(http.HandlerFunc(h.serve))
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.corsHandler.ServeHTTP(w, r)
}

// serve parses api/v{major}/{category}/{fn}, decodes the JSON body,
// invokes the matching descriptor synchronously, and writes the
// result (or error) back as JSON.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxRequestBody {
		http.Error(w, fmt.Sprintf("content length too large (%d>%d)", r.ContentLength, maxRequestBody), http.StatusRequestEntityTooLarge)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		http.Error(w, fmt.Sprintf("unsupported content type %q, want application/json", ct), http.StatusUnsupportedMediaType)
		return
	}

	major, category, fn, err := parsePath(h.pathPrefix, r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if major != 1 {
		http.Error(w, fmt.Sprintf("unsupported api version v%d", major), http.StatusNotFound)
		return
	}
	if category != registry.RPC {
		http.Error(w, fmt.Sprintf("category %q is not reachable over the REST shim", categoryName(category)), http.StatusNotFound)
		return
	}

	var body requestBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed JSON body", http.StatusBadRequest)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	desc, ok := h.api.Load().Lookup(registry.RPC, fn)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fmt.Sprintf("unhandled rpc request: %s", fn)})
		return
	}
	// The transport request is prepended to the body's args, ahead of
	// arity resolution, so a descriptor reachable over this shim
	// declares one more argument than it would over the chain.
	args, err := registry.ResolveArgs(desc, append([]any{r}, body.Args...))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	result, err := desc.CallRPC(r.Context(), args)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, successBody{Event: message.EventRPCResponse, ID: body.ID, Result: result})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func categoryName(c registry.Category) string {
	switch c {
	case registry.Event:
		return "event"
	case registry.RPC:
		return "rpc"
	case registry.Subscription:
		return "subscription"
	default:
		return "unknown"
	}
}

// parsePath extracts (major, category, fn) from a request path shaped
// like {prefix}/v{major}/{category}/{fn}.
func parsePath(prefix, path string) (major int, category registry.Category, fn string, err error) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return 0, "", "", fmt.Errorf("expected %s/v{major}/{category}/{fn}, got %q", prefix, path)
	}
	versionPart := strings.TrimPrefix(parts[0], "v")
	major, err = strconv.Atoi(versionPart)
	if err != nil {
		return 0, "", "", fmt.Errorf("malformed version segment %q", parts[0])
	}
	switch parts[1] {
	case "event":
		category = registry.Event
	case "rpc":
		category = registry.RPC
	case "subscription":
		category = registry.Subscription
	default:
		return 0, "", "", fmt.Errorf("unknown category %q", parts[1])
	}
	fn = parts[2]
	if fn == "" {
		return 0, "", "", fmt.Errorf("missing function name in %q", path)
	}
	return major, category, fn, nil
}
