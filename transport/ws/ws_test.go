package ws

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinktopic/peer/listener"
	"github.com/thinktopic/peer/registry"
)

func TestConnCloseIsIdempotentUnderConcurrentCallers(t *testing.T) {
	l := listener.New(listener.Config{API: registry.NewDict()})
	srv := httptest.NewServer(NewHandler(l, []string{"*"}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, err := Dial(wsURL, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Close()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestOriginValidatorAllowsOnlyConfiguredOrigins(t *testing.T) {
	v := newOriginValidator([]string{"https://allowed.example"})
	assert.True(t, v.Allowed("https://allowed.example"))
	assert.False(t, v.Allowed("https://other.example"))
	assert.True(t, v.Allowed(""), "requests without an Origin header are not browser cross-origin requests")
}

func TestOriginValidatorWildcardAllowsAnyOrigin(t *testing.T) {
	v := newOriginValidator([]string{"*"})
	assert.True(t, v.Allowed("https://anything.example"))
}
