package apiv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec()
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "ContentSwap API", doc.Info.Title)

	// Every routed operation must be described
	for _, path := range []string{
		"/ping",
		"/register",
		"/login",
		"/logout",
		"/me",
		"/plans",
		"/stats",
		"/subscription",
		"/subscription/cancel",
		"/swap",
		"/swap/{id}",
		"/usage",
		"/usage/stats",
		"/payment/checkout",
		"/payment/callback",
		"/payment/return",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "missing path %s", path)
	}
}
