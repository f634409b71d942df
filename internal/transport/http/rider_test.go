package httptransport

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The rider app submits the handoff code under the otp key; any other key
// would decode to an empty code and never match the stored one.
func TestVerifyDeliveryRequestDecodesOTPKey(t *testing.T) {
	var req verifyDeliveryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"otp":"482913"}`), &req))
	assert.Equal(t, "482913", req.Code)
}

func TestRiderLocationRouteIsPut(t *testing.T) {
	h := NewHTTPTransport(nil, nil, nil)
	h.RegisterRoutes()

	assert.True(t, h.router.Match(chi.NewRouteContext(), http.MethodPut, "/api/rider/location"))
	assert.False(t, h.router.Match(chi.NewRouteContext(), http.MethodPost, "/api/rider/location"))
}
