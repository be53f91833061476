package httpapi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"polsearch/internal/apperr"
)

func TestIntParamDefaultsWhenAbsent(t *testing.T) {
	q := url.Values{}
	require.Equal(t, 20, intParam(q, "limit", 20))
}

func TestIntParamParsesValue(t *testing.T) {
	q := url.Values{"offset": {"40"}}
	require.Equal(t, 40, intParam(q, "offset", 0))
}

func TestIntParamFallsBackOnBadValue(t *testing.T) {
	q := url.Values{"limit": {"not-a-number"}}
	require.Equal(t, 20, intParam(q, "limit", 20))
}

func TestStatusFromErrorMapsValidation(t *testing.T) {
	require.Equal(t, 400, statusFromError(apperr.Field("query", "must not be empty")))
}

func TestStatusFromErrorMapsStoreUnavailable(t *testing.T) {
	require.Equal(t, 503, statusFromError(apperr.StoreUnavailable))
}
