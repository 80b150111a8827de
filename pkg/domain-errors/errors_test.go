package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeConflict, "request already resolved")
	assert.True(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeConflict))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeDownstream, "notification sink unavailable")

	require.Error(t, err)
	assert.True(t, HasCode(err, CodeDownstream))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "should vanish"))
}

func TestWrappedDomainErrorKeepsOuterCode(t *testing.T) {
	inner := New(CodeNotFound, "donor missing")
	outer := Wrap(fmt.Errorf("load donor: %w", inner), CodeDataIntegrity, "donor vanished mid-transition")

	assert.Equal(t, CodeDataIntegrity, CodeOf(outer))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeConflict:      http.StatusConflict,
		CodeDataIntegrity: http.StatusConflict,
		CodeTimeout:       http.StatusGatewayTimeout,
		CodeDownstream:    http.StatusBadGateway,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(New(code, "x")), string(code))
	}
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("uncoded")))
}
