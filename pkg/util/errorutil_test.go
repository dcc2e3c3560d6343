package util

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageErrorsCarryRetryScope(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		code  string
		scope RetryScope
	}{
		{"extraction", NewExtractionFailed(errors.New("boom")), CodeExtractionFailed, RetryScopeUpload},
		{"analysis upload", NewAnalysisFailed(RetryScopeUpload, errors.New("boom")), CodeAnalysisFailed, RetryScopeUpload},
		{"analysis refresh", NewAnalysisFailed(RetryScopeRefresh, errors.New("boom")), CodeAnalysisFailed, RetryScopeRefresh},
		{"drafting", NewDraftingFailed(errors.New("boom")), CodeDraftingFailed, RetryScopeLetter},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var domainErr *DomainError
			require.True(t, errors.As(tc.err, &domainErr))
			assert.Equal(t, tc.code, domainErr.Code)
			assert.Equal(t, http.StatusBadGateway, domainErr.HTTPStatus)
			assert.Equal(t, tc.scope, domainErr.Details["retry_scope"])
		})
	}
}

func TestStageErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewExtractionFailed(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMalformedModelOutputKeepsRaw(t *testing.T) {
	err := NewMalformedModelOutput("I am not JSON")
	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, CodeMalformedModelOutput, domainErr.Code)
	assert.Equal(t, "I am not JSON", domainErr.Details["raw"])
}

func TestIsStageCode(t *testing.T) {
	assert.True(t, IsStageCode(NewDraftingFailed(nil), CodeDraftingFailed))
	assert.False(t, IsStageCode(NewDraftingFailed(nil), CodeAnalysisFailed))
	assert.False(t, IsStageCode(errors.New("plain"), CodeDraftingFailed))
}

func TestToDomainErrorWrapsUnknown(t *testing.T) {
	domainErr := ToDomainError(errors.New("mystery"))
	require.NotNil(t, domainErr)
	assert.Equal(t, "INTERNAL_ERROR", domainErr.Code)
	assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus)

	passthrough := ToDomainError(NewValidationError("bad", nil))
	assert.Equal(t, CodeValidationFailed, passthrough.Code)
}
