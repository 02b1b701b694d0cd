package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotTrainedMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("predict: %w", NotTrained())

	assert.True(t, stderrors.Is(err, ErrNotTrained))
	assert.False(t, stderrors.Is(err, ErrNoOwnershipSource))
	assert.True(t, IsType(err, ErrorTypePredictionInput))
}

func TestNoOwnershipSourceIsFatal(t *testing.T) {
	err := NoOwnershipSource("CODEOWNERS")

	assert.True(t, IsFatal(err))
	assert.True(t, stderrors.Is(err, ErrNoOwnershipSource))
	assert.Equal(t, ErrorTypeConfig, GetType(err))
	assert.Equal(t, "CODEOWNERS", err.Context["source"])
}

func TestUpstreamErrorCarriesPage(t *testing.T) {
	cause := stderrors.New("502 bad gateway")
	err := UpstreamError(cause, 4, "list pull requests")

	require.NotNil(t, err)
	assert.Equal(t, 4, err.Context["page"])
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, SeverityHigh, GetSeverity(err))
	assert.False(t, IsFatal(err))
	assert.Contains(t, err.DetailedString(), "UPSTREAM")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypePersistence, SeverityCritical, "noop"))
	assert.Nil(t, UpstreamError(nil, 1, "noop"))
}

func TestInsufficientDataIsRecoverable(t *testing.T) {
	err := InsufficientData("alice,bob", 19, 5, 14)

	assert.Equal(t, SeverityLow, err.Severity)
	assert.False(t, IsFatal(err))
	assert.Contains(t, err.Error(), "total=19")
}

func TestGetTypeForeignError(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, GetType(stderrors.New("plain")))
	assert.Equal(t, SeverityMedium, GetSeverity(stderrors.New("plain")))
	assert.Equal(t, SeverityLow, GetSeverity(nil))
}
