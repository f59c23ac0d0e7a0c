package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwall/screentime/internal/domain"
)

type failingWindowSource struct {
	err error
}

func (s *failingWindowSource) VisibleWindows(context.Context) ([]domain.WindowInfo, error) {
	return nil, s.err
}

// TestListVisibleWindows_WrapsSourceError verifies a window source
// failure surfaces as a ProbeError carrying the original cause.
func TestListVisibleWindows_WrapsSourceError(t *testing.T) {
	cause := errors.New("window server unavailable")
	p := NewSystemProbe(&failingWindowSource{err: cause})

	_, err := p.ListVisibleWindows(context.Background())
	require.Error(t, err)

	var perr *domain.ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "list windows", perr.Op)
	assert.ErrorIs(t, err, cause)
}

func TestListVisibleWindows_NilSource(t *testing.T) {
	p := NewSystemProbe(nil)

	windows, err := p.ListVisibleWindows(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, windows)
}
