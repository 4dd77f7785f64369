package resilience

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, reset time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker("test-source", BreakerConfig{
		FailureThreshold: threshold,
		ResetTimeout:     reset,
	})
	now := time.Now()
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.Record(WithCode(CodeNetworkError, eris.New("down")))
		require.NoError(t, b.Allow())
	}

	b.Record(WithCode(CodeNetworkError, eris.New("down")))
	assert.Equal(t, BreakerOpen, b.State())
	assert.Error(t, b.Allow())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	b.Record(WithCode(CodeNetworkError, eris.New("down")))
	b.Record(WithCode(CodeNetworkError, eris.New("down")))
	b.Record(nil)
	b.Record(WithCode(CodeNetworkError, eris.New("down")))
	b.Record(WithCode(CodeNetworkError, eris.New("down")))

	assert.Equal(t, BreakerClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreakerIgnoresInputErrors(t *testing.T) {
	b, _ := testBreaker(2, time.Minute)

	// NON_RECOVERABLE and NO_DATA reflect the input, not source health.
	for i := 0; i < 10; i++ {
		b.Record(WithCode(CodeNonRecoverable, eris.New("bad number")))
		b.Record(WithCode(CodeNoData, eris.New("unknown number")))
	}

	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenAfterReset(t *testing.T) {
	b, now := testBreaker(1, time.Minute)

	b.Record(WithCode(CodeNetworkError, eris.New("down")))
	require.Equal(t, BreakerOpen, b.State())
	require.Error(t, b.Allow())

	*now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())
}

func TestBreakerHalfOpenProbeOutcomes(t *testing.T) {
	t.Run("probe success closes", func(t *testing.T) {
		b, now := testBreaker(1, time.Minute)
		b.Record(WithCode(CodeNetworkError, eris.New("down")))
		*now = now.Add(2 * time.Minute)
		require.NoError(t, b.Allow())

		b.Record(nil)
		assert.Equal(t, BreakerClosed, b.State())
	})

	t.Run("probe failure reopens", func(t *testing.T) {
		b, now := testBreaker(1, time.Minute)
		b.Record(WithCode(CodeNetworkError, eris.New("down")))
		*now = now.Add(2 * time.Minute)
		require.NoError(t, b.Allow())

		b.Record(WithCode(CodeNetworkError, eris.New("still down")))
		assert.Equal(t, BreakerOpen, b.State())
		assert.Error(t, b.Allow())
	})
}

func TestBreakerRejectionIsCoded(t *testing.T) {
	b, _ := testBreaker(1, time.Minute)
	b.Record(WithCode(CodeNetworkError, eris.New("down")))

	err := b.Allow()
	require.Error(t, err)
	assert.Equal(t, CodeSystemFailure, CodeOf(err))
}
