package presence

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verify-cli/internal/heuristics"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/source"
)

type stubPresence struct {
	resp  *source.PresenceResponse
	err   error
	calls int
}

func (s *stubPresence) Name() string { return source.SourceWachat }

func (s *stubPresence) Lookup(context.Context, string, model.Credentials) (*source.PresenceResponse, error) {
	s.calls++
	return s.resp, s.err
}

func fastRetry() resilience.Config {
	return resilience.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
}

func newChecker(src source.Presence) *Checker {
	return New(src, model.CredentialPair{Primary: model.Credentials{Key: "k"}}, heuristics.Default(), fastRetry())
}

func mobileMeta() *model.MetadataRecord {
	return &model.MetadataRecord{Valid: true, LineType: model.LineTypeMobile}
}

func TestCheckLandlineNeverCallsSource(t *testing.T) {
	src := &stubPresence{resp: &source.PresenceResponse{Registered: true}}
	c := newChecker(src)

	rec, _, err := c.Check(context.Background(), "+4930901820", "DE",
		&model.MetadataRecord{Valid: true, LineType: model.LineTypeLandline})

	require.NoError(t, err)
	assert.False(t, rec.Exists)
	assert.Equal(t, 0, src.calls)
}

func TestCheckMapsSourceResponse(t *testing.T) {
	src := &stubPresence{resp: &source.PresenceResponse{
		Registered:   true,
		Verified:     true,
		ProfileName:  "Acme Support",
		LastSeenHint: "recently",
	}}
	c := newChecker(src)

	rec, rc, err := c.Check(context.Background(), "+4915123456789", "DE", mobileMeta())

	require.NoError(t, err)
	assert.Equal(t, 1, rc.Attempts)
	assert.True(t, rec.Exists)
	assert.True(t, rec.Verified)
	assert.False(t, rec.Estimated)
	assert.Equal(t, "Acme Support", rec.ProfileName)
}

func TestCheckDegradesToAdoptionPrior(t *testing.T) {
	t.Run("high adoption country assumes presence", func(t *testing.T) {
		src := &stubPresence{err: resilience.WithCode(resilience.CodeNonRecoverable, eris.New("source broken"))}
		c := newChecker(src)

		rec, _, err := c.Check(context.Background(), "+4915123456789", "DE", mobileMeta())

		require.NoError(t, err)
		assert.True(t, rec.Estimated)
		assert.True(t, rec.Exists) // DE adoption is above the estimate threshold
	})

	t.Run("low adoption country assumes absence", func(t *testing.T) {
		src := &stubPresence{err: resilience.WithCode(resilience.CodeNonRecoverable, eris.New("source broken"))}
		c := newChecker(src)

		rec, _, err := c.Check(context.Background(), "+14155550134", "US", mobileMeta())

		require.NoError(t, err)
		assert.True(t, rec.Estimated)
		assert.False(t, rec.Exists)
	})

	t.Run("invalid number never assumed present", func(t *testing.T) {
		src := &stubPresence{err: resilience.WithCode(resilience.CodeNonRecoverable, eris.New("source broken"))}
		c := newChecker(src)

		meta := &model.MetadataRecord{Valid: false, LineType: model.LineTypeMobile}
		rec, _, err := c.Check(context.Background(), "+4915123456789", "DE", meta)

		require.NoError(t, err)
		assert.False(t, rec.Exists)
	})
}

func TestCheckRetriesTransientFailures(t *testing.T) {
	src := &stubPresence{err: resilience.WithCode(resilience.CodeNetworkError, eris.New("down"))}
	c := newChecker(src)

	rec, rc, err := c.Check(context.Background(), "+4915123456789", "DE", mobileMeta())

	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 3, rc.Attempts)
	assert.True(t, rec.Estimated)
}

func TestCheckCancellationPropagates(t *testing.T) {
	src := &stubPresence{err: resilience.WithCode(resilience.CodeNetworkError, eris.New("down"))}
	c := newChecker(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Check(ctx, "+4915123456789", "DE", mobileMeta())
	require.Error(t, err)
}

func TestBusinessScoreSignals(t *testing.T) {
	tables := heuristics.Default()

	t.Run("toll-free plus carrier flag crosses threshold", func(t *testing.T) {
		score, indicators := businessScore("US", "8005550199", mobileMeta(), true, tables)
		assert.GreaterOrEqual(t, score, businessThreshold)
		assert.Contains(t, indicators, "toll-free prefix")
		assert.Contains(t, indicators, "carrier business flag")
	})

	t.Run("plain mobile number scores low", func(t *testing.T) {
		score, _ := businessScore("US", "4155550134", mobileMeta(), false, tables)
		assert.Less(t, score, businessThreshold)
	})

	t.Run("business keyword in carrier name", func(t *testing.T) {
		meta := &model.MetadataRecord{Valid: true, LineType: model.LineTypeVoIP, Carrier: "Acme Communications LLC"}
		score, indicators := businessScore("US", "4155550134", meta, false, tables)
		assert.Equal(t, 35, score) // voip + keyword
		assert.Contains(t, indicators, "business keyword in carrier name")
	})
}

func TestHasDigitRepetition(t *testing.T) {
	assert.True(t, hasDigitRepetition("4155550000"))
	assert.False(t, hasDigitRepetition("4155550134"))
	assert.False(t, hasDigitRepetition(""))
}

func TestCheckMarksBusinessOnRecord(t *testing.T) {
	src := &stubPresence{resp: &source.PresenceResponse{Registered: true, BusinessHint: true}}
	c := newChecker(src)

	// US toll-free: 30 (toll-free) + 25 (carrier flag) = 55.
	rec, _, err := c.Check(context.Background(), "+18005550199", "US", mobileMeta())

	require.NoError(t, err)
	assert.True(t, rec.IsLikelyBusiness)
	assert.InDelta(t, 0.55, rec.BusinessConfidence, 0.001)
}
