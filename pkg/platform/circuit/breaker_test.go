package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_InitialState(t *testing.T) {
	b := New("vies-registry")
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "vies-registry", b.Name())
}

// step is one registry call outcome fed to the breaker: 'F' for a transport
// failure, 'S' for a reply.
type step struct {
	outcome  byte
	wantOpen bool
}

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		failAt  int
		closeAt int
		steps   []step
	}{
		{
			name:   "opens on the third consecutive failure",
			failAt: 3, closeAt: 1,
			steps: []step{{'F', false}, {'F', false}, {'F', true}},
		},
		{
			name:   "a reply resets the failure streak",
			failAt: 3, closeAt: 1,
			steps: []step{{'F', false}, {'F', false}, {'S', false}, {'F', false}, {'F', false}, {'F', true}},
		},
		{
			name:   "closes after enough replies while open",
			failAt: 1, closeAt: 2,
			steps: []step{{'F', true}, {'S', true}, {'S', false}},
		},
		{
			name:   "a failure while open restarts the reply count",
			failAt: 1, closeAt: 3,
			steps: []step{{'F', true}, {'S', true}, {'S', true}, {'F', true}, {'S', true}, {'S', true}, {'S', false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("vies-registry", WithFailureThreshold(tt.failAt), WithSuccessThreshold(tt.closeAt))
			for i, s := range tt.steps {
				if s.outcome == 'F' {
					b.RecordFailure()
				} else {
					b.RecordSuccess()
				}
				assert.Equal(t, s.wantOpen, b.IsOpen(), "after step %d (%c)", i, s.outcome)
			}
		})
	}
}

func TestBreaker_ReportsStateChangesOnce(t *testing.T) {
	b := New("vies-registry", WithFailureThreshold(1), WithSuccessThreshold(1))

	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback, "open circuit keeps answering from the busy override")
	assert.False(t, change.Opened, "already open")

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("vies-registry", WithFailureThreshold(1))
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_DefaultThresholds(t *testing.T) {
	b := New("vies")

	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen())

	_, change := b.RecordFailure()
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())

	for range 2 {
		b.RecordSuccess()
	}
	assert.True(t, b.IsOpen())
	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.Equal(t, "closed", b.State().String())
}

func TestBreaker_AllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := New("vies-registry", WithFailureThreshold(1), WithSuccessThreshold(1), WithCooldown(time.Minute))
	b.now = func() time.Time { return now }

	assert.True(t, b.Allow(), "closed circuit allows")
	b.RecordFailure()
	assert.False(t, b.Allow(), "freshly opened circuit rejects")

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "one probe after cooldown")
	assert.False(t, b.Allow(), "second probe waits for the next cooldown")

	_, change := b.RecordSuccess()
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}
