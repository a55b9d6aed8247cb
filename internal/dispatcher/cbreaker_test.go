package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMicroBreaker_Lifecycle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewMicroBreaker(2, 10*time.Second)
	b.now = func() time.Time { return now }

	assert.True(t, b.TryAcquire())
	b.OnFailure()
	assert.Equal(t, Closed, b.State())

	b.OnFailure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Ready())
	assert.False(t, b.TryAcquire())

	now = now.Add(11 * time.Second)
	assert.True(t, b.Ready())
	assert.True(t, b.TryAcquire())
	assert.Equal(t, HalfOpen, b.State())
	assert.False(t, b.TryAcquire(), "only one probe in flight")

	b.OnFailure()
	assert.Equal(t, Open, b.State())

	now = now.Add(11 * time.Second)
	assert.True(t, b.TryAcquire())
	b.OnSuccess()
	assert.Equal(t, Closed, b.State())
	assert.True(t, b.TryAcquire())
}

func TestMicroBreaker_SuccessResetsCount(t *testing.T) {
	b := NewMicroBreaker(2, time.Minute)

	b.OnFailure()
	b.OnSuccess()
	b.OnFailure()

	assert.Equal(t, Closed, b.State())
}
