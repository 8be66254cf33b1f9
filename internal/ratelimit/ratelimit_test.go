package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// clock is an adjustable time source for the limiter under test.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(window time.Duration, quotas map[Category]int) (*Limiter, *clock) {
	c := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(window, quotas)
	l.now = c.now
	return l, c
}

func TestAllow_EnforcesQuota(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, map[Category]int{CategoryJobCreate: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("agent-1", CategoryJobCreate), "request %d should pass", i+1)
	}
	assert.False(t, l.Allow("agent-1", CategoryJobCreate))
}

func TestAllow_UnlimitedCategory(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, map[Category]int{CategoryJobCreate: 1})

	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("agent-1", CategoryJobRead))
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Minute, map[Category]int{
		CategoryJobCreate: 1,
		CategoryJobAction: 1,
	})

	assert.True(t, l.Allow("agent-1", CategoryJobCreate))
	assert.False(t, l.Allow("agent-1", CategoryJobCreate))

	// A different identity and a different category are untouched.
	assert.True(t, l.Allow("agent-2", CategoryJobCreate))
	assert.True(t, l.Allow("agent-1", CategoryJobAction))
}

func TestAllow_DeniedRequestNotRecorded(t *testing.T) {
	l, c := newTestLimiter(time.Minute, map[Category]int{CategoryMessaging: 2})

	assert.True(t, l.Allow("worker-1", CategoryMessaging))
	assert.True(t, l.Allow("worker-1", CategoryMessaging))

	// Hammering while denied must not extend the penalty.
	for i := 0; i < 10; i++ {
		assert.False(t, l.Allow("worker-1", CategoryMessaging))
		c.advance(time.Second)
	}

	// Once the two recorded stamps slide out, quota is back.
	c.advance(time.Minute)
	assert.True(t, l.Allow("worker-1", CategoryMessaging))
}

func TestAllow_WindowSlides(t *testing.T) {
	l, c := newTestLimiter(time.Minute, map[Category]int{CategoryJobCreate: 2})

	assert.True(t, l.Allow("agent-1", CategoryJobCreate))
	c.advance(40 * time.Second)
	assert.True(t, l.Allow("agent-1", CategoryJobCreate))
	assert.False(t, l.Allow("agent-1", CategoryJobCreate))

	// 30s later the first stamp is out of the window, the second is not.
	c.advance(30 * time.Second)
	assert.True(t, l.Allow("agent-1", CategoryJobCreate))
	assert.False(t, l.Allow("agent-1", CategoryJobCreate))
}

func TestPrune_DropsDrainedKeys(t *testing.T) {
	l, c := newTestLimiter(time.Minute, map[Category]int{CategoryJobCreate: 5})

	l.Allow("agent-1", CategoryJobCreate)
	c.advance(30 * time.Second)
	l.Allow("agent-2", CategoryJobCreate)

	c.advance(45 * time.Second)
	l.Prune()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "agent-1|job_create")
	assert.Contains(t, l.entries, "agent-2|job_create")
}
