// Package ratelimit implements the sliding-window counter collaborator.
// Counters are keyed by (caller identity, operation category); each
// category carries its own quota per window. State is process-local
// and is discarded for a key as soon as its window drains.
package ratelimit

import (
	"sync"
	"time"
)

// Category names an operation class with its own quota.
type Category string

const (
	CategoryJobCreate   Category = "job_create"
	CategoryJobRead     Category = "job_read"
	CategoryJobAction   Category = "job_action"
	CategoryMessaging   Category = "messaging"
	CategoryDeliverable Category = "deliverable"
)

// Limiter is a mutex-guarded sliding window over request timestamps.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	quotas  map[Category]int
	entries map[string][]time.Time
	now     func() time.Time
}

// New creates a limiter. Quotas map category names to the maximum
// number of requests per window; a category without a quota is
// unlimited.
func New(window time.Duration, quotas map[Category]int) *Limiter {
	return &Limiter{
		window:  window,
		quotas:  quotas,
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one request and reports whether the caller is still
// within quota. A denied request is not recorded, so a caller cannot
// extend their own penalty by retrying.
func (l *Limiter) Allow(identity string, category Category) bool {
	quota, limited := l.quotas[category]
	if !limited {
		return true
	}

	k := identity + "|" + string(category)
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps := l.entries[k]

	// Drop entries that slid out of the window.
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= quota {
		if len(kept) == 0 {
			delete(l.entries, k)
		} else {
			l.entries[k] = kept
		}
		return false
	}

	l.entries[k] = append(kept, now)
	return true
}

// Prune drops every key whose window has fully drained. Called from
// the API service on a timer so idle identities do not accumulate.
func (l *Limiter) Prune() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, stamps := range l.entries {
		live := false
		for _, ts := range stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.entries, k)
		}
	}
}
