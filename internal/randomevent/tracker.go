// Package randomevent decides whether a probabilistic event fires for a
// message, gated by per-user and group-shared cooldowns. The clock and the
// randomness source are injected so triggering is a pure, testable function
// of its inputs.
package randomevent

import (
	"math/rand"
	"sync"
	"time"

	"github.com/yuibot/yuibot/internal/resolve"
)

type cooldownKey struct {
	eventID string
	ownerID string // user id for personal stamps, group id for shared ones
}

// Tracker records last-trigger timestamps per event. Check-then-stamp is
// atomic under one mutex, so two near-simultaneous messages cannot both
// pass a cooldown meant to admit one.
type Tracker struct {
	mu           sync.Mutex
	lastPersonal map[cooldownKey]time.Time
	lastShared   map[cooldownKey]time.Time
	now          func() time.Time
	draw         func() float64
}

// New returns a tracker using the wall clock and math/rand.
func New() *Tracker {
	return NewWithSource(time.Now, rand.Float64)
}

// NewWithSource returns a tracker with injected clock and randomness.
func NewWithSource(now func() time.Time, draw func() float64) *Tracker {
	return &Tracker{
		lastPersonal: make(map[cooldownKey]time.Time),
		lastShared:   make(map[cooldownKey]time.Time),
		now:          now,
		draw:         draw,
	}
}

// TryTrigger decides whether eventID fires for ctx.
//
// With personalIntervalSec >= 0 the user's own cooldown gates the event;
// while it has not elapsed no randomness is drawn. With
// personalIntervalSec == -1 in a group, sharedIntervalSec > 0 gates the
// whole group instead. In private scope with personalIntervalSec == -1
// there is no gate at all. Past the gate, the event fires iff a uniform
// draw from [0,1) lands below probability, and firing stamps whichever
// cooldown was evaluated.
func (t *Tracker) TryTrigger(eventID string, ctx resolve.Context, probability float64, personalIntervalSec, sharedIntervalSec int) bool {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	personalKey := cooldownKey{eventID: eventID, ownerID: ctx.UserID}
	sharedKey := cooldownKey{eventID: eventID, ownerID: ctx.GroupID}

	personalGated := personalIntervalSec >= 0
	sharedGated := !personalGated && ctx.Channel == resolve.ChannelGroup && sharedIntervalSec > 0

	if personalGated {
		if last, ok := t.lastPersonal[personalKey]; ok {
			if now.Sub(last) < time.Duration(personalIntervalSec)*time.Second {
				return false
			}
		}
	} else if sharedGated {
		if last, ok := t.lastShared[sharedKey]; ok {
			if now.Sub(last) < time.Duration(sharedIntervalSec)*time.Second {
				return false
			}
		}
	}

	if t.draw() >= probability {
		return false
	}

	if personalGated {
		t.lastPersonal[personalKey] = now
	} else if sharedGated {
		t.lastShared[sharedKey] = now
	}
	return true
}

// LastPersonal returns the last personal trigger stamp, if any.
func (t *Tracker) LastPersonal(eventID, userID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastPersonal[cooldownKey{eventID: eventID, ownerID: userID}]
	return ts, ok
}

// LastShared returns the last shared trigger stamp for a group, if any.
func (t *Tracker) LastShared(eventID, groupID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.lastShared[cooldownKey{eventID: eventID, ownerID: groupID}]
	return ts, ok
}
