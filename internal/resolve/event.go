package resolve

import (
	"errors"
	"fmt"

	"github.com/yuibot/yuibot/internal/config"
)

// Compiled-in fallbacks for event fields left unset at every level.
const (
	defaultEventEnabled     = false
	defaultEventProbability = 0.0
	defaultMinInterval      = -1
	defaultSharedInterval   = 0
)

// EffectiveEvent is a fully merged random event config for one context.
type EffectiveEvent struct {
	ID                string
	Enabled           bool
	Probability       float64
	MinInterval       int
	SharedMinInterval int
}

// ResolveEvent merges the event's fields across the cascade for ctx. Each
// field resolves independently, so a group that only overrides probability
// still inherits intervals from the default template. The enabled flag is
// subject to the event's global veto switch.
func (r *Resolver) ResolveEvent(eventID string, ctx Context) (EffectiveEvent, error) {
	if !r.eventDefined(eventID, ctx) {
		return EffectiveEvent{}, fmt.Errorf("%w: random_events.%s", config.ErrKeyMissing, eventID)
	}

	out := EffectiveEvent{
		ID:                eventID,
		Enabled:           defaultEventEnabled,
		Probability:       defaultEventProbability,
		MinInterval:       defaultMinInterval,
		SharedMinInterval: defaultSharedInterval,
	}
	prefix := "random_events." + eventID + "."

	if res, err := r.Resolve(prefix+"enabled", ctx); err == nil {
		if b, err := res.Bool(); err == nil {
			out.Enabled = b
		}
	} else if !errors.Is(err, config.ErrKeyMissing) {
		return EffectiveEvent{}, err
	}
	if res, err := r.Resolve(prefix+"probability", ctx); err == nil {
		if f, err := res.Float(); err == nil {
			out.Probability = f
		}
	} else if !errors.Is(err, config.ErrKeyMissing) {
		return EffectiveEvent{}, err
	}
	if res, err := r.Resolve(prefix+"min_interval", ctx); err == nil {
		if n, err := res.Int(); err == nil {
			out.MinInterval = n
		}
	} else if !errors.Is(err, config.ErrKeyMissing) {
		return EffectiveEvent{}, err
	}
	if res, err := r.Resolve(prefix+"shared_min_interval", ctx); err == nil {
		if n, err := res.Int(); err == nil {
			out.SharedMinInterval = n
		}
	} else if !errors.Is(err, config.ErrKeyMissing) {
		return EffectiveEvent{}, err
	}
	return out, nil
}

// eventDefined reports whether any cascade level (or the compiled-in
// defaults) carries a block for eventID.
func (r *Resolver) eventDefined(eventID string, ctx Context) bool {
	defined := false
	r.store.View(func(doc *config.Document) {
		for _, lvl := range cascade(doc, ctx) {
			if lvl.events != nil && lvl.events[eventID] != nil {
				defined = true
				return
			}
		}
	})
	if defined {
		return true
	}
	return config.DefaultDocument().RandomEvents[eventID] != nil
}
