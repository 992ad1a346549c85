// Package resolve implements the layered lookup over the configuration
// document: six override levels from specific-user blocks down to the
// top-level document, with lazy copy-down of default role blocks and
// global veto switches.
package resolve

import (
	"fmt"

	"github.com/yuibot/yuibot/internal/config"
)

// Channel is the conversational scope a message arrived in.
type Channel string

const (
	ChannelGroup   Channel = "group"
	ChannelPrivate Channel = "private"
)

// Context identifies the caller a key is resolved for.
type Context struct {
	Channel Channel
	GroupID string // set for ChannelGroup
	UserID  string
	Block   config.RoleClass // role block class the caller falls under
}

// ScopeKey returns the rate-limit scope key for the context: one budget per
// group, one per private chat partner.
func (c Context) ScopeKey() string {
	if c.Channel == ChannelGroup {
		return "group:" + c.GroupID
	}
	return "private:" + c.UserID
}

// Level names the cascade level that supplied a resolved value.
type Level int

const (
	LevelNone           Level = iota
	LevelUserGroup            // group.<id>.__specific_user__.<uid>
	LevelUserPrivate          // private.__specific_user__.<uid>
	LevelGroupRole            // group.<id>.<role>
	LevelGroupSettings        // group.<id>.settings
	LevelPrivateDefault       // private.__default__.<role>
	LevelGroupDefault         // group.__default__.<role>
	LevelGlobal               // top-level document key
	LevelBuiltin              // compiled-in default
)

var levelNames = map[Level]string{
	LevelNone:           "none",
	LevelUserGroup:      "group specific user",
	LevelUserPrivate:    "private specific user",
	LevelGroupRole:      "group role block",
	LevelGroupSettings:  "group settings",
	LevelPrivateDefault: "private default",
	LevelGroupDefault:   "group default",
	LevelGlobal:         "global",
	LevelBuiltin:        "builtin",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Resolution is an effective value plus the level that supplied it.
type Resolution struct {
	Value any
	Level Level
}

// Bool coerces the resolved value.
func (r Resolution) Bool() (bool, error) { return config.AsBool(r.Value) }

// Int coerces the resolved value.
func (r Resolution) Int() (int, error) { return config.AsInt(r.Value) }

// Float coerces the resolved value.
func (r Resolution) Float() (float64, error) { return config.AsFloat(r.Value) }

// String coerces the resolved value.
func (r Resolution) String() (string, error) { return config.AsString(r.Value) }

// Resolver performs cascaded lookups against one shared store.
type Resolver struct {
	store *config.Store
}

// New returns a resolver over store.
func New(store *config.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the effective value for path in ctx. Precedence, most
// specific first: specific-user block in the current scope, the caller's
// role block in the current group (materialized from the default template
// on first touch), the group's flat settings, the scope default template,
// then the top-level document. Keys carrying a global veto switch resolve
// to false whenever the switch is off, regardless of lower levels.
func (r *Resolver) Resolve(path string, ctx Context) (Resolution, error) {
	key, err := config.ParseKey(path)
	if err != nil {
		return Resolution{}, err
	}

	if key.Kind == config.KindGlobal {
		var res Resolution
		r.store.View(func(doc *config.Document) {
			v, _ := config.GlobalValue(doc, key)
			res = Resolution{Value: v, Level: LevelGlobal}
		})
		return res, nil
	}

	if vetoed := r.vetoed(path); vetoed {
		return Resolution{Value: false, Level: LevelGlobal}, nil
	}

	if ctx.Channel == ChannelGroup && ctx.GroupID != "" && ctx.Block != "" {
		r.store.MaterializeGroupBlock(ctx.GroupID, ctx.Block)
	}

	var res Resolution
	found := false
	r.store.View(func(doc *config.Document) {
		res, found = lookupCascade(doc, key, ctx)
	})
	if found {
		return res, nil
	}

	if v, ok := lookupTop(config.DefaultDocument(), key); ok {
		return Resolution{Value: v, Level: LevelBuiltin}, nil
	}
	return Resolution{}, fmt.Errorf("%w: %q", config.ErrKeyMissing, path)
}

// vetoed reports whether path is force-disabled by its global switch.
func (r *Resolver) vetoed(path string) bool {
	gate, gated := config.GateFor(path)
	if !gated {
		return false
	}
	off := false
	r.store.View(func(doc *config.Document) {
		v, ok := config.SettingValue(&doc.Settings, gate)
		if !ok {
			return
		}
		if b, err := config.AsBool(v); err == nil && !b {
			off = true
		}
	})
	return off
}

// level pairs a cascade level with the block supplying values at it.
type level struct {
	level    Level
	settings *config.Settings
	events   map[string]*config.EventConfig
	bot      *config.BotOverride
	gemini   *config.GeminiOverride
	top      bool // this level reads the document top level
}

func blockLevel(l Level, b *config.RoleBlock) level {
	if b == nil {
		return level{level: l}
	}
	return level{level: l, settings: b.Settings, events: b.RandomEvents, bot: b.Bot, gemini: b.Gemini}
}

// cascade returns the levels for ctx, most specific first, ending at the
// top-level document.
func cascade(doc *config.Document, ctx Context) []level {
	var levels []level
	if ctx.Channel == ChannelGroup {
		node := doc.Groups[ctx.GroupID]
		if node != nil {
			levels = append(levels, blockLevel(LevelUserGroup, node.SpecificUsers[ctx.UserID]))
			levels = append(levels, blockLevel(LevelGroupRole, node.Block(ctx.Block)))
			levels = append(levels, level{level: LevelGroupSettings, settings: node.Settings})
		}
		levels = append(levels, blockLevel(LevelGroupDefault, doc.Groups[config.DefaultScopeKey].Block(ctx.Block)))
	} else {
		levels = append(levels, blockLevel(LevelUserPrivate, ctx.privateSpecific(doc)))
		levels = append(levels, blockLevel(LevelPrivateDefault, doc.Private.Default.Block(ctx.Block)))
	}
	levels = append(levels, level{
		level:    LevelGlobal,
		settings: &doc.Settings,
		events:   doc.RandomEvents,
		top:      true,
	})
	return levels
}

func (c Context) privateSpecific(doc *config.Document) *config.RoleBlock {
	if doc.Private.SpecificUsers == nil {
		return nil
	}
	return doc.Private.SpecificUsers[c.UserID]
}

// lookupCascade walks the levels for ctx and returns the first value. Each
// field cascades independently, so a partially overridden block inherits
// sibling fields from less specific levels.
func lookupCascade(doc *config.Document, key config.Key, ctx Context) (Resolution, bool) {
	for _, lvl := range cascade(doc, ctx) {
		switch key.Kind {
		case config.KindSetting:
			if v, ok := config.SettingValue(lvl.settings, key.Field); ok {
				return Resolution{Value: v, Level: lvl.level}, true
			}
		case config.KindEvent:
			if lvl.events == nil {
				continue
			}
			if v, ok := config.EventValue(lvl.events[key.EventID], key.Field); ok {
				return Resolution{Value: v, Level: lvl.level}, true
			}
		case config.KindBot:
			if lvl.top {
				if v, ok := config.GlobalValue(doc, key); ok {
					return Resolution{Value: v, Level: lvl.level}, true
				}
				continue
			}
			if v, ok := config.BotOverrideValue(lvl.bot, key.Field); ok {
				return Resolution{Value: v, Level: lvl.level}, true
			}
		case config.KindGemini:
			if lvl.top {
				if v, ok := config.GlobalValue(doc, key); ok {
					return Resolution{Value: v, Level: lvl.level}, true
				}
				continue
			}
			if v, ok := config.GeminiOverrideValue(lvl.gemini, key.Field); ok {
				return Resolution{Value: v, Level: lvl.level}, true
			}
		}
	}
	return Resolution{}, false
}

// lookupTop reads key at the top level of doc only.
func lookupTop(doc *config.Document, key config.Key) (any, bool) {
	switch key.Kind {
	case config.KindSetting:
		return config.SettingValue(&doc.Settings, key.Field)
	case config.KindEvent:
		return config.EventValue(doc.RandomEvents[key.EventID], key.Field)
	case config.KindBot, config.KindGemini, config.KindGlobal:
		return config.GlobalValue(doc, key)
	}
	return nil, false
}
