package config

import (
	"fmt"
	"strings"
)

// The key-path schema is closed: only paths registered here resolve or
// accept writes. Wire names match the persisted document exactly.

// KeyKind classifies a parsed key path.
type KeyKind int

const (
	// KindSetting is a settings.<field> key, cascading through every level.
	KindSetting KeyKind = iota
	// KindEvent is a random_events.<id>.<field> key, cascading through
	// every level.
	KindEvent
	// KindBot is a qq_bot.* key overridable per role block (voice,
	// bot_name, max_length); it cascades like a setting.
	KindBot
	// KindGemini is a gemini.* key overridable per role block (model,
	// system_prompt); it cascades like a setting.
	KindGemini
	// KindGlobal is a key that only exists at the document top level
	// (identity keys, paths, log.*, service.*, proxy.*).
	KindGlobal
)

// Key is a validated key path.
type Key struct {
	Path    string
	Kind    KeyKind
	Section string // first path segment
	Field   string // leaf field name
	EventID string // set for KindEvent
}

// RequiredKeys are identity keys that must hold a real value at startup.
var RequiredKeys = []string{"qq_bot.qq_no", "qq_bot.admin_qq", "gemini.api_keys"}

// ParseKey validates path against the schema.
func ParseKey(path string) (Key, error) {
	parts := strings.Split(path, ".")
	if len(parts) < 2 || parts[0] == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
	}
	switch parts[0] {
	case "settings":
		if len(parts) != 2 {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
		}
		if _, ok := settingFields[parts[1]]; !ok {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
		}
		return Key{Path: path, Kind: KindSetting, Section: "settings", Field: parts[1]}, nil
	case "random_events":
		if len(parts) != 3 || parts[1] == "" {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
		}
		if _, ok := eventFields[parts[2]]; !ok {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
		}
		return Key{Path: path, Kind: KindEvent, Section: "random_events", EventID: parts[1], Field: parts[2]}, nil
	case "qq_bot", "gemini", "log", "service", "proxy":
		if len(parts) != 2 {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
		}
		if parts[0] == "qq_bot" {
			if _, ok := botOverrideFields[parts[1]]; ok {
				return Key{Path: path, Kind: KindBot, Section: "qq_bot", Field: parts[1]}, nil
			}
		}
		if parts[0] == "gemini" {
			if _, ok := geminiOverrideFields[parts[1]]; ok {
				return Key{Path: path, Kind: KindGemini, Section: "gemini", Field: parts[1]}, nil
			}
		}
		section := globalSections[parts[0]]
		if section == nil {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
		}
		if _, ok := section[parts[1]]; !ok {
			return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
		}
		return Key{Path: path, Kind: KindGlobal, Section: parts[0], Field: parts[1]}, nil
	}
	return Key{}, fmt.Errorf("%w: %q", ErrUnknownKey, path)
}

// GateFor returns the top-level settings field acting as a global veto for
// path. The enable_* switches gate themselves; event enable flags are gated
// by their matching global switch.
func GateFor(path string) (string, bool) {
	gate, ok := globalGates[path]
	return gate, ok
}

var globalGates = map[string]string{
	"settings.enable_ai_chat":       "enable_ai_chat",
	"settings.enable_chat_commands": "enable_chat_commands",
	"settings.enable_random_events": "enable_random_events",
	"settings.enable_repeat_event":  "enable_repeat_event",
	"settings.enable_history_edit":  "enable_history_edit",
	"random_events.repeat.enabled":  "enable_repeat_event",
}

// settingField reads and writes one Settings field. get reports false when
// the field is unset at this level.
type settingField struct {
	get func(*Settings) (any, bool)
	set func(*Settings, any) error
}

var settingFields = map[string]settingField{
	"enable_personality_retrain": boolSetting(
		func(s *Settings) **bool { return &s.EnablePersonalityRetrain }),
	"enable_history_edit": boolSetting(
		func(s *Settings) **bool { return &s.EnableHistoryEdit }),
	"enable_ai_chat": boolSetting(
		func(s *Settings) **bool { return &s.EnableAIChat }),
	"enable_chat_commands": boolSetting(
		func(s *Settings) **bool { return &s.EnableChatCommands }),
	"enable_random_events": boolSetting(
		func(s *Settings) **bool { return &s.EnableRandomEvents }),
	"enable_repeat_event": boolSetting(
		func(s *Settings) **bool { return &s.EnableRepeatEvent }),
	"message_rate_limit": {
		get: func(s *Settings) (any, bool) {
			if s == nil || s.MessageRateLimit == nil {
				return nil, false
			}
			return *s.MessageRateLimit, true
		},
		set: func(s *Settings, v any) error {
			n, err := AsInt(v)
			if err != nil {
				return err
			}
			s.MessageRateLimit = &n
			return nil
		},
	},
}

func boolSetting(field func(*Settings) **bool) settingField {
	return settingField{
		get: func(s *Settings) (any, bool) {
			if s == nil || *field(s) == nil {
				return nil, false
			}
			return **field(s), true
		},
		set: func(s *Settings, v any) error {
			b, err := AsBool(v)
			if err != nil {
				return err
			}
			*field(s) = &b
			return nil
		},
	}
}

// eventField reads and writes one EventConfig field.
type eventField struct {
	get func(*EventConfig) (any, bool)
	set func(*EventConfig, any) error
}

var eventFields = map[string]eventField{
	"id": {
		get: func(e *EventConfig) (any, bool) { return e.ID, e != nil && e.ID != "" },
		set: func(e *EventConfig, v any) error { s, err := AsString(v); e.ID = s; return err },
	},
	"name": {
		get: func(e *EventConfig) (any, bool) { return e.Name, e != nil && e.Name != "" },
		set: func(e *EventConfig, v any) error { s, err := AsString(v); e.Name = s; return err },
	},
	"description": {
		get: func(e *EventConfig) (any, bool) { return e.Description, e != nil && e.Description != "" },
		set: func(e *EventConfig, v any) error { s, err := AsString(v); e.Description = s; return err },
	},
	"enabled": {
		get: func(e *EventConfig) (any, bool) {
			if e == nil || e.Enabled == nil {
				return nil, false
			}
			return *e.Enabled, true
		},
		set: func(e *EventConfig, v any) error {
			b, err := AsBool(v)
			if err != nil {
				return err
			}
			e.Enabled = &b
			return nil
		},
	},
	"probability": {
		get: func(e *EventConfig) (any, bool) {
			if e == nil || e.Probability == nil {
				return nil, false
			}
			return *e.Probability, true
		},
		set: func(e *EventConfig, v any) error {
			f, err := AsFloat(v)
			if err != nil {
				return err
			}
			e.Probability = &f
			return nil
		},
	},
	"min_interval": {
		get: func(e *EventConfig) (any, bool) {
			if e == nil || e.MinInterval == nil {
				return nil, false
			}
			return *e.MinInterval, true
		},
		set: func(e *EventConfig, v any) error {
			n, err := AsInt(v)
			if err != nil {
				return err
			}
			e.MinInterval = &n
			return nil
		},
	},
	"shared_min_interval": {
		get: func(e *EventConfig) (any, bool) {
			if e == nil || e.SharedMinInterval == nil {
				return nil, false
			}
			return *e.SharedMinInterval, true
		},
		set: func(e *EventConfig, v any) error {
			n, err := AsInt(v)
			if err != nil {
				return err
			}
			e.SharedMinInterval = &n
			return nil
		},
	},
}

// botOverrideField reads and writes one BotOverride field.
type botOverrideField struct {
	get func(*BotOverride) (any, bool)
	set func(*BotOverride, any) error
}

var botOverrideFields = map[string]botOverrideField{
	"voice": {
		get: func(b *BotOverride) (any, bool) {
			if b == nil || b.Voice == nil {
				return nil, false
			}
			return *b.Voice, true
		},
		set: func(b *BotOverride, v any) error {
			s, err := AsString(v)
			if err != nil {
				return err
			}
			b.Voice = &s
			return nil
		},
	},
	"bot_name": {
		get: func(b *BotOverride) (any, bool) {
			if b == nil || b.BotName == nil {
				return nil, false
			}
			return *b.BotName, true
		},
		set: func(b *BotOverride, v any) error {
			s, err := AsString(v)
			if err != nil {
				return err
			}
			b.BotName = &s
			return nil
		},
	},
	"max_length": {
		get: func(b *BotOverride) (any, bool) {
			if b == nil || b.MaxLength == nil {
				return nil, false
			}
			return *b.MaxLength, true
		},
		set: func(b *BotOverride, v any) error {
			n, err := AsInt(v)
			if err != nil {
				return err
			}
			b.MaxLength = &n
			return nil
		},
	},
}

// geminiOverrideField reads and writes one GeminiOverride field.
type geminiOverrideField struct {
	get func(*GeminiOverride) (any, bool)
	set func(*GeminiOverride, any) error
}

var geminiOverrideFields = map[string]geminiOverrideField{
	"model": {
		get: func(g *GeminiOverride) (any, bool) {
			if g == nil || g.Model == nil {
				return nil, false
			}
			return *g.Model, true
		},
		set: func(g *GeminiOverride, v any) error {
			s, err := AsString(v)
			if err != nil {
				return err
			}
			g.Model = &s
			return nil
		},
	},
	"system_prompt": {
		get: func(g *GeminiOverride) (any, bool) {
			if g == nil || g.SystemPrompt == nil {
				return nil, false
			}
			return *g.SystemPrompt, true
		},
		set: func(g *GeminiOverride, v any) error {
			s, err := AsString(v)
			if err != nil {
				return err
			}
			g.SystemPrompt = &s
			return nil
		},
	},
}

// globalField reads and writes one top-level document field.
type globalField struct {
	get func(*Document) any
	set func(*Document, any) error
}

var globalSections = map[string]map[string]globalField{
	"qq_bot": {
		"qq_no": {
			get: func(d *Document) any { return d.Bot.QQNo },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.QQNo = s; return err },
		},
		"admin_qq": {
			get: func(d *Document) any { return d.Bot.AdminQQ },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.AdminQQ = s; return err },
		},
		"auto_confirm": {
			get: func(d *Document) any { return d.Bot.AutoConfirm },
			set: func(d *Document, v any) error { b, err := AsBool(v); d.Bot.AutoConfirm = b; return err },
		},
		"cqhttp_url": {
			get: func(d *Document) any { return d.Bot.CQHTTPURL },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.CQHTTPURL = s; return err },
		},
		"image_path": {
			get: func(d *Document) any { return d.Bot.ImagePath },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.ImagePath = s; return err },
		},
		"voice_path": {
			get: func(d *Document) any { return d.Bot.VoicePath },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.VoicePath = s; return err },
		},
		"voice": {
			get: func(d *Document) any { return d.Bot.Voice },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.Voice = s; return err },
		},
		"max_length": {
			get: func(d *Document) any { return d.Bot.MaxLength },
			set: func(d *Document, v any) error { n, err := AsInt(v); d.Bot.MaxLength = n; return err },
		},
		"bot_name": {
			get: func(d *Document) any { return d.Bot.BotName },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.BotName = s; return err },
		},
		"group_keyword": {
			get: func(d *Document) any { return d.Bot.GroupKeyword },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Bot.GroupKeyword = s; return err },
		},
	},
	"gemini": {
		"api_keys": {
			get: func(d *Document) any { return append([]string(nil), d.Gemini.APIKeys...) },
			set: func(d *Document, v any) error {
				keys, err := AsStringSlice(v)
				if err != nil {
					return err
				}
				d.Gemini.APIKeys = keys
				return nil
			},
		},
		"model": {
			get: func(d *Document) any { return d.Gemini.Model },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Gemini.Model = s; return err },
		},
		"system_prompt": {
			get: func(d *Document) any { return d.Gemini.SystemPrompt },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Gemini.SystemPrompt = s; return err },
		},
	},
	"log": {
		"level": {
			get: func(d *Document) any { return d.Log.Level },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Log.Level = s; return err },
		},
		"file_path": {
			get: func(d *Document) any { return d.Log.FilePath },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Log.FilePath = s; return err },
		},
	},
	"service": {
		"host": {
			get: func(d *Document) any { return d.Service.Host },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Service.Host = s; return err },
		},
		"port": {
			get: func(d *Document) any { return d.Service.Port },
			set: func(d *Document, v any) error { n, err := AsInt(v); d.Service.Port = n; return err },
		},
		"use_reloader": {
			get: func(d *Document) any { return d.Service.UseReloader },
			set: func(d *Document, v any) error { b, err := AsBool(v); d.Service.UseReloader = b; return err },
		},
	},
	"proxy": {
		"https_proxy": {
			get: func(d *Document) any { return d.Proxy.HTTPSProxy },
			set: func(d *Document, v any) error { s, err := AsString(v); d.Proxy.HTTPSProxy = s; return err },
		},
	},
}

// SettingValue reads a settings field from one override level. ok is false
// when the field is unset at that level.
func SettingValue(s *Settings, field string) (any, bool) {
	f, known := settingFields[field]
	if !known || s == nil {
		return nil, false
	}
	return f.get(s)
}

// SetSettingValue writes a settings field on an override level.
func SetSettingValue(s *Settings, field string, v any) error {
	f, known := settingFields[field]
	if !known {
		return fmt.Errorf("%w: settings.%s", ErrUnknownKey, field)
	}
	return f.set(s, v)
}

// EventValue reads an event field from one override level.
func EventValue(e *EventConfig, field string) (any, bool) {
	f, known := eventFields[field]
	if !known || e == nil {
		return nil, false
	}
	return f.get(e)
}

// SetEventValue writes an event field on an override level.
func SetEventValue(e *EventConfig, field string, v any) error {
	f, known := eventFields[field]
	if !known {
		return fmt.Errorf("%w: random_events field %q", ErrUnknownKey, field)
	}
	return f.set(e, v)
}

// BotOverrideValue reads a bot override field from one override level.
func BotOverrideValue(b *BotOverride, field string) (any, bool) {
	f, known := botOverrideFields[field]
	if !known || b == nil {
		return nil, false
	}
	return f.get(b)
}

// SetBotOverrideValue writes a bot override field on an override level.
func SetBotOverrideValue(b *BotOverride, field string, v any) error {
	f, known := botOverrideFields[field]
	if !known {
		return fmt.Errorf("%w: qq_bot.%s", ErrUnknownKey, field)
	}
	return f.set(b, v)
}

// GeminiOverrideValue reads a model override field from one override level.
func GeminiOverrideValue(g *GeminiOverride, field string) (any, bool) {
	f, known := geminiOverrideFields[field]
	if !known || g == nil {
		return nil, false
	}
	return f.get(g)
}

// SetGeminiOverrideValue writes a model override field on an override level.
func SetGeminiOverrideValue(g *GeminiOverride, field string, v any) error {
	f, known := geminiOverrideFields[field]
	if !known {
		return fmt.Errorf("%w: gemini.%s", ErrUnknownKey, field)
	}
	return f.set(g, v)
}

// GlobalValue reads a top-level document field. For cascading qq_bot and
// gemini fields it reads the concrete top-level value.
func GlobalValue(d *Document, key Key) (any, bool) {
	section := globalSections[key.Section]
	if section == nil {
		return nil, false
	}
	f, known := section[key.Field]
	if !known {
		return nil, false
	}
	return f.get(d), true
}

// TopValue parses path and reads it at the document top level, ignoring
// every override layer.
func TopValue(d *Document, path string) (any, error) {
	key, err := ParseKey(path)
	if err != nil {
		return nil, err
	}
	switch key.Kind {
	case KindSetting:
		if v, ok := SettingValue(&d.Settings, key.Field); ok {
			return v, nil
		}
	case KindEvent:
		if v, ok := EventValue(d.RandomEvents[key.EventID], key.Field); ok {
			return v, nil
		}
	default:
		if v, ok := GlobalValue(d, key); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyMissing, path)
}

// SetGlobalValue writes a top-level document field.
func SetGlobalValue(d *Document, key Key, v any) error {
	section := globalSections[key.Section]
	if section == nil {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key.Path)
	}
	f, known := section[key.Field]
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key.Path)
	}
	return f.set(d, v)
}
