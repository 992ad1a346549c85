package gateway

import (
	"fmt"
	"log/slog"

	"github.com/yuibot/yuibot/internal/config"
	"github.com/yuibot/yuibot/internal/permission"
)

// TargetScope names the document location a SetConfig call writes to.
type TargetScope string

const (
	// TargetGlobal writes the top-level document.
	TargetGlobal TargetScope = "global"
	// TargetGroupDefault writes group.__default__.<class>.
	TargetGroupDefault TargetScope = "group_default"
	// TargetGroupRole writes group.<id>.<class>.
	TargetGroupRole TargetScope = "group_role"
	// TargetGroupSettings writes the flat group.<id>.settings block.
	TargetGroupSettings TargetScope = "group_settings"
	// TargetUserGroup writes group.<id>.__specific_user__.<uid>.
	TargetUserGroup TargetScope = "user_group"
	// TargetUserPrivate writes private.__specific_user__.<uid>.
	TargetUserPrivate TargetScope = "user_private"
	// TargetPrivateDefault writes private.__default__.<class>.
	TargetPrivateDefault TargetScope = "private_default"
)

// SetTarget addresses one override location.
type SetTarget struct {
	Scope   TargetScope
	GroupID string
	UserID  string
	Class   config.RoleClass
}

func (t SetTarget) String() string {
	switch t.Scope {
	case TargetGlobal:
		return "global"
	case TargetGroupDefault:
		return fmt.Sprintf("group.%s.%s", config.DefaultScopeKey, t.Class)
	case TargetGroupRole:
		return fmt.Sprintf("group.%s.%s", t.GroupID, t.Class)
	case TargetGroupSettings:
		return fmt.Sprintf("group.%s.settings", t.GroupID)
	case TargetUserGroup:
		return fmt.Sprintf("group.%s.__specific_user__.%s", t.GroupID, t.UserID)
	case TargetUserPrivate:
		return fmt.Sprintf("private.__specific_user__.%s", t.UserID)
	case TargetPrivateDefault:
		return fmt.Sprintf("private.%s.%s", config.DefaultScopeKey, t.Class)
	}
	return string(t.Scope)
}

// groupScoped reports whether the target sits inside one concrete group, so
// a manager of that group may write to it.
func (t SetTarget) groupScoped() bool {
	switch t.Scope {
	case TargetGroupRole, TargetGroupSettings, TargetUserGroup:
		return true
	}
	return false
}

func (t SetTarget) validate() error {
	switch t.Scope {
	case TargetGlobal:
		return nil
	case TargetGroupDefault, TargetPrivateDefault:
		if t.Class == "" {
			return fmt.Errorf("set target %q: role class required", t.Scope)
		}
	case TargetGroupRole:
		if t.GroupID == "" || t.GroupID == config.DefaultScopeKey {
			return fmt.Errorf("set target %q: group id required", t.Scope)
		}
		if t.Class == "" {
			return fmt.Errorf("set target %q: role class required", t.Scope)
		}
	case TargetGroupSettings:
		if t.GroupID == "" || t.GroupID == config.DefaultScopeKey {
			return fmt.Errorf("set target %q: group id required", t.Scope)
		}
	case TargetUserGroup:
		if t.GroupID == "" || t.UserID == "" {
			return fmt.Errorf("set target %q: group id and user id required", t.Scope)
		}
	case TargetUserPrivate:
		if t.UserID == "" {
			return fmt.Errorf("set target %q: user id required", t.Scope)
		}
	default:
		return fmt.Errorf("unknown set target %q", t.Scope)
	}
	return nil
}

// SetConfig writes value at keyPath within target on behalf of requesterID.
// Global and default-template targets require the admin role; targets inside
// one concrete group also accept a manager of that group. The accepted
// mutation is persisted write-behind and journaled.
func (e *Engine) SetConfig(target SetTarget, keyPath string, value any, requesterID string) error {
	if err := target.validate(); err != nil {
		return err
	}
	key, err := config.ParseKey(keyPath)
	if err != nil {
		return err
	}
	if err := e.authorizeSet(target, requesterID); err != nil {
		return err
	}
	if target.Scope != TargetGlobal && key.Kind == config.KindGlobal {
		return fmt.Errorf("%w: %q is only settable globally", config.ErrUnknownKey, keyPath)
	}
	if target.Scope == TargetGroupSettings && key.Kind != config.KindSetting {
		return fmt.Errorf("%w: %q is not a settings key", config.ErrUnknownKey, keyPath)
	}

	// Writes to a concrete group role block land on the materialized copy,
	// never on the shared template.
	if target.Scope == TargetGroupRole {
		e.store.MaterializeGroupBlock(target.GroupID, target.Class)
	}

	var oldValue any
	err = e.store.Update(func(doc *config.Document) error {
		if target.Scope == TargetGlobal {
			return applyGlobal(doc, key, value, &oldValue)
		}
		if target.Scope == TargetGroupSettings {
			node := ensureGroupNode(doc, target.GroupID)
			if node.Settings == nil {
				node.Settings = &config.Settings{}
			}
			oldValue, _ = config.SettingValue(node.Settings, key.Field)
			return config.SetSettingValue(node.Settings, key.Field, value)
		}
		block := ensureTargetBlock(doc, target)
		return applyBlock(block, key, value, &oldValue)
	})
	if err != nil {
		return err
	}

	slog.Info("config updated", "target", target.String(), "key", keyPath, "actor", requesterID)
	if e.auditor != nil {
		if _, aerr := e.auditor.RecordConfigChange(requesterID, target.String(), keyPath, oldValue, value); aerr != nil {
			slog.Warn("audit record failed", "key", keyPath, "error", aerr)
		}
	}
	return nil
}

// authorizeSet enforces the privilege matrix for target.
func (e *Engine) authorizeSet(target SetTarget, requesterID string) error {
	if e.perms.Roles(requesterID).Has(permission.RoleAdmin) {
		return nil
	}
	if target.groupScoped() && e.perms.ManagesGroup(requesterID, target.GroupID) {
		return nil
	}
	return fmt.Errorf("%w: %s may not write %s", ErrPermissionDenied, requesterID, target.String())
}

func applyGlobal(doc *config.Document, key config.Key, value any, oldValue *any) error {
	switch key.Kind {
	case config.KindSetting:
		*oldValue, _ = config.SettingValue(&doc.Settings, key.Field)
		return config.SetSettingValue(&doc.Settings, key.Field, value)
	case config.KindEvent:
		if doc.RandomEvents == nil {
			doc.RandomEvents = map[string]*config.EventConfig{}
		}
		ev := doc.RandomEvents[key.EventID]
		if ev == nil {
			ev = &config.EventConfig{ID: key.EventID}
			doc.RandomEvents[key.EventID] = ev
		}
		*oldValue, _ = config.EventValue(ev, key.Field)
		return config.SetEventValue(ev, key.Field, value)
	default:
		if v, ok := config.GlobalValue(doc, key); ok {
			*oldValue = v
		}
		return config.SetGlobalValue(doc, key, value)
	}
}

func applyBlock(block *config.RoleBlock, key config.Key, value any, oldValue *any) error {
	switch key.Kind {
	case config.KindSetting:
		if block.Settings == nil {
			block.Settings = &config.Settings{}
		}
		*oldValue, _ = config.SettingValue(block.Settings, key.Field)
		return config.SetSettingValue(block.Settings, key.Field, value)
	case config.KindEvent:
		if block.RandomEvents == nil {
			block.RandomEvents = map[string]*config.EventConfig{}
		}
		ev := block.RandomEvents[key.EventID]
		if ev == nil {
			ev = &config.EventConfig{ID: key.EventID}
			block.RandomEvents[key.EventID] = ev
		}
		*oldValue, _ = config.EventValue(ev, key.Field)
		return config.SetEventValue(ev, key.Field, value)
	case config.KindBot:
		if block.Bot == nil {
			block.Bot = &config.BotOverride{}
		}
		*oldValue, _ = config.BotOverrideValue(block.Bot, key.Field)
		return config.SetBotOverrideValue(block.Bot, key.Field, value)
	case config.KindGemini:
		if block.Gemini == nil {
			block.Gemini = &config.GeminiOverride{}
		}
		*oldValue, _ = config.GeminiOverrideValue(block.Gemini, key.Field)
		return config.SetGeminiOverrideValue(block.Gemini, key.Field, value)
	}
	return fmt.Errorf("%w: %q", config.ErrUnknownKey, key.Path)
}

func ensureGroupNode(doc *config.Document, groupID string) *config.ScopeNode {
	if doc.Groups == nil {
		doc.Groups = map[string]*config.ScopeNode{}
	}
	node := doc.Groups[groupID]
	if node == nil {
		node = &config.ScopeNode{}
		doc.Groups[groupID] = node
	}
	return node
}

// ensureTargetBlock walks or creates the role block target addresses.
func ensureTargetBlock(doc *config.Document, target SetTarget) *config.RoleBlock {
	switch target.Scope {
	case TargetGroupDefault:
		node := ensureGroupNode(doc, config.DefaultScopeKey)
		return ensureClassBlock(node, target.Class)
	case TargetGroupRole:
		node := ensureGroupNode(doc, target.GroupID)
		return ensureClassBlock(node, target.Class)
	case TargetUserGroup:
		node := ensureGroupNode(doc, target.GroupID)
		if node.SpecificUsers == nil {
			node.SpecificUsers = map[string]*config.RoleBlock{}
		}
		block := node.SpecificUsers[target.UserID]
		if block == nil {
			block = &config.RoleBlock{}
			node.SpecificUsers[target.UserID] = block
		}
		return block
	case TargetUserPrivate:
		if doc.Private.SpecificUsers == nil {
			doc.Private.SpecificUsers = map[string]*config.RoleBlock{}
		}
		block := doc.Private.SpecificUsers[target.UserID]
		if block == nil {
			block = &config.RoleBlock{}
			doc.Private.SpecificUsers[target.UserID] = block
		}
		return block
	case TargetPrivateDefault:
		if doc.Private.Default == nil {
			doc.Private.Default = &config.ScopeNode{}
		}
		return ensureClassBlock(doc.Private.Default, target.Class)
	}
	return &config.RoleBlock{}
}

func ensureClassBlock(node *config.ScopeNode, class config.RoleClass) *config.RoleBlock {
	block := node.Block(class)
	if block == nil {
		block = &config.RoleBlock{}
		node.SetBlock(class, block)
	}
	return block
}
