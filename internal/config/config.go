// Package config provides the layered configuration document for yuibot.
// The document is a single tree holding global settings, per-group and
// per-private-chat overrides, random event parameters and the permission
// table. Override blocks use pointer fields so that "not set here" is
// distinguishable from an explicit value.
package config

// Document is the root configuration tree. It is owned exclusively by a
// Store; nothing outside internal/config mutates it directly.
type Document struct {
	Bot          BotConfig               `json:"qq_bot"`
	Gemini       GeminiConfig            `json:"gemini"`
	Log          LogConfig               `json:"log"`
	Settings     Settings                `json:"settings"`
	RandomEvents map[string]*EventConfig `json:"random_events"`
	Proxy        ProxyConfig             `json:"proxy"`
	Permissions  Permissions             `json:"permissions"`
	Groups       map[string]*ScopeNode   `json:"group"`
	Private      PrivateSection          `json:"private"`
	Service      ServiceConfig           `json:"service"`
}

// DefaultScopeKey is the group map key holding the default template node.
const DefaultScopeKey = "__default__"

// BotConfig holds bot identity and transport-facing settings. Identity keys
// (QQNo, AdminQQ) are mandatory and validated at load time.
type BotConfig struct {
	QQNo         string `json:"qq_no"`
	AdminQQ      string `json:"admin_qq"`
	AutoConfirm  bool   `json:"auto_confirm"`
	CQHTTPURL    string `json:"cqhttp_url"`
	ImagePath    string `json:"image_path"`
	VoicePath    string `json:"voice_path"`
	Voice        string `json:"voice"`
	MaxLength    int    `json:"max_length"`
	BotName      string `json:"bot_name"`
	GroupKeyword string `json:"group_keyword"`
}

// GeminiConfig holds model provider settings. APIKeys is mandatory.
type GeminiConfig struct {
	APIKeys          []string          `json:"api_keys"`
	Model            string            `json:"model"`
	SafetySettings   map[string]string `json:"safety_settings"`
	GenerationConfig GenerationConfig  `json:"generation_config"`
	SystemPrompt     string            `json:"system_prompt"`
}

// GenerationConfig holds sampling parameters for the model provider.
type GenerationConfig struct {
	TopP            float64 `json:"top_p"`
	TopK            int     `json:"top_k"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// LogConfig holds log sink settings consumed by the embedding process.
type LogConfig struct {
	Level    string `json:"level"`
	FilePath string `json:"file_path"`
}

// ProxyConfig holds the optional outbound proxy for provider calls.
type ProxyConfig struct {
	HTTPSProxy string `json:"https_proxy,omitempty"`
}

// ServiceConfig holds the inbound HTTP listener settings. Values can be
// overridden with YUIBOT_SERVICE_* environment variables.
type ServiceConfig struct {
	Host        string `json:"host" envconfig:"HOST"`
	Port        int    `json:"port" envconfig:"PORT"`
	UseReloader bool   `json:"use_reloader" envconfig:"USE_RELOADER"`
}

// Settings is the behavior switch block. It appears at the document top
// level (where every field is populated and the enable_* fields double as
// global veto switches) and inside override blocks (where nil means
// "inherit from the next level down").
type Settings struct {
	EnablePersonalityRetrain *bool `json:"enable_personality_retrain,omitempty"`
	EnableHistoryEdit        *bool `json:"enable_history_edit,omitempty"`
	EnableAIChat             *bool `json:"enable_ai_chat,omitempty"`
	EnableChatCommands       *bool `json:"enable_chat_commands,omitempty"`
	EnableRandomEvents       *bool `json:"enable_random_events,omitempty"`
	EnableRepeatEvent        *bool `json:"enable_repeat_event,omitempty"`
	MessageRateLimit         *int  `json:"message_rate_limit,omitempty"`
}

// EventConfig describes one random event. MinInterval -1 means "no personal
// cooldown"; the shared group cooldown then applies instead.
type EventConfig struct {
	ID                string   `json:"id,omitempty"`
	Name              string   `json:"name,omitempty"`
	Description       string   `json:"description,omitempty"`
	Enabled           *bool    `json:"enabled,omitempty"`
	Probability       *float64 `json:"probability,omitempty"`
	MinInterval       *int     `json:"min_interval,omitempty"`
	SharedMinInterval *int     `json:"shared_min_interval,omitempty"`
}

// GeminiOverride is the subset of model settings overridable per scope/role.
type GeminiOverride struct {
	Model        *string `json:"model,omitempty"`
	SystemPrompt *string `json:"system_prompt,omitempty"`
}

// BotOverride is the subset of bot settings overridable per scope/role.
type BotOverride struct {
	Voice     *string `json:"voice,omitempty"`
	BotName   *string `json:"bot_name,omitempty"`
	MaxLength *int    `json:"max_length,omitempty"`
}

// RoleBlock holds the overrides for one role class within one scope, or for
// one specific user.
type RoleBlock struct {
	Settings     *Settings               `json:"settings,omitempty"`
	RandomEvents map[string]*EventConfig `json:"random_events,omitempty"`
	Gemini       *GeminiOverride         `json:"gemini,omitempty"`
	Bot          *BotOverride            `json:"qq_bot,omitempty"`
}

// RoleClass selects which role block of a ScopeNode applies to a caller.
type RoleClass string

const (
	ClassUser        RoleClass = "user"
	ClassManager     RoleClass = "manager"
	ClassBlacklisted RoleClass = "blacklisted"
)

// ValidClass reports whether s names a role block.
func ValidClass(s string) bool {
	switch RoleClass(s) {
	case ClassUser, ClassManager, ClassBlacklisted:
		return true
	}
	return false
}

// ScopeNode holds the override blocks for one group (or the group default
// template). Settings is a flat scope-wide override applying to every role
// class, sitting between the role block and the default template in the
// cascade.
type ScopeNode struct {
	User          *RoleBlock            `json:"user,omitempty"`
	Manager       *RoleBlock            `json:"manager,omitempty"`
	Blacklisted   *RoleBlock            `json:"blacklisted,omitempty"`
	SpecificUsers map[string]*RoleBlock `json:"__specific_user__,omitempty"`
	Settings      *Settings             `json:"settings,omitempty"`
}

// Block returns the role block for class, or nil.
func (n *ScopeNode) Block(class RoleClass) *RoleBlock {
	if n == nil {
		return nil
	}
	switch class {
	case ClassUser:
		return n.User
	case ClassManager:
		return n.Manager
	case ClassBlacklisted:
		return n.Blacklisted
	}
	return nil
}

// SetBlock installs the role block for class.
func (n *ScopeNode) SetBlock(class RoleClass, b *RoleBlock) {
	switch class {
	case ClassUser:
		n.User = b
	case ClassManager:
		n.Manager = b
	case ClassBlacklisted:
		n.Blacklisted = b
	}
}

// PrivateSection holds the private-chat default template and per-user
// overrides.
type PrivateSection struct {
	Default       *ScopeNode            `json:"__default__,omitempty"`
	SpecificUsers map[string]*RoleBlock `json:"__specific_user__,omitempty"`
}

// Permissions is the stored permission table.
type Permissions struct {
	Users map[string]*PermissionEntry `json:"users"`
}

// PermissionEntry records roles and scoped relations for one user id.
// Roles is logically a set; ManagedGroups only has effect together with the
// group_manager role; BlacklistedIn scopes blacklisting to specific groups.
type PermissionEntry struct {
	Roles         []string `json:"roles"`
	ManagedGroups []string `json:"managed_groups"`
	BlacklistedIn []string `json:"blacklisted_in"`
}

// BoolPtr returns a pointer to v. Convenience for building override blocks.
func BoolPtr(v bool) *bool { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }
