package config

// Clone methods produce deep copies. Copy-down materialization and the
// write-behind persister both depend on cloned blocks being fully
// independent of their source.

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Gemini = d.Gemini.clone()
	out.Settings = *d.Settings.Clone()
	out.RandomEvents = cloneEventMap(d.RandomEvents)
	out.Permissions = d.Permissions.clone()
	if d.Groups != nil {
		out.Groups = make(map[string]*ScopeNode, len(d.Groups))
		for id, n := range d.Groups {
			out.Groups[id] = n.Clone()
		}
	}
	out.Private = PrivateSection{
		Default:       d.Private.Default.Clone(),
		SpecificUsers: cloneBlockMap(d.Private.SpecificUsers),
	}
	return &out
}

func (g GeminiConfig) clone() GeminiConfig {
	out := g
	if g.APIKeys != nil {
		out.APIKeys = append([]string(nil), g.APIKeys...)
	}
	if g.SafetySettings != nil {
		out.SafetySettings = make(map[string]string, len(g.SafetySettings))
		for k, v := range g.SafetySettings {
			out.SafetySettings[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the settings block.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	out := Settings{}
	out.EnablePersonalityRetrain = cloneBool(s.EnablePersonalityRetrain)
	out.EnableHistoryEdit = cloneBool(s.EnableHistoryEdit)
	out.EnableAIChat = cloneBool(s.EnableAIChat)
	out.EnableChatCommands = cloneBool(s.EnableChatCommands)
	out.EnableRandomEvents = cloneBool(s.EnableRandomEvents)
	out.EnableRepeatEvent = cloneBool(s.EnableRepeatEvent)
	out.MessageRateLimit = cloneInt(s.MessageRateLimit)
	return &out
}

// Clone returns a deep copy of the event config.
func (e *EventConfig) Clone() *EventConfig {
	if e == nil {
		return nil
	}
	out := *e
	out.Enabled = cloneBool(e.Enabled)
	out.Probability = cloneFloat(e.Probability)
	out.MinInterval = cloneInt(e.MinInterval)
	out.SharedMinInterval = cloneInt(e.SharedMinInterval)
	return &out
}

// Clone returns a deep copy of the role block.
func (b *RoleBlock) Clone() *RoleBlock {
	if b == nil {
		return nil
	}
	out := RoleBlock{
		Settings:     b.Settings.Clone(),
		RandomEvents: cloneEventMap(b.RandomEvents),
	}
	if b.Gemini != nil {
		g := GeminiOverride{
			Model:        cloneString(b.Gemini.Model),
			SystemPrompt: cloneString(b.Gemini.SystemPrompt),
		}
		out.Gemini = &g
	}
	if b.Bot != nil {
		bo := BotOverride{
			Voice:     cloneString(b.Bot.Voice),
			BotName:   cloneString(b.Bot.BotName),
			MaxLength: cloneInt(b.Bot.MaxLength),
		}
		out.Bot = &bo
	}
	return &out
}

// Clone returns a deep copy of the scope node.
func (n *ScopeNode) Clone() *ScopeNode {
	if n == nil {
		return nil
	}
	return &ScopeNode{
		User:          n.User.Clone(),
		Manager:       n.Manager.Clone(),
		Blacklisted:   n.Blacklisted.Clone(),
		SpecificUsers: cloneBlockMap(n.SpecificUsers),
		Settings:      n.Settings.Clone(),
	}
}

func (p Permissions) clone() Permissions {
	out := Permissions{}
	if p.Users != nil {
		out.Users = make(map[string]*PermissionEntry, len(p.Users))
		for id, e := range p.Users {
			out.Users[id] = e.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the permission entry.
func (e *PermissionEntry) Clone() *PermissionEntry {
	if e == nil {
		return nil
	}
	return &PermissionEntry{
		Roles:         append([]string(nil), e.Roles...),
		ManagedGroups: append([]string(nil), e.ManagedGroups...),
		BlacklistedIn: append([]string(nil), e.BlacklistedIn...),
	}
}

func cloneEventMap(m map[string]*EventConfig) map[string]*EventConfig {
	if m == nil {
		return nil
	}
	out := make(map[string]*EventConfig, len(m))
	for id, e := range m {
		out[id] = e.Clone()
	}
	return out
}

func cloneBlockMap(m map[string]*RoleBlock) map[string]*RoleBlock {
	if m == nil {
		return nil
	}
	out := make(map[string]*RoleBlock, len(m))
	for id, b := range m {
		out[id] = b.Clone()
	}
	return out
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
