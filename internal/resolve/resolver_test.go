package resolve

import (
	"errors"
	"testing"

	"github.com/yuibot/yuibot/internal/config"
)

func testStore(t *testing.T) *config.Store {
	t.Helper()
	doc := config.DefaultDocument()
	doc.Bot.QQNo = "10000"
	doc.Bot.AdminQQ = "9999"
	doc.Gemini.APIKeys = []string{"key-1"}
	store := config.NewStore(doc, nil)
	t.Cleanup(func() { store.Close() })
	return store
}

func groupCtx(groupID, userID string, class config.RoleClass) Context {
	return Context{Channel: ChannelGroup, GroupID: groupID, UserID: userID, Block: class}
}

func privateCtx(userID string) Context {
	return Context{Channel: ChannelPrivate, UserID: userID, Block: config.ClassUser}
}

func TestResolveFallsBackToTopLevel(t *testing.T) {
	r := New(testStore(t))

	res, err := r.Resolve("settings.enable_ai_chat", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	b, err := res.Bool()
	if err != nil || !b {
		t.Fatalf("enable_ai_chat = %v, %v", b, err)
	}
	if res.Level != LevelGlobal {
		t.Fatalf("level = %v, want %v", res.Level, LevelGlobal)
	}
}

func TestResolveGroupRoleBeatsGlobal(t *testing.T) {
	// The default group user template carries message_rate_limit 20; the
	// top-level document carries 30.
	r := New(testStore(t))

	res, err := r.Resolve("settings.message_rate_limit", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	n, _ := res.Int()
	if n != 20 {
		t.Fatalf("group user rate limit = %d, want 20", n)
	}
	if res.Level != LevelGroupRole {
		t.Fatalf("level = %v, want %v (materialized role block)", res.Level, LevelGroupRole)
	}
}

func TestResolveSpecificUserBeatsRoleBlock(t *testing.T) {
	store := testStore(t)
	err := store.Update(func(doc *config.Document) error {
		doc.Groups["g1"] = &config.ScopeNode{
			SpecificUsers: map[string]*config.RoleBlock{
				"u1": {Settings: &config.Settings{MessageRateLimit: config.IntPtr(3)}},
			},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := New(store)

	res, err := r.Resolve("settings.message_rate_limit", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n, _ := res.Int(); n != 3 {
		t.Fatalf("specific user override lost: %d", n)
	}
	if res.Level != LevelUserGroup {
		t.Fatalf("level = %v, want %v", res.Level, LevelUserGroup)
	}

	// Another user in the same group still sees the role block value.
	res, err = r.Resolve("settings.message_rate_limit", groupCtx("g1", "u2", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve u2: %v", err)
	}
	if n, _ := res.Int(); n != 20 {
		t.Fatalf("u2 rate limit = %d, want 20", n)
	}
}

func TestResolvePerFieldInheritance(t *testing.T) {
	// A block overriding only one field must not shadow its siblings.
	store := testStore(t)
	err := store.Update(func(doc *config.Document) error {
		doc.Groups["g1"] = &config.ScopeNode{
			SpecificUsers: map[string]*config.RoleBlock{
				"u1": {Settings: &config.Settings{EnableAIChat: config.BoolPtr(false)}},
			},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := New(store)
	ctx := groupCtx("g1", "u1", config.ClassUser)

	res, err := r.Resolve("settings.enable_ai_chat", ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b, _ := res.Bool(); b {
		t.Fatalf("explicit false override lost")
	}

	res, err = r.Resolve("settings.message_rate_limit", ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n, _ := res.Int(); n != 20 {
		t.Fatalf("sibling field must cascade past the partial block, got %d", n)
	}
}

func TestResolveGroupSettingsLevel(t *testing.T) {
	store := testStore(t)
	err := store.Update(func(doc *config.Document) error {
		doc.Groups["g1"] = &config.ScopeNode{
			Settings: &config.Settings{EnableChatCommands: config.BoolPtr(false)},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := New(store)

	// The role block is materialized on first touch but carries no value
	// for this field, so the flat group settings win.
	res, err := r.Resolve("settings.enable_chat_commands", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b, _ := res.Bool(); b {
		t.Fatalf("group-wide override lost")
	}
	if res.Level != LevelGroupSettings {
		t.Fatalf("level = %v, want %v", res.Level, LevelGroupSettings)
	}
}

func TestResolveMaterializesRoleBlock(t *testing.T) {
	store := testStore(t)
	r := New(store)

	if _, err := r.Resolve("settings.message_rate_limit", groupCtx("g7", "u1", config.ClassManager)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	store.View(func(doc *config.Document) {
		block := doc.Groups["g7"].Block(config.ClassManager)
		if block == nil {
			t.Fatalf("role block not materialized on first resolve")
		}
		if *block.Settings.MessageRateLimit != 100 {
			t.Fatalf("materialized manager block = %+v", block.Settings)
		}
	})
}

func TestResolveVetoForcesFalse(t *testing.T) {
	store := testStore(t)
	// repeat.enabled is true in the group user template, but the global
	// switch for the repeat event is off by default.
	r := New(store)

	res, err := r.Resolve("random_events.repeat.enabled", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b, _ := res.Bool(); b {
		t.Fatalf("global veto did not force false")
	}
	if res.Level != LevelGlobal {
		t.Fatalf("vetoed value must report the global level, got %v", res.Level)
	}

	// Flipping the switch releases the veto and the cascade applies again.
	err = store.Update(func(doc *config.Document) error {
		doc.Settings.EnableRepeatEvent = config.BoolPtr(true)
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	res, err = r.Resolve("random_events.repeat.enabled", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b, _ := res.Bool(); !b {
		t.Fatalf("cascaded true lost after veto release")
	}
	if res.Level != LevelGroupRole {
		t.Fatalf("level = %v, want %v", res.Level, LevelGroupRole)
	}
}

func TestResolveVetoDoesNotGateUnrelatedKeys(t *testing.T) {
	store := testStore(t)
	err := store.Update(func(doc *config.Document) error {
		doc.Settings.EnableRepeatEvent = config.BoolPtr(false)
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	r := New(store)

	// probability has no veto switch; the group template still supplies it.
	res, err := r.Resolve("random_events.repeat.probability", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if f, _ := res.Float(); f != 0.03 {
		t.Fatalf("probability = %v, want group template 0.03", f)
	}
}

func TestResolvePrivateCascade(t *testing.T) {
	store := testStore(t)
	err := store.Update(func(doc *config.Document) error {
		doc.Private.SpecificUsers = map[string]*config.RoleBlock{
			"u1": {Settings: &config.Settings{MessageRateLimit: config.IntPtr(7)}},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := New(store)

	res, err := r.Resolve("settings.message_rate_limit", privateCtx("u1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n, _ := res.Int(); n != 7 {
		t.Fatalf("private specific user override lost: %d", n)
	}
	if res.Level != LevelUserPrivate {
		t.Fatalf("level = %v", res.Level)
	}

	// Without a specific block the private default template applies.
	res, err = r.Resolve("settings.message_rate_limit", privateCtx("u2"))
	if err != nil {
		t.Fatalf("Resolve u2: %v", err)
	}
	if n, _ := res.Int(); n != 50 {
		t.Fatalf("private default rate limit = %d, want 50", n)
	}
	if res.Level != LevelPrivateDefault {
		t.Fatalf("level = %v", res.Level)
	}
}

func TestResolveBotOverrideCascade(t *testing.T) {
	store := testStore(t)
	err := store.Update(func(doc *config.Document) error {
		doc.Groups["g1"] = &config.ScopeNode{
			User: &config.RoleBlock{
				Bot: &config.BotOverride{Voice: config.StringPtr("zh-CN-XiaoyiNeural")},
			},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	r := New(store)

	res, err := r.Resolve("qq_bot.voice", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s, _ := res.String(); s != "zh-CN-XiaoyiNeural" {
		t.Fatalf("voice override lost: %q", s)
	}
	if res.Level != LevelGroupRole {
		t.Fatalf("level = %v", res.Level)
	}

	// Elsewhere the top-level value applies.
	res, err = r.Resolve("qq_bot.voice", groupCtx("g2", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve g2: %v", err)
	}
	if s, _ := res.String(); s != "zh-CN-YunxiNeural" {
		t.Fatalf("top-level voice = %q", s)
	}
	if res.Level != LevelGlobal {
		t.Fatalf("level = %v", res.Level)
	}
}

func TestResolveGlobalOnlyKey(t *testing.T) {
	r := New(testStore(t))

	res, err := r.Resolve("service.port", groupCtx("g1", "u1", config.ClassUser))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n, _ := res.Int(); n != 5555 {
		t.Fatalf("service.port = %d", n)
	}
	if res.Level != LevelGlobal {
		t.Fatalf("level = %v", res.Level)
	}
}

func TestResolveUnknownKey(t *testing.T) {
	r := New(testStore(t))
	_, err := r.Resolve("settings.no_such_switch", groupCtx("g1", "u1", config.ClassUser))
	if !errors.Is(err, config.ErrUnknownKey) {
		t.Fatalf("err = %v, want ErrUnknownKey", err)
	}
}

func TestScopeKey(t *testing.T) {
	if k := groupCtx("g1", "u1", config.ClassUser).ScopeKey(); k != "group:g1" {
		t.Fatalf("group scope key = %q", k)
	}
	if k := privateCtx("u1").ScopeKey(); k != "private:u1" {
		t.Fatalf("private scope key = %q", k)
	}
}

func TestLevelString(t *testing.T) {
	if LevelGroupRole.String() != "group role block" {
		t.Fatalf("unexpected level name %q", LevelGroupRole)
	}
	if Level(99).String() != "level(99)" {
		t.Fatalf("unknown level formatting broken")
	}
}
