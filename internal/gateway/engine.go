// Package gateway ties the configuration store, resolver, permission
// registry, rate limiter and random-event tracker together behind one
// facade. Command handlers and channel adapters talk to the Engine only.
package gateway

import (
	"errors"
	"log/slog"

	"github.com/yuibot/yuibot/internal/audit"
	"github.com/yuibot/yuibot/internal/config"
	"github.com/yuibot/yuibot/internal/permission"
	"github.com/yuibot/yuibot/internal/randomevent"
	"github.com/yuibot/yuibot/internal/ratelimit"
	"github.com/yuibot/yuibot/internal/resolve"
)

// ErrPermissionDenied is returned when the requester lacks the privilege a
// mutation requires.
var ErrPermissionDenied = errors.New("permission denied")

// Engine is the policy facade over one shared configuration store.
type Engine struct {
	store    *config.Store
	resolver *resolve.Resolver
	perms    *permission.Registry
	limiter  *ratelimit.Limiter
	events   *randomevent.Tracker
	auditor  *audit.Recorder
}

// Option customizes an Engine, mainly for injecting clocks in tests.
type Option func(*Engine)

// WithAudit attaches an audit recorder. Without one mutations are applied
// but not journaled.
func WithAudit(rec *audit.Recorder) Option {
	return func(e *Engine) { e.auditor = rec }
}

// WithLimiter replaces the rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithTracker replaces the random-event tracker.
func WithTracker(t *randomevent.Tracker) Option {
	return func(e *Engine) { e.events = t }
}

// New wires an Engine over store.
func New(store *config.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		resolver: resolve.New(store),
		perms:    permission.New(store),
		limiter:  ratelimit.New(),
		events:   randomevent.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Permissions exposes the permission registry for read paths.
func (e *Engine) Permissions() *permission.Registry { return e.perms }

// Store exposes the underlying configuration store.
func (e *Engine) Store() *config.Store { return e.store }

// Audit exposes the audit recorder, nil when none is attached.
func (e *Engine) Audit() *audit.Recorder { return e.auditor }

// ContextFor derives the resolution context for a caller: blacklisted wins
// over everything, admins and group managers fall under the manager block
// in groups, everyone else under the user block.
func (e *Engine) ContextFor(channel resolve.Channel, groupID, userID string) resolve.Context {
	ctx := resolve.Context{Channel: channel, GroupID: groupID, UserID: userID, Block: config.ClassUser}
	if channel == resolve.ChannelGroup {
		switch {
		case e.perms.IsBlacklistedInGroup(userID, groupID):
			ctx.Block = config.ClassBlacklisted
		case e.perms.Roles(userID).Has(permission.RoleAdmin),
			e.perms.ManagesGroup(userID, groupID):
			ctx.Block = config.ClassManager
		}
		return ctx
	}
	ctx.GroupID = ""
	if e.perms.IsGloballyBlacklisted(userID) {
		ctx.Block = config.ClassBlacklisted
	}
	return ctx
}

// Resolve returns the effective value for path in ctx.
func (e *Engine) Resolve(path string, ctx resolve.Context) (resolve.Resolution, error) {
	return e.resolver.Resolve(path, ctx)
}

// ResolveBool resolves path and coerces it to bool.
func (e *Engine) ResolveBool(path string, ctx resolve.Context) (bool, error) {
	res, err := e.resolver.Resolve(path, ctx)
	if err != nil {
		return false, err
	}
	return res.Bool()
}

// ResolveInt resolves path and coerces it to int.
func (e *Engine) ResolveInt(path string, ctx resolve.Context) (int, error) {
	res, err := e.resolver.Resolve(path, ctx)
	if err != nil {
		return 0, err
	}
	return res.Int()
}

// ResolveFloat resolves path and coerces it to float64.
func (e *Engine) ResolveFloat(path string, ctx resolve.Context) (float64, error) {
	res, err := e.resolver.Resolve(path, ctx)
	if err != nil {
		return 0, err
	}
	return res.Float()
}

// ResolveString resolves path and coerces it to string.
func (e *Engine) ResolveString(path string, ctx resolve.Context) (string, error) {
	res, err := e.resolver.Resolve(path, ctx)
	if err != nil {
		return "", err
	}
	return res.String()
}

// CheckRate consumes one slot from ctx's hourly budget.
func (e *Engine) CheckRate(ctx resolve.Context, limitPerHour int) ratelimit.Decision {
	return e.limiter.Check(ctx.ScopeKey(), limitPerHour)
}

// CheckMessageRate resolves the effective message_rate_limit for ctx and
// consumes one slot from its budget.
func (e *Engine) CheckMessageRate(ctx resolve.Context) (ratelimit.Decision, error) {
	limit, err := e.ResolveInt("settings.message_rate_limit", ctx)
	if err != nil {
		return ratelimit.Decision{}, err
	}
	return e.limiter.Check(ctx.ScopeKey(), limit), nil
}

// TryRandomEvent runs the cooldown gates and probability draw with
// caller-supplied parameters.
func (e *Engine) TryRandomEvent(eventID string, ctx resolve.Context, probability float64, personalIntervalSec, sharedIntervalSec int) bool {
	return e.events.TryTrigger(eventID, ctx, probability, personalIntervalSec, sharedIntervalSec)
}

// FireEvent runs the full random-event pipeline for ctx: the global and
// cascaded switches, the blacklist, the effective event parameters, then
// the cooldown gates and the draw.
func (e *Engine) FireEvent(eventID string, ctx resolve.Context) (bool, error) {
	enabled, err := e.ResolveBool("settings.enable_random_events", ctx)
	if err != nil || !enabled {
		return false, err
	}
	if ctx.Block == config.ClassBlacklisted {
		return false, nil
	}
	ev, err := e.resolver.ResolveEvent(eventID, ctx)
	if err != nil {
		return false, err
	}
	if !ev.Enabled {
		return false, nil
	}
	return e.events.TryTrigger(eventID, ctx, ev.Probability, ev.MinInterval, ev.SharedMinInterval), nil
}

// GrantRole grants a role token to userID and audits the change.
func (e *Engine) GrantRole(actor, userID, token string) error {
	role, err := permission.ParseRole(token)
	if err != nil {
		return err
	}
	if err := e.perms.Grant(userID, role); err != nil {
		return err
	}
	e.auditPermission(actor, userID, "grant_role", token)
	return nil
}

// RevokeRole revokes a role token from userID and audits the change.
func (e *Engine) RevokeRole(actor, userID, token string) error {
	role, err := permission.ParseRole(token)
	if err != nil {
		return err
	}
	if err := e.perms.Revoke(userID, role); err != nil {
		return err
	}
	e.auditPermission(actor, userID, "revoke_role", token)
	return nil
}

// AddManagedGroup makes userID a manager of groupID.
func (e *Engine) AddManagedGroup(actor, userID, groupID string) error {
	if err := e.perms.AddManagedGroup(userID, groupID); err != nil {
		return err
	}
	e.auditPermission(actor, userID, "add_managed_group", groupID)
	return nil
}

// RemoveManagedGroup removes groupID from userID's managed set.
func (e *Engine) RemoveManagedGroup(actor, userID, groupID string) error {
	if err := e.perms.RemoveManagedGroup(userID, groupID); err != nil {
		return err
	}
	e.auditPermission(actor, userID, "remove_managed_group", groupID)
	return nil
}

// BlacklistInGroup blacklists userID within groupID.
func (e *Engine) BlacklistInGroup(actor, userID, groupID string) error {
	if err := e.perms.BlacklistInGroup(userID, groupID); err != nil {
		return err
	}
	e.auditPermission(actor, userID, "blacklist_in_group", groupID)
	return nil
}

// Unblacklist removes userID from groupID's blacklist.
func (e *Engine) Unblacklist(actor, userID, groupID string) error {
	if err := e.perms.Unblacklist(userID, groupID); err != nil {
		return err
	}
	e.auditPermission(actor, userID, "unblacklist", groupID)
	return nil
}

// SetGlobalBlacklist toggles the global blacklist for userID.
func (e *Engine) SetGlobalBlacklist(actor, userID string, on bool) error {
	if err := e.perms.SetGlobalBlacklist(userID, on); err != nil {
		return err
	}
	detail := "off"
	if on {
		detail = "on"
	}
	e.auditPermission(actor, userID, "global_blacklist", detail)
	return nil
}

func (e *Engine) auditPermission(actor, userID, action, detail string) {
	if e.auditor == nil {
		return
	}
	if _, err := e.auditor.RecordPermissionChange(actor, userID, action, detail); err != nil {
		slog.Warn("audit record failed", "action", action, "user", userID, "error", err)
	}
}
