package panel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jask/vareditor/internal/host"
	"github.com/jask/vareditor/internal/reconcile"
	"github.com/jask/vareditor/internal/variables"
)

const DefaultFlashDuration = 600 * time.Millisecond

// Host is what the controller needs from the application hosting it.
type Host interface {
	CurrentConversationID() (string, bool)
	LocalVariables() (*variables.Collection, error)
	GlobalVariables() (*variables.Collection, error)
	PersistLocal(ctx context.Context) error
	PersistGlobalDebounced()
	Subscribe(fn func(host.ConversationChanged)) (unsubscribe func())
	Notify(kind host.NotificationKind, message string)
	PanelSettings() host.PanelSettings
	SetPanelSettings(ps host.PanelSettings)
}

// Options tune a Controller. Zero values select the defaults.
type Options struct {
	PollInterval  time.Duration
	ErrorBackoff  time.Duration
	FlashDuration time.Duration
	DefaultSort   SortRule
	Logger        *zap.Logger
}

// Section is a renderer's copy of one scope's rows.
type Section struct {
	Scope variables.Scope
	Title string
	Sort  SortRule
	Items []DisplayItem
}

// View is a point-in-time copy of the panel.
type View struct {
	Mounted      bool
	Conversation string
	Sections     []Section
}

// Controller owns the panel rows and the reconciliation engine feeding them.
type Controller struct {
	host   Host
	store  *variables.Store
	engine *reconcile.Engine
	log    *zap.Logger
	flash  time.Duration

	// mu is the UI lock. The engine holds it for every tick.
	mu           sync.Mutex
	mounted      bool
	sections     [2]*section
	sorts        [2]SortRule
	conversation string
	timers       map[string]*time.Timer

	unsubscribe func()
	changes     chan struct{}
}

func New(h Host, opts Options) *Controller {
	if opts.FlashDuration <= 0 {
		opts.FlashDuration = DefaultFlashDuration
	}
	if !opts.DefaultSort.Valid() {
		opts.DefaultSort = KeyAsc
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	c := &Controller{
		host:    h,
		store:   variables.NewStore(h),
		log:     opts.Logger,
		flash:   opts.FlashDuration,
		sorts:   [2]SortRule{opts.DefaultSort, opts.DefaultSort},
		timers:  map[string]*time.Timer{},
		changes: make(chan struct{}, 1),
	}
	c.conversation, _ = h.CurrentConversationID()
	c.engine = reconcile.New(c.store, target{c}, reconcile.Options{
		Interval: opts.PollInterval,
		Backoff:  opts.ErrorBackoff,
		UI:       &c.mu,
		Logger:   opts.Logger.Named("reconcile"),
	})
	c.unsubscribe = h.Subscribe(c.conversationChanged)
	return c
}

// Show mounts the panel. Showing a mounted panel does nothing.
func (c *Controller) Show() {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	var failed []variables.Scope
	for _, scope := range variables.Scopes {
		if err := c.rebuild(scope); err != nil {
			c.log.Warn("initial render failed", zap.Stringer("scope", scope), zap.Error(err))
			c.sections[scope] = newSection(scope, c.sorts[scope], nil)
			failed = append(failed, scope)
		}
	}
	c.engine.Start()
	for _, scope := range failed {
		c.engine.Invalidate(scope)
	}
	c.mu.Unlock()
	c.log.Debug("panel shown")
	c.signal()
}

// Hide unmounts the panel and stops polling.
func (c *Controller) Hide() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.engine.Stop()
	c.stopTimers()
	c.sections = [2]*section{}
	c.mounted = false
	c.mu.Unlock()
	c.log.Debug("panel hidden")
	c.signal()
}

// Toggle flips the persisted visibility and mounts or unmounts to match.
// It returns "shown" or "hidden".
func (c *Controller) Toggle(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ps := c.host.PanelSettings()
	ps.IsShown = !ps.IsShown
	c.host.SetPanelSettings(ps)
	state := "hidden"
	if ps.IsShown {
		c.Show()
		state = "shown"
	} else {
		c.Hide()
	}
	c.host.PersistGlobalDebounced()
	return state, nil
}

// Mounted reports whether the panel is shown.
func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Sort returns the rule used for scope.
func (c *Controller) Sort(scope variables.Scope) SortRule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sorts[scope]
}

// SetSort reorders scope's rows in place. The rule lasts for the process.
func (c *Controller) SetSort(scope variables.Scope, rule SortRule) error {
	rule, err := ParseSortRule(string(rule))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sorts[scope] = rule
	if sec := c.sections[scope]; sec != nil {
		sec.rule = rule
		sec.resort()
	}
	c.mu.Unlock()
	c.signal()
	return nil
}

// View copies the current rows for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{Mounted: c.mounted, Conversation: c.conversation}
	if !c.mounted {
		return v
	}
	for _, scope := range variables.Scopes {
		sec := c.sections[scope]
		v.Sections = append(v.Sections, Section{
			Scope: scope,
			Title: scope.Title(),
			Sort:  sec.rule,
			Items: sec.items(),
		})
	}
	return v
}

// Changes is signalled whenever the rows change. Signals coalesce.
func (c *Controller) Changes() <-chan struct{} { return c.changes }

// Tick runs one reconciliation pass immediately.
func (c *Controller) Tick() error { return c.engine.Tick() }

// Close unmounts, detaches from the host and waits for the polling loop.
func (c *Controller) Close() {
	c.unsubscribe()
	c.Hide()
	c.engine.Wait()
}

func (c *Controller) signal() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// conversationChanged swaps the Local section. Global rows are kept.
func (c *Controller) conversationChanged(ev host.ConversationChanged) {
	c.mu.Lock()
	c.conversation = ev.Current
	if !c.mounted {
		c.mu.Unlock()
		c.signal()
		return
	}
	globalStale := c.engine.Snapshot().Stale(variables.Global)
	c.engine.Stop()
	localFailed := false
	if err := c.rebuild(variables.Local); err != nil {
		c.log.Warn("local render after conversation change failed", zap.Error(err))
		c.dropSection(variables.Local)
		c.sections[variables.Local] = newSection(variables.Local, c.sorts[variables.Local], nil)
		localFailed = true
	}
	c.engine.Start()
	if localFailed {
		c.engine.Invalidate(variables.Local)
	}
	if globalStale {
		c.engine.Invalidate(variables.Global)
	}
	c.mu.Unlock()
	c.log.Debug("conversation changed", zap.String("from", ev.Previous), zap.String("to", ev.Current))
	c.signal()
}

// rebuild recreates scope's rows from its collection. c.mu is held. On a
// read failure the old rows stay.
func (c *Controller) rebuild(scope variables.Scope) error {
	coll, err := c.store.All(scope)
	if err != nil {
		return err
	}
	c.dropSection(scope)
	c.sections[scope] = newSection(scope, c.sorts[scope], coll.Variables())
	return nil
}

func (c *Controller) dropSection(scope variables.Scope) {
	sec := c.sections[scope]
	if sec == nil {
		return
	}
	for _, r := range sec.rows {
		c.stopTimer(r.ID)
	}
	c.sections[scope] = nil
}

// flashRow marks r as just changed until the flash duration passes.
func (c *Controller) flashRow(r *row) {
	c.stopTimer(r.ID)
	r.Flashing = true
	r.flashSeq++
	seq, id := r.flashSeq, r.ID
	c.timers[id] = time.AfterFunc(c.flash, func() {
		c.mu.Lock()
		if _, live := c.timers[id]; !live || r.flashSeq != seq {
			c.mu.Unlock()
			return
		}
		delete(c.timers, id)
		r.Flashing = false
		c.mu.Unlock()
		c.signal()
	})
}

func (c *Controller) stopTimer(id string) {
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Controller) stopTimers() {
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
}

func (c *Controller) resync() {
	if err := c.engine.Resync(); err != nil {
		c.log.Debug("resync failed", zap.Error(err))
	}
}

// target is the engine's view of the controller. Its methods run inside a
// tick, with c.mu already held.
type target struct{ c *Controller }

func (t target) PatchValues(scope variables.Scope, values map[string]string) {
	c := t.c
	sec := c.sections[scope]
	if !c.mounted || sec == nil {
		return
	}
	changed := false
	for key, value := range values {
		r, ok := sec.byKey[key]
		if !ok || r.Value == value {
			continue
		}
		r.Value = value
		c.flashRow(r)
		changed = true
	}
	if changed {
		c.signal()
	}
}

func (t target) RebuildScope(scope variables.Scope) error {
	c := t.c
	if !c.mounted {
		return nil
	}
	if err := c.rebuild(scope); err != nil {
		return err
	}
	c.signal()
	return nil
}
