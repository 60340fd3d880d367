package client

import (
	"fmt"
	"sync/atomic"

	"github.com/lootgo/server/internal/config"
	"github.com/lootgo/server/internal/loot"
	"github.com/lootgo/server/internal/protocol"
)

// Options configures a Controller.
type Options struct {
	VisibleRows   float64
	TapThreshold  int
	HoldThreshold int
	AutoCooldown  int
	ScanMarginXZ  float64
	ScanMarginY   float64
	Activation    ActivationMode
	LookDownAngle float64
	Scroll        ScrollMode
}

// OptionsFromConfig reads the [pickup] timing and [client] presentation keys.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	act, err := ParseActivationMode(cfg.Client.ActivationMode)
	if err != nil {
		return Options{}, fmt.Errorf("client.activation_mode: %w", err)
	}
	scroll, err := ParseScrollMode(cfg.Client.ScrollMode)
	if err != nil {
		return Options{}, fmt.Errorf("client.scroll_mode: %w", err)
	}
	return Options{
		VisibleRows:   cfg.Client.VisibleRows,
		TapThreshold:  cfg.Pickup.TapThresholdTicks,
		HoldThreshold: cfg.Pickup.HoldThresholdTicks,
		AutoCooldown:  cfg.Pickup.AutoCooldownTicks,
		ScanMarginXZ:  cfg.Pickup.ScanMarginXZ,
		ScanMarginY:   cfg.Pickup.ScanMarginY,
		Activation:    act,
		LookDownAngle: cfg.Client.LookDownAngle,
		Scroll:        scroll,
	}, nil
}

// Input is the raw player intent sampled for one step. Toggle fields are
// one-shot clicks; the rest are held states.
type Input struct {
	PickupDown     bool
	ScrollUpDown   bool
	ScrollDownDown bool
	Wheel          float64 // notches since the last step, positive scrolls up
	ScrollModifier bool
	Sneak          bool
	ShowListDown   bool
	Pitch          float64 // degrees, positive looks down

	ToggleFilter bool
	ToggleAuto   bool
	ToggleList   bool
}

// Frame is the published result of one step. It is never modified after
// publication.
type Frame struct {
	Step       uint64
	Groups     []loot.VisualGroup
	Selected   int
	Scroll     int
	Progress   float64
	Visible    bool // whether a renderer should show the list
	Intercept  bool // whether the host should ignore its own use of the pickup key
	FilterMode loot.FilterMode
	AutoMode   bool
	Requests   []protocol.PickupRequest
	Notices    []string
}

// Controller runs the client pipeline once per step. Step must be called
// from one goroutine; Snapshot may be called from any.
type Controller struct {
	opts Options
	agg  *loot.Aggregator

	view     *Viewport
	pickup   *Disambiguator
	auto     *AutoScheduler
	upRep    KeyRepeat
	downRep  KeyRepeat
	filter   loot.FilterMode
	autoMode bool
	listOn   bool // KEY_TOGGLE state

	lastPos loot.Vec3
	hasLast bool
	step    uint64

	frame atomic.Pointer[Frame]
}

func NewController(opts Options, agg *loot.Aggregator) *Controller {
	if agg == nil {
		agg = loot.NewAggregator(opts.ScanMarginXZ, opts.ScanMarginY)
	}
	c := &Controller{
		opts:   opts,
		agg:    agg,
		view:   NewViewport(opts.VisibleRows),
		pickup: NewDisambiguator(opts.TapThreshold, opts.HoldThreshold),
		auto:   NewAutoScheduler(opts.AutoCooldown),
	}
	c.frame.Store(&Frame{})
	return c
}

// Snapshot returns the last published frame.
func (c *Controller) Snapshot() *Frame {
	return c.frame.Load()
}

func (c *Controller) SetFilterMode(m loot.FilterMode) { c.filter = m }

func (c *Controller) SetAutoMode(on bool) {
	c.autoMode = on
	c.auto.Reset()
}

// Step advances the pipeline by one tick and publishes the resulting frame.
func (c *Controller) Step(in Input, sc loot.SessionContext) *Frame {
	c.step++
	f := &Frame{Step: c.step}

	pos := sc.PlayerPos()
	still := true
	if c.hasLast {
		dx, dz := pos.X-c.lastPos.X, pos.Z-c.lastPos.Z
		still = dx*dx+dz*dz < standStillEpsSq
	}
	c.lastPos, c.hasLast = pos, true

	if in.ToggleFilter {
		c.filter = c.filter.Next()
		if c.filter == loot.FilterRareOnly {
			f.Notices = append(f.Notices, protocol.NoticeFilterRare)
		} else {
			f.Notices = append(f.Notices, protocol.NoticeFilterAll)
		}
	}
	if in.ToggleAuto {
		c.SetAutoMode(!c.autoMode)
		if c.autoMode {
			f.Notices = append(f.Notices, protocol.NoticeAutoOn)
		} else {
			f.Notices = append(f.Notices, protocol.NoticeAutoOff)
		}
	}
	if in.ToggleList && c.opts.Activation == ActivateKeyToggle {
		c.listOn = !c.listOn
	}

	groups := c.agg.Aggregate(sc, c.filter)
	n := len(groups)

	if c.auto.Tick(c.autoMode, n > 0) {
		if ids := loot.AllIDs(groups); len(ids) > 0 {
			f.Requests = append(f.Requests, protocol.PickupRequest{TargetIDs: ids, IsAuto: true})
		}
	}

	c.view.Reconcile(n)
	if in.Wheel != 0 && c.wheelAllowed(in, n, still) {
		if in.Wheel > 0 {
			c.view.Move(-1, n)
		} else {
			c.view.Move(1, n)
		}
	}
	up, down := c.upRep.Tick(in.ScrollUpDown), c.downRep.Tick(in.ScrollDownDown)
	if n > 1 {
		switch {
		case up:
			c.view.Move(-1, n)
		case down:
			c.view.Move(1, n)
		}
	}

	switch c.pickup.Tick(in.PickupDown, n > 0) {
	case ActionSingle:
		if c.view.Selected < n {
			if ids := groups[c.view.Selected].NearestIDs(pos); len(ids) > 0 {
				f.Requests = append(f.Requests, protocol.PickupRequest{TargetIDs: ids, LimitToMaxStack: true})
			}
		}
	case ActionBatch:
		if ids := loot.AllIDs(groups); len(ids) > 0 {
			f.Requests = append(f.Requests, protocol.PickupRequest{TargetIDs: ids})
		}
	}

	f.Groups = groups
	f.Selected = c.view.Selected
	f.Scroll = c.view.Scroll
	if n > 0 {
		f.Progress = c.pickup.Progress()
	}
	f.Visible = n > 0 && !c.autoMode && c.activated(in, still)
	f.Intercept = n > 0 || c.pickup.Interacting()
	f.FilterMode = c.filter
	f.AutoMode = c.autoMode

	c.frame.Store(f)
	return f
}

func (c *Controller) wheelAllowed(in Input, n int, still bool) bool {
	if n <= 1 || in.Sneak {
		return false
	}
	switch c.opts.Scroll {
	case ScrollKeyBind:
		return in.ScrollModifier
	case ScrollStandStill:
		return still
	}
	return true
}

func (c *Controller) activated(in Input, still bool) bool {
	switch c.opts.Activation {
	case ActivateLookDown:
		return in.Pitch > c.opts.LookDownAngle
	case ActivateStandStill:
		return still
	case ActivateKeyHold:
		return in.ShowListDown
	case ActivateKeyToggle:
		return c.listOn
	}
	return true
}
