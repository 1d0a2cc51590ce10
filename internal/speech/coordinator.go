package speech

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/resilience"
)

// State is the coordinator's playback state.
type State int

const (
	Idle State = iota
	Requesting
	PlayingHosted
	PlayingFallback
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case PlayingHosted:
		return "playing_hosted"
	case PlayingFallback:
		return "playing_fallback"
	default:
		return "unknown"
	}
}

// Options configures a Coordinator. Hosted and Local are both optional.
type Options struct {
	Hosted   HostedSynthesizer
	Player   Player
	Local    LocalSynthesizer
	Settings VoiceSettings
	Breaker  *resilience.Breaker

	PreferredVoices []string
	ProbeTimeout    time.Duration
	Enabled         bool

	// OnStateChange runs with the coordinator lock held and must not call
	// back into the Coordinator.
	OnStateChange func(from, to State)
}

// utterance is the single active playback session.
type utterance struct {
	cancel   context.CancelFunc
	playback Playback
	stopped  bool
}

// Coordinator owns the one active playback. Every Speak first stops the
// previous utterance, so at most one playback is registered at any time.
type Coordinator struct {
	hosted *hostedTier
	local  *localTier

	probeTimeout time.Duration
	probeOnce    sync.Once
	hostedOK     bool

	mu       sync.Mutex
	enabled  bool
	closed   bool
	state    State
	cur      *utterance
	onChange func(from, to State)

	wg sync.WaitGroup
}

// NewCoordinator builds a coordinator from opts.
func NewCoordinator(opts Options) *Coordinator {
	c := &Coordinator{
		enabled:      opts.Enabled,
		probeTimeout: opts.ProbeTimeout,
		onChange:     opts.OnStateChange,
	}
	if c.probeTimeout <= 0 {
		c.probeTimeout = 5 * time.Second
	}
	if opts.Hosted != nil && opts.Player != nil {
		breaker := opts.Breaker
		if breaker == nil {
			breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "hosted-speech"})
		}
		c.hosted = &hostedTier{
			synth:    opts.Hosted,
			player:   opts.Player,
			settings: opts.Settings,
			breaker:  breaker,
		}
	}
	if opts.Local != nil {
		preferred := opts.PreferredVoices
		if len(preferred) == 0 {
			preferred = DefaultPreferredVoices
		}
		c.local = &localTier{synth: opts.Local, preferred: preferred}
	}
	return c
}

// Probe checks hosted availability once per coordinator lifetime; later
// calls return the cached answer.
func (c *Coordinator) Probe(ctx context.Context) bool {
	c.probeOnce.Do(func() {
		if c.hosted == nil {
			return
		}
		pctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
		ok, err := c.hosted.synth.Available(pctx)
		if err != nil {
			zap.L().Warn("speech: hosted availability probe failed", zap.Error(err))
		}
		c.mu.Lock()
		c.hostedOK = ok && err == nil
		c.mu.Unlock()
		zap.L().Info("speech: hosted availability", zap.Bool("available", ok && err == nil))
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hostedOK
}

// Speak sanitizes text and starts speaking it in the background, stopping
// whatever was playing. It returns false when speech is off or
// no tier can speak.
func (c *Coordinator) Speak(ctx context.Context, text string) bool {
	clean := Sanitize(text)
	if clean == "" {
		return false
	}

	c.mu.Lock()
	if !c.enabled || c.closed {
		c.mu.Unlock()
		return false
	}
	tiers := c.tiersLocked()
	if len(tiers) == 0 {
		c.mu.Unlock()
		return false
	}
	c.stopLocked()

	uctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	u := &utterance{cancel: cancel}
	c.cur = u
	c.wg.Add(1)
	c.mu.Unlock()

	go c.run(uctx, u, tiers, clean)
	return true
}

func (c *Coordinator) tiersLocked() []Tier {
	var tiers []Tier
	if c.hosted != nil && c.hostedOK {
		tiers = append(tiers, c.hosted)
	}
	if c.local != nil {
		tiers = append(tiers, c.local)
	}
	return tiers
}

func (c *Coordinator) run(ctx context.Context, u *utterance, tiers []Tier, text string) {
	defer c.wg.Done()
	defer u.cancel()

	for _, tier := range tiers {
		if tier.Playing() == PlayingHosted && !c.setStateFor(u, Requesting) {
			return
		}

		pb, err := tier.Start(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Debug("speech: tier failed, trying next", zap.String("tier", tier.Name()), zap.Error(err))
			continue
		}
		if !c.attach(u, pb, tier.Playing()) {
			return
		}

		select {
		case <-pb.Done():
		case <-ctx.Done():
			return
		}

		if err := pb.Err(); err != nil {
			zap.L().Debug("speech: playback failed, trying next", zap.String("tier", tier.Name()), zap.Error(err))
			c.detach(u)
			continue
		}
		break
	}
	c.finish(u)
}

// setStateFor sets the state if u is still the active utterance.
func (c *Coordinator) setStateFor(u *utterance, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != u {
		return false
	}
	c.setStateLocked(s)
	return true
}

// attach registers pb for u. A playback that lost the race with Stop or a
// newer Speak is stopped immediately.
func (c *Coordinator) attach(u *utterance, pb Playback, playing State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != u || u.stopped {
		_ = pb.Stop()
		return false
	}
	u.playback = pb
	c.setStateLocked(playing)
	return true
}

func (c *Coordinator) detach(u *utterance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == u {
		u.playback = nil
	}
}

// finish clears u after it ended on its own; the playback is not stopped.
func (c *Coordinator) finish(u *utterance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == u {
		c.cur = nil
		c.setStateLocked(Idle)
	}
}

// Stop cancels the active utterance. It is safe to call when idle.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Coordinator) stopLocked() {
	u := c.cur
	if u == nil {
		return
	}
	c.cur = nil
	u.stopped = true
	u.cancel()
	if u.playback != nil {
		if err := u.playback.Stop(); err != nil {
			zap.L().Debug("speech: stop playback", zap.Error(err))
		}
	}
	c.setStateLocked(Idle)
}

func (c *Coordinator) setStateLocked(s State) {
	if c.state == s {
		return
	}
	from := c.state
	c.state = s
	if c.onChange != nil {
		c.onChange(from, s)
	}
}

// SetEnabled toggles speech. Disabling stops the active utterance.
func (c *Coordinator) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if !enabled {
		c.stopLocked()
	}
}

// Enabled reports the user preference.
func (c *Coordinator) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Speaking reports whether an utterance is being requested or played.
func (c *Coordinator) Speaking() bool {
	return c.State() != Idle
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until every background utterance has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close stops playback, rejects further Speak calls and waits for the
// background work to drain.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopLocked()
	c.mu.Unlock()
	c.wg.Wait()
}
