package cognitive

import (
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/scheduler"
)

// RewardConfig bounds and shapes how raw reward signals feed into agent health.
type RewardConfig struct {
	MinReward        float64
	MaxReward        float64
	DecayFactor      float64
	LearningRateBase float64
}

// DefaultRewardConfig mirrors the source's defaults: rewards clamp to [-1, 1], health decays by
// 1% per tick absent reinforcement, and an agent's learning rate starts at the base rate.
var DefaultRewardConfig = RewardConfig{
	MinReward:        -1,
	MaxReward:        1,
	DecayFactor:      0.99,
	LearningRateBase: 1,
}

// RewardEngine applies clamped reward signals to registered agents' health and, once per tick,
// decays every registered agent's health toward baseline absent new reinforcement.
type RewardEngine struct {
	cfg RewardConfig

	agents map[uint32]*scheduler.Agent

	log *log.Logger
}

// NewRewardEngine creates a RewardEngine with the given configuration.
func NewRewardEngine(cfg RewardConfig, opts ...RewardOption) *RewardEngine {
	r := &RewardEngine{
		cfg:    cfg,
		agents: make(map[uint32]*scheduler.Agent),
		log:    log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RewardOption configures a RewardEngine at construction.
type RewardOption func(*RewardEngine)

// WithRewardLogger overrides the reward engine's logger.
func WithRewardLogger(l *log.Logger) RewardOption {
	return func(r *RewardEngine) { r.log = l }
}

// Track registers an agent so its health is included in per-tick Decay, whether or not it is ever
// the direct target of ApplyReward.
func (r *RewardEngine) Track(a *scheduler.Agent) {
	r.agents[a.ID] = a
}

// Untrack removes an agent from per-tick decay (it remains TERMINATED/removed in the scheduler).
func (r *RewardEngine) Untrack(id uint32) {
	delete(r.agents, id)
}

// ApplyReward clamps raw to [MinReward, MaxReward], scales it by the agent's learning rate, adds
// it to the agent's health, clamps health to [0, 100], and marks the agent Terminated if health
// reaches zero.
func (r *RewardEngine) ApplyReward(a *scheduler.Agent, raw float64) {
	clamped := clamp(raw, r.cfg.MinReward, r.cfg.MaxReward)

	if a.LearningRate == 0 {
		a.LearningRate = r.cfg.LearningRateBase
	}

	a.Health = clamp(a.Health+clamped*a.LearningRate, 0, 100)

	if a.Health <= 0 {
		a.State = scheduler.Terminated
	}

	r.log.Debug("reward applied", "agent", a.ID, "raw", raw, "health", a.Health)
}

// Decay applies one tick's health decay to every tracked agent, regardless of which agent(s) ran
// that tick — the source's reward engine decays the whole population per tick, not just the agent
// that just executed.
func (r *RewardEngine) Decay() {
	for _, a := range r.agents {
		if a.State == scheduler.Terminated {
			continue
		}

		a.Health = clamp(a.Health*r.cfg.DecayFactor, 0, 100)

		if a.Health <= 0 {
			a.State = scheduler.Terminated
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
