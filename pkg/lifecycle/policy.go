package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LapsePolicy decides whether an unaccepted proposal survives the end of the trial.
type LapsePolicy string

const (
	// LapseNever keeps a proposal acceptable indefinitely.
	LapseNever LapsePolicy = "never"
	// LapseOnGrace voids a proposal once the club enters grace.
	LapseOnGrace LapsePolicy = "grace"
	// LapseOnExpiry voids a proposal once the club expires.
	LapseOnExpiry LapsePolicy = "expiry"
)

// Policy carries every tunable of the lifecycle engine.
// Fields load from LIFECYCLE_* environment variables or a YAML file.
type Policy struct {
	TrialLength   time.Duration `env:"LIFECYCLE_TRIAL_LENGTH" envDefault:"336h" yaml:"trial_length"`
	GraceWindow   time.Duration `env:"LIFECYCLE_GRACE_WINDOW" envDefault:"48h" yaml:"grace_window"`
	ExtensionDays int           `env:"LIFECYCLE_EXTENSION_DAYS" envDefault:"15" yaml:"extension_days"`

	// Auto thresholds grant without asking; proposal thresholds ask the admin.
	AutoMinPlayers    int64 `env:"LIFECYCLE_AUTO_MIN_PLAYERS" envDefault:"5" yaml:"auto_min_players"`
	AutoMinMatches    int64 `env:"LIFECYCLE_AUTO_MIN_MATCHES" envDefault:"3" yaml:"auto_min_matches"`
	ProposeMinPlayers int64 `env:"LIFECYCLE_PROPOSE_MIN_PLAYERS" envDefault:"2" yaml:"propose_min_players"`
	ProposeMinMatches int64 `env:"LIFECYCLE_PROPOSE_MIN_MATCHES" envDefault:"1" yaml:"propose_min_matches"`

	// EvaluationWindow is how long before trial end clubs become eligible. Zero means the whole trial.
	EvaluationWindow time.Duration `env:"LIFECYCLE_EVALUATION_WINDOW" envDefault:"72h" yaml:"evaluation_window"`
	ProposalLapse    LapsePolicy   `env:"LIFECYCLE_PROPOSAL_LAPSE" envDefault:"never" yaml:"proposal_lapse"`
	DefaultCycle     PlanCycle     `env:"LIFECYCLE_DEFAULT_CYCLE" envDefault:"monthly" yaml:"default_cycle"`

	// ReopenExpired lets an accepted proposal bring an expired club back to
	// trialing. When off, expired is terminal and accepting there fails.
	ReopenExpired bool `env:"LIFECYCLE_REOPEN_EXPIRED" envDefault:"false" yaml:"reopen_expired"`

	MaxRetries       int `env:"LIFECYCLE_MAX_RETRIES" envDefault:"3" yaml:"max_retries"`
	SweepConcurrency int `env:"LIFECYCLE_SWEEP_CONCURRENCY" envDefault:"8" yaml:"sweep_concurrency"`
	SweepBatchSize   int `env:"LIFECYCLE_SWEEP_BATCH_SIZE" envDefault:"100" yaml:"sweep_batch_size"`
}

// DefaultPolicy mirrors the envDefault tags.
func DefaultPolicy() Policy {
	return Policy{
		TrialLength:       14 * 24 * time.Hour,
		GraceWindow:       48 * time.Hour,
		ExtensionDays:     15,
		AutoMinPlayers:    5,
		AutoMinMatches:    3,
		ProposeMinPlayers: 2,
		ProposeMinMatches: 1,
		EvaluationWindow:  72 * time.Hour,
		ProposalLapse:     LapseNever,
		DefaultCycle:      PlanCycleMonthly,
		MaxRetries:        3,
		SweepConcurrency:  8,
		SweepBatchSize:    100,
	}
}

// Validate reports every invalid field at once.
func (p Policy) Validate() error {
	var errs []error
	if p.TrialLength <= 0 {
		errs = append(errs, errors.New("trial_length must be positive"))
	}
	if p.GraceWindow < 0 {
		errs = append(errs, errors.New("grace_window must not be negative"))
	}
	if p.ExtensionDays <= 0 {
		errs = append(errs, errors.New("extension_days must be positive"))
	}
	if p.ProposeMinPlayers < 1 {
		errs = append(errs, errors.New("propose_min_players must be at least 1"))
	}
	if p.ProposeMinMatches < 0 {
		errs = append(errs, errors.New("propose_min_matches must not be negative"))
	}
	if p.AutoMinPlayers < p.ProposeMinPlayers || p.AutoMinMatches < p.ProposeMinMatches {
		errs = append(errs, errors.New("auto thresholds must not be below proposal thresholds"))
	}
	if p.EvaluationWindow < 0 {
		errs = append(errs, errors.New("evaluation_window must not be negative"))
	}
	switch p.ProposalLapse {
	case LapseNever, LapseOnGrace, LapseOnExpiry:
	default:
		errs = append(errs, fmt.Errorf("unknown proposal_lapse %q", p.ProposalLapse))
	}
	if !p.DefaultCycle.Valid() {
		errs = append(errs, fmt.Errorf("unknown default_cycle %q", p.DefaultCycle))
	}
	if p.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must not be negative"))
	}
	if p.SweepConcurrency <= 0 || p.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("sweep_concurrency and sweep_batch_size must be positive"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidPolicy}, errs...)...)
	}
	return nil
}

// LoadPolicyFile reads a YAML policy. Keys missing from the file keep their defaults.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicy, err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy on top of DefaultPolicy and validates it.
func ParsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicy, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}
