package pipeline

import "git.home.luguber.info/inful/umdbuilder/internal/config"

// Action is what the environment gate decided.
type Action string

const (
	ActionRun    Action = "run"
	ActionSkip   Action = "skip"
	ActionDryRun Action = "dry_run"
)

// Decision is the outcome of the environment gate.
type Decision struct {
	Action Action
	Reason string
}

// Decide evaluates the gate signals. Skip takes precedence over dry-run.
func Decide(o config.Overrides) Decision {
	switch {
	case o.SkipBuild:
		return Decision{Action: ActionSkip, Reason: config.EnvSkipBuild + " environment variable is true, skipping build"}
	case o.DryRun:
		return Decision{Action: ActionDryRun, Reason: config.EnvDryRun + " environment variable is true, only planning build"}
	default:
		return Decision{Action: ActionRun}
	}
}
