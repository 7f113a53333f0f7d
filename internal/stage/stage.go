package stage

import "fmt"

// Stage identifies one discrete unit of provisioning work.
type Stage string

const (
	NameComputer             Stage = "name-computer"
	HardenRemoteAccess       Stage = "harden-remote-access"
	ApplyBaselineSettings    Stage = "baseline-settings"
	RegisterInventory        Stage = "register-inventory"
	PersonalizeAdminAccounts Stage = "personalize-admins"
	BindDirectory            Stage = "bind-directory"
	InstallManagementAgent   Stage = "install-agent"
	UnlockPreferencePanes    Stage = "unlock-pref-panes"
)

// Order is the fixed total order chained mode walks through. It never changes
// at runtime; later stages depend on state mutated by earlier ones (directory
// binding assumes the host has already been named).
var Order = []Stage{
	NameComputer,
	HardenRemoteAccess,
	ApplyBaselineSettings,
	RegisterInventory,
	PersonalizeAdminAccounts,
	BindDirectory,
	InstallManagementAgent,
	UnlockPreferencePanes,
}

// Known reports whether s is part of the fixed order.
func Known(s Stage) bool {
	for _, o := range Order {
		if o == s {
			return true
		}
	}
	return false
}

// ParseStage validates a caller-supplied stage identifier.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !Known(s) {
		return "", fmt.Errorf("unknown stage %q (valid: %v)", raw, Order)
	}
	return s, nil
}

// From returns the stages from start to the end of the fixed order, inclusive.
// Returns nil if start is not a known stage.
func From(start Stage) []Stage {
	for i, o := range Order {
		if o == start {
			return Order[i:]
		}
	}
	return nil
}

// Mode selects how the pipeline advances after each stage. It is decided once
// per run and never changes mid-run.
type Mode string

const (
	// ModeChained advances automatically through the fixed order.
	ModeChained Mode = "chained"
	// ModeSingle executes exactly one stage, then terminates.
	ModeSingle Mode = "single"
)

// ParseMode validates a caller-supplied mode.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeChained, ModeSingle:
		return Mode(raw), nil
	}
	return "", fmt.Errorf("unknown mode %q (valid: %s, %s)", raw, ModeChained, ModeSingle)
}

// Decision is the resolver's answer to "what runs after the current stage".
type Decision struct {
	Next      Stage
	Terminate bool
	// ConfigError flags a current stage that is not part of the fixed order.
	// The resolver fails closed rather than inventing a successor.
	ConfigError bool
}

// Resolve returns the next-stage decision for the just-executed stage. It is a
// pure function: the outcome of the stage plays no part, because the pipeline
// makes maximum forward progress even under partial failure and leaves
// remediation to the operator reviewing the run log.
func Resolve(current Stage, mode Mode) Decision {
	idx := -1
	for i, o := range Order {
		if o == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Decision{Terminate: true, ConfigError: true}
	}

	if mode == ModeSingle {
		return Decision{Terminate: true}
	}
	if idx+1 >= len(Order) {
		return Decision{Terminate: true}
	}
	return Decision{Next: Order[idx+1]}
}
