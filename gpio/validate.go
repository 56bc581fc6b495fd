package gpio

import "fmt"

// Validation error codes.
const (
	CodeDuplicatePin    = "duplicate_pin"
	CodeReservedPin     = "reserved_pin"
	CodeInvalidPin      = "invalid_pin"
	CodeUnknownPlatform = "unknown_platform"
)

// SwitchPins names the role-bearing pins of one switch, in the order they
// were declared by the caller.
type SwitchPins struct {
	Name      string `json:"name,omitempty"`
	GPIO      int    `json:"gpio"`
	ManualPin *int   `json:"manual_pin,omitempty"`
}

// MotionPins names the motion-sensor input of a board, if configured.
type MotionPins struct {
	Enabled bool `json:"enabled"`
	Pin     int  `json:"pin"`
}

// ValidationError is one hard configuration conflict.
type ValidationError struct {
	Code    string `json:"code"`
	Pin     int    `json:"pin"`
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// ValidationWarning flags a problematic but usable pin, together with
// platform-appropriate alternatives for the same role.
type ValidationWarning struct {
	Pin          int    `json:"pin"`
	Role         Role   `json:"role"`
	Message      string `json:"message"`
	Alternatives []int  `json:"alternatives"`
}

// Result is the outcome of validating a full device configuration.
type Result struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors"`
	Warnings []ValidationWarning `json:"warnings"`
}

// ValidateDeviceConfig checks every role-bearing pin of a device
// configuration in declaration order: each switch's primary pin, then its
// optional manual-override pin, and the motion-sensor pin last. Pins reused
// across two roles, reserved pins and out-of-range pins are errors;
// problematic pins are warnings carrying alternative pins for the role.
func ValidateDeviceConfig(switches []SwitchPins, motion *MotionPins, platform string) Result {
	result := Result{
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	if !IsSupportedPlatform(platform) {
		result.Errors = append(result.Errors, ValidationError{
			Code:    CodeUnknownPlatform,
			Message: fmt.Sprintf("unknown platform %q, supported: %v", platform, Platforms()),
		})
		return result
	}

	used := map[int]Role{}

	checkPin := func(pin int, role Role, owner string) {
		if prevRole, ok := used[pin]; ok {
			result.Errors = append(result.Errors, ValidationError{
				Code: CodeDuplicatePin,
				Pin:  pin,
				Role: role,
				Message: fmt.Sprintf("%s: GPIO %d already used as %s pin",
					owner, pin, prevRole),
			})
			return
		}
		used[pin] = role

		status := Classify(pin, true, platform)
		switch status.Category {
		case CategoryInvalid:
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeInvalidPin,
				Pin:     pin,
				Role:    role,
				Message: fmt.Sprintf("%s: %s", owner, status.Reason),
			})
		case CategoryReserved:
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeReservedPin,
				Pin:     pin,
				Role:    role,
				Message: fmt.Sprintf("%s: %s", owner, status.Reason),
			})
		case CategoryProblematic:
			result.Warnings = append(result.Warnings, ValidationWarning{
				Pin:          pin,
				Role:         role,
				Message:      fmt.Sprintf("%s: %s", owner, status.Reason),
				Alternatives: SafeAlternatives(role, platform),
			})
		}
	}

	for i, sw := range switches {
		owner := sw.Name
		if owner == "" {
			owner = fmt.Sprintf("switch %d", i+1)
		}
		checkPin(sw.GPIO, RoleRelay, owner)
		if sw.ManualPin != nil {
			checkPin(*sw.ManualPin, RoleManual, owner)
		}
	}
	if motion != nil && motion.Enabled {
		checkPin(motion.Pin, RoleMotion, "motion sensor")
	}

	result.Valid = len(result.Errors) == 0
	return result
}
