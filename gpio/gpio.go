/*Package gpio classifies GPIO pin numbers of relay-controller boards and
validates complete pin configurations for safety.

The package is pure and stateless. Boards that are wired to a reserved pin
can fail to boot, so reserved pins are always rejected; problematic pins
(boot-strapping pins, UART pins, input-only pins) are allowed only when the
caller explicitly opts in, and are still flagged.
*/
package gpio

import "fmt"

// Category is the safety classification of one pin.
type Category string

// Pin safety categories.
const (
	CategorySafe        Category = "safe"
	CategoryProblematic Category = "problematic"
	CategoryReserved    Category = "reserved"
	CategoryInvalid     Category = "invalid"
)

// Role is the function a pin performs on a board.
type Role string

// Pin roles.
const (
	RoleRelay  Role = "relay"
	RoleManual Role = "manual"
	RoleMotion Role = "motion"
)

// PinStatus is the classification result for one pin.
type PinStatus struct {
	Pin              int      `json:"pin"`
	Category         Category `json:"category"`
	Reason           string   `json:"reason"`
	RecommendedRoles []Role   `json:"recommended_roles,omitempty"`
}

type pinNote struct {
	reason    string
	inputOnly bool
}

// platformTable is the static pin table of one board platform.
type platformTable struct {
	maxPin      int
	missing     map[int]bool
	reserved    map[int]string
	problematic map[int]pinNote
	safeOutputs []int
	safeInputs  []int
}

var platforms = map[string]*platformTable{
	"esp32": {
		maxPin: 39,
		// these numbers are skipped in the chip's GPIO matrix
		missing: map[int]bool{20: true, 24: true, 28: true, 29: true, 30: true, 31: true, 37: true, 38: true},
		reserved: map[int]string{
			6:  "connected to the integrated SPI flash",
			7:  "connected to the integrated SPI flash",
			8:  "connected to the integrated SPI flash",
			9:  "connected to the integrated SPI flash",
			10: "connected to the integrated SPI flash",
			11: "connected to the integrated SPI flash",
		},
		problematic: map[int]pinNote{
			0:  {reason: "boot-strapping pin, must be high at boot"},
			1:  {reason: "UART0 TX, used for flashing and serial logs"},
			2:  {reason: "boot-strapping pin, connected to the on-board LED"},
			3:  {reason: "UART0 RX, used for flashing and serial logs"},
			5:  {reason: "boot-strapping pin, outputs PWM signal at boot"},
			12: {reason: "boot-strapping pin, boot fails if pulled high"},
			15: {reason: "boot-strapping pin, outputs PWM signal at boot"},
			34: {reason: "input only, cannot drive a relay", inputOnly: true},
			35: {reason: "input only, cannot drive a relay", inputOnly: true},
			36: {reason: "input only, cannot drive a relay", inputOnly: true},
			39: {reason: "input only, cannot drive a relay", inputOnly: true},
		},
		safeOutputs: []int{4, 13, 14, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33},
		safeInputs:  []int{4, 13, 14, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33, 34, 35, 36, 39},
	},
	"esp8266": {
		maxPin:  16,
		missing: map[int]bool{},
		reserved: map[int]string{
			6:  "connected to the integrated SPI flash",
			7:  "connected to the integrated SPI flash",
			8:  "connected to the integrated SPI flash",
			9:  "connected to the integrated SPI flash",
			10: "connected to the integrated SPI flash",
			11: "connected to the integrated SPI flash",
		},
		problematic: map[int]pinNote{
			0:  {reason: "boot-strapping pin, must be high at boot"},
			1:  {reason: "UART0 TX, used for flashing and serial logs"},
			2:  {reason: "boot-strapping pin, must be high at boot"},
			3:  {reason: "UART0 RX, used for flashing and serial logs"},
			15: {reason: "boot-strapping pin, must be low at boot"},
			16: {reason: "deep-sleep wake pin, no interrupt support"},
		},
		safeOutputs: []int{4, 5, 12, 13, 14},
		safeInputs:  []int{4, 5, 12, 13, 14},
	},
}

// DefaultPlatform is assumed when a device record carries no platform tag.
const DefaultPlatform = "esp32"

// Platforms returns the names of all supported board platforms.
func Platforms() []string {
	return []string{"esp32", "esp8266"}
}

// IsSupportedPlatform returns true if the given platform has a pin table.
func IsSupportedPlatform(platform string) bool {
	_, ok := platforms[platform]
	return ok
}

// Classify looks up a pin in the platform's static pin table. Reserved pins
// are rejected regardless of allowProblematic; problematic pins are rejected
// unless allowProblematic is true, in which case they are accepted but still
// flagged.
func Classify(pin int, allowProblematic bool, platform string) PinStatus {
	table, ok := platforms[platform]
	if !ok {
		return PinStatus{
			Pin:      pin,
			Category: CategoryInvalid,
			Reason:   fmt.Sprintf("unknown platform %q", platform),
		}
	}

	if pin < 0 || pin > table.maxPin {
		return PinStatus{
			Pin:      pin,
			Category: CategoryInvalid,
			Reason:   fmt.Sprintf("pin out of range, %s has GPIO 0-%d", platform, table.maxPin),
		}
	}
	if table.missing[pin] {
		return PinStatus{
			Pin:      pin,
			Category: CategoryInvalid,
			Reason:   fmt.Sprintf("GPIO %d does not exist on %s", pin, platform),
		}
	}
	if reason, ok := table.reserved[pin]; ok {
		return PinStatus{
			Pin:      pin,
			Category: CategoryReserved,
			Reason:   "reserved: " + reason,
		}
	}
	if note, ok := table.problematic[pin]; ok {
		status := PinStatus{
			Pin:      pin,
			Category: CategoryProblematic,
			Reason:   note.reason,
		}
		if note.inputOnly {
			status.RecommendedRoles = []Role{RoleManual, RoleMotion}
		}
		// the category stays problematic even when accepted, callers
		// decide with Accepted(allowProblematic)
		return status
	}
	return PinStatus{
		Pin:              pin,
		Category:         CategorySafe,
		Reason:           "safe for any role",
		RecommendedRoles: []Role{RoleRelay, RoleManual, RoleMotion},
	}
}

// Accepted returns true if a pin with this status may be used, given the
// caller's tolerance for problematic pins.
func (s PinStatus) Accepted(allowProblematic bool) bool {
	switch s.Category {
	case CategorySafe:
		return true
	case CategoryProblematic:
		return allowProblematic
	default:
		return false
	}
}

// SafeAlternatives returns the platform's safe pins for the given role.
// Input roles may additionally use the platform's input-only pins.
func SafeAlternatives(role Role, platform string) []int {
	table, ok := platforms[platform]
	if !ok {
		return nil
	}
	if role == RoleRelay {
		return append([]int(nil), table.safeOutputs...)
	}
	return append([]int(nil), table.safeInputs...)
}
