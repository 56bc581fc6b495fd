package gpio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySafePin(t *testing.T) {
	status := Classify(16, false, "esp32")
	assert.Equal(t, CategorySafe, status.Category)
	assert.True(t, status.Accepted(false))
	assert.Equal(t, []Role{RoleRelay, RoleManual, RoleMotion}, status.RecommendedRoles)
}

func TestClassifyReservedPinIsNeverAccepted(t *testing.T) {
	for _, platform := range Platforms() {
		for pin := 6; pin <= 11; pin++ {
			status := Classify(pin, true, platform)
			assert.Equal(t, CategoryReserved, status.Category, "%s pin %d", platform, pin)
			assert.False(t, status.Accepted(true), "%s pin %d must be rejected even when problematic pins are allowed", platform, pin)
			assert.Contains(t, status.Reason, "reserved")
		}
	}
}

func TestClassifyProblematicPinNeedsOptIn(t *testing.T) {
	status := Classify(12, false, "esp32")
	assert.Equal(t, CategoryProblematic, status.Category)
	assert.False(t, status.Accepted(false))
	assert.True(t, status.Accepted(true))
	assert.NotEmpty(t, status.Reason)
}

func TestClassifyInputOnlyPinRecommendsInputRoles(t *testing.T) {
	for _, pin := range []int{34, 35, 36, 39} {
		status := Classify(pin, true, "esp32")
		assert.Equal(t, CategoryProblematic, status.Category, "pin %d", pin)
		assert.Equal(t, []Role{RoleManual, RoleMotion}, status.RecommendedRoles, "pin %d", pin)
	}
}

func TestClassifyOutOfRangePin(t *testing.T) {
	assert.Equal(t, CategoryInvalid, Classify(-1, true, "esp32").Category)
	assert.Equal(t, CategoryInvalid, Classify(40, true, "esp32").Category)
	assert.Equal(t, CategoryInvalid, Classify(17, true, "esp8266").Category)
}

func TestClassifyMissingEsp32Pins(t *testing.T) {
	for _, pin := range []int{20, 24, 28, 29, 30, 31, 37, 38} {
		status := Classify(pin, true, "esp32")
		assert.Equal(t, CategoryInvalid, status.Category, "pin %d", pin)
	}
}

func TestClassifyUnknownPlatform(t *testing.T) {
	status := Classify(4, false, "rp2040")
	assert.Equal(t, CategoryInvalid, status.Category)
	assert.Contains(t, status.Reason, "rp2040")
}

func TestEsp8266DeepSleepPinIsProblematic(t *testing.T) {
	status := Classify(16, false, "esp8266")
	assert.Equal(t, CategoryProblematic, status.Category)
}

func TestSafeAlternativesByRole(t *testing.T) {
	outputs := SafeAlternatives(RoleRelay, "esp32")
	assert.NotContains(t, outputs, 34, "input-only pins cannot drive a relay")

	inputs := SafeAlternatives(RoleMotion, "esp32")
	assert.Contains(t, inputs, 34)
	assert.Contains(t, inputs, 16)

	assert.Nil(t, SafeAlternatives(RoleRelay, "rp2040"))
}

func TestClassifyIsPure(t *testing.T) {
	first := Classify(34, true, "esp32")
	first.RecommendedRoles[0] = RoleRelay
	second := Classify(34, true, "esp32")
	assert.Equal(t, []Role{RoleManual, RoleMotion}, second.RecommendedRoles)

	alternatives := SafeAlternatives(RoleRelay, "esp32")
	alternatives[0] = 99
	assert.NotContains(t, SafeAlternatives(RoleRelay, "esp32"), 99)
}

func TestPlatformSupport(t *testing.T) {
	assert.True(t, IsSupportedPlatform("esp32"))
	assert.True(t, IsSupportedPlatform("esp8266"))
	assert.False(t, IsSupportedPlatform("arduino"))
	assert.Equal(t, DefaultPlatform, "esp32")
}
