// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assess

import "strings"

// DeviceClass is a device classification tier used to pick an assessment
// strategy: the higher the class, the more conservative the strategy.
type DeviceClass string

const (
	DeviceClassI   DeviceClass = "I"   // low risk
	DeviceClassII  DeviceClass = "II"  // medium risk
	DeviceClassIII DeviceClass = "III" // high risk
)

// ParseDeviceClass parses a string to DeviceClass, accepting roman or
// arabic numerals in any case. Unknown input parses to DeviceClassI, which
// resolves to the Standard strategy downstream.
func ParseDeviceClass(s string) DeviceClass {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "I", "1":
		return DeviceClassI
	case "II", "2":
		return DeviceClassII
	case "III", "3":
		return DeviceClassIII
	default:
		return DeviceClassI
	}
}

// ForName resolves a strategy from its stable identifier. Unrecognized or
// empty names resolve to Standard rather than failing, so assessment stays
// available; callers that care can pre-check with KnownName and log the
// fallback.
func ForName(name string) Strategy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyWeighted:
		return NewWeighted()
	case StrategySafetyMargin:
		return NewSafetyMargin()
	default:
		return NewStandard()
	}
}

// ForDeviceClass resolves a strategy from a device classification tier:
// Class I -> Standard, Class II -> Weighted-Conservative,
// Class III -> Safety-Margin. Unknown tiers resolve to Standard.
func ForDeviceClass(class DeviceClass) Strategy {
	switch class {
	case DeviceClassII:
		return NewWeighted()
	case DeviceClassIII:
		return NewSafetyMargin()
	default:
		return NewStandard()
	}
}

// KnownName reports whether name resolves to a strategy without falling
// back to the default.
func KnownName(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyStandard, StrategyWeighted, StrategySafetyMargin:
		return true
	default:
		return false
	}
}

// Names returns the stable identifiers of all shipped strategies, in
// resolution-documentation order.
func Names() []string {
	return []string{StrategyStandard, StrategyWeighted, StrategySafetyMargin}
}
