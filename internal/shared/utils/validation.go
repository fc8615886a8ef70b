package utils

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Request limits
const (
	MaxPlacementLength = 128
	MaxIDLength        = 256
	MaxPropertyCount   = 64
	MaxPropertyKey     = 128
	MaxVariableKey     = 128
)

var (
	// PlacementPattern allows alphanumeric, hyphens, underscores, dots and slashes
	PlacementPattern = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)
)

// ValidatePlacement checks a placement name before it is put in a URL path
func ValidatePlacement(name string) error {
	if name == "" {
		return fmt.Errorf("placement name is required")
	}
	if len(name) > MaxPlacementLength {
		return fmt.Errorf("placement name exceeds %d characters", MaxPlacementLength)
	}
	if !PlacementPattern.MatchString(name) {
		return fmt.Errorf("placement name %q contains invalid characters", name)
	}
	return nil
}

// ValidateIdentity requires at least one of userID/deviceID
func ValidateIdentity(userID, deviceID string) error {
	if userID == "" && deviceID == "" {
		return fmt.Errorf("one of user id or device id is required")
	}
	if len(userID) > MaxIDLength || len(deviceID) > MaxIDLength {
		return fmt.Errorf("identity exceeds %d characters", MaxIDLength)
	}
	return nil
}

// ValidatePropertyKeys checks the size of a targeting property bag
func ValidatePropertyKeys(keys []string) error {
	if len(keys) > MaxPropertyCount {
		return fmt.Errorf("too many properties: %d (max %d)", len(keys), MaxPropertyCount)
	}
	for _, k := range keys {
		if k == "" {
			return fmt.Errorf("property key cannot be empty")
		}
		if utf8.RuneCountInString(k) > MaxPropertyKey {
			return fmt.Errorf("property key %q exceeds %d characters", k, MaxPropertyKey)
		}
	}
	return nil
}
