package client

import (
	"fmt"
	"strings"
)

// ActivationMode decides when the loot list is shown.
type ActivationMode uint8

const (
	ActivateAlways ActivationMode = iota
	ActivateLookDown
	ActivateStandStill
	ActivateKeyHold
	ActivateKeyToggle
)

func ParseActivationMode(s string) (ActivationMode, error) {
	switch strings.ToLower(s) {
	case "", "always":
		return ActivateAlways, nil
	case "look_down":
		return ActivateLookDown, nil
	case "stand_still":
		return ActivateStandStill, nil
	case "key_hold":
		return ActivateKeyHold, nil
	case "key_toggle":
		return ActivateKeyToggle, nil
	}
	return 0, fmt.Errorf("unknown activation mode %q", s)
}

// ScrollMode decides when the wheel scrolls the list instead of the host's
// own use of it.
type ScrollMode uint8

const (
	ScrollAlways ScrollMode = iota
	ScrollKeyBind
	ScrollStandStill
)

func ParseScrollMode(s string) (ScrollMode, error) {
	switch strings.ToLower(s) {
	case "", "always":
		return ScrollAlways, nil
	case "key_bind":
		return ScrollKeyBind, nil
	case "stand_still":
		return ScrollStandStill, nil
	}
	return 0, fmt.Errorf("unknown scroll mode %q", s)
}

// standStillEpsSq is the squared horizontal movement per step below which
// the player counts as standing still.
const standStillEpsSq = 0.0001
