package catalog

import "github.com/go-faster/errors"

// Platform is the console a game runs on. The set is closed; anything else
// is rejected at the boundary.
type Platform string

const (
	PlatformPlayStation    Platform = "playstation"
	PlatformXbox           Platform = "xbox"
	PlatformNintendoSwitch Platform = "nintendo_switch"
)

var platforms = map[Platform]struct{}{
	PlatformPlayStation:    {},
	PlatformXbox:           {},
	PlatformNintendoSwitch: {},
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	_, ok := platforms[p]
	return ok
}

func (p Platform) String() string { return string(p) }

// ParsePlatform converts a wire value into a Platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.Valid() {
		return "", errors.Errorf("unknown platform %q", s)
	}
	return p, nil
}
