// Package display holds named output profiles for the screens we encode
// for. A profile bundles the width band and the scaling limits that suit
// one physical display; everything else about the pipeline is shared.
package display

import (
	"fmt"
	"sort"

	"github.com/tinyscreen/tinytv/internal/config"
)

// Profile describes one target display.
type Profile interface {
	// Name returns the profile name used on the command line.
	Name() string

	// Target returns the width band and fixed height for this display.
	Target() config.TargetPolicy

	// Limits returns the distortion and crop bounds tuned for this display.
	Limits() config.ScalingLimits
}

var profiles = make(map[string]Profile)

// Register adds a profile to the registry.
func Register(p Profile) {
	profiles[p.Name()] = p
}

// Get returns a profile by name.
func Get(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown display profile: %s", name)
	}
	return p, nil
}

// Supported returns the registered profile names, sorted.
func Supported() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply copies a profile's geometry policy into opts.
func Apply(p Profile, opts *config.Options) {
	opts.Profile = p.Name()
	opts.Target = p.Target()
	opts.Limits = p.Limits()
}
