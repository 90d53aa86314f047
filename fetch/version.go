package fetch

// Version information for the double-fetch detector runtime.
const (
	// Version is the current version of the runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the detector.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Strategy names the detection strategy in use.
	Strategy string

	// Enabled indicates whether detection is active.
	Enabled bool
}

// GetInfo returns information about the detector runtime.
//
// Example:
//
//	info := fetch.GetInfo()
//	fmt.Printf("Double-Fetch Detector %s (%s)\n", info.Version, info.Strategy)
func GetInfo() Info {
	return Info{
		Version:  Version,
		Strategy: "interval tracking with probabilistic fault injection",
		Enabled:  true, // Always enabled when using this package
	}
}
