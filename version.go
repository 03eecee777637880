// Package queryagent provides the version information for queryagent.
package queryagent

// Version is the current version of queryagent.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
