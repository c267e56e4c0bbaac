// Package lifecyclego provides the version information for lifecycle-go.
package lifecyclego

// Version is the current version of lifecycle-go.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
