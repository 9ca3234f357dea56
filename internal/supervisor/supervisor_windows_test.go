//go:build windows

package supervisor

// runPlatformHelper has no Windows-only modes.
func runPlatformHelper(string) int {
	return 95
}
