// Package paths resolves the filesystem locations onboard uses by default:
// the persistent cache directory and the sandbox's campaign and flow files.
package paths
