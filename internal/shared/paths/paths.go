package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user directories
const AppName = "onboard"

// Default file names of the sandbox backend
const (
	CampaignsFile = "campaigns.yaml"
	FlowsDir      = "flows"
)

// CacheDir returns override when set, otherwise the user cache directory
// for AppName (for example ~/.cache/onboard on Linux).
func CacheDir(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return filepath.Clean(override), nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("no user cache directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}
