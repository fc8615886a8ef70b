package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/cache"
	"github.com/GriffinCanCode/onboard/internal/client"
	"github.com/GriffinCanCode/onboard/internal/domain/onboarding"
	"github.com/GriffinCanCode/onboard/internal/domain/placement"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/config"
	"github.com/GriffinCanCode/onboard/internal/shared/paths"
	"github.com/GriffinCanCode/onboard/internal/shared/utils"
	"github.com/GriffinCanCode/onboard/internal/shared/value"
)

type resolveOptions struct {
	user    string
	device  string
	props   []string
	noCache bool
	reset   bool
}

var resolveFlags resolveOptions

var resolveCmd = &cobra.Command{
	Use:   "resolve [placement]",
	Short: "Resolve a placement against the configured backend",
	Long: `Asks the backend which flow a placement shows and prints the resolution
and an outline of its screens.

Resolution follows ONBOARD_CACHE_POLICY. The last good resolution and the
local completion flag are kept under ONBOARD_CACHE_DIR, or the user cache
directory when unset.

Example:
  onboard resolve home --user u_42 --prop plan=free --prop seats=3`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFlags.user, "user", "", "User id")
	resolveCmd.Flags().StringVar(&resolveFlags.device, "device", "", "Device id")
	resolveCmd.Flags().StringArrayVar(&resolveFlags.props, "prop", nil, "Targeting property key=value (repeatable)")
	resolveCmd.Flags().BoolVar(&resolveFlags.noCache, "no-cache", false, "Skip the local cache")
	resolveCmd.Flags().BoolVar(&resolveFlags.reset, "reset", false, "Forget the local completion before resolving")
}

func runResolve(cmd *cobra.Command, args []string) error {
	name := args[0]
	props, err := parseProps(resolveFlags.props)
	if err != nil {
		return err
	}

	opts := client.OptionsFromConfig(cfg)
	opts.DisableEvents = true
	opts.Logger = logger.Logger
	c, err := client.New(opts)
	if err != nil {
		return err
	}
	defer c.Close(context.Background())

	store, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl, err := onboarding.New(onboarding.Options{
		Resolver:               c,
		Cache:                  store,
		Policy:                 onboarding.Policy(cfg.Cache.Policy),
		RespectLocalCompletion: cfg.Cache.RespectLocalCompletion,
		UserID:                 resolveFlags.user,
		DeviceID:               resolveFlags.device,
		Logger:                 logger.Logger,
	})
	if err != nil {
		return err
	}
	defer ctrl.Wait()
	if resolveFlags.reset {
		ctrl.ResetCompletion(name)
	}

	state, err := ctrl.Present(cmd.Context(), name, props)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	logger.Debug("placement resolved", zap.String("placement", name), zap.Stringer("state", state))
	printResolution(cmd.OutOrStdout(), ctrl.Resolution())
	return nil
}

// openCache scopes the cache to the identity on the command line so
// different users never share completion state. The namespace is a digest
// so cache file names do not carry user ids.
func openCache(cc config.CacheConfig) (*cache.Cache, error) {
	if resolveFlags.noCache {
		cc.Disabled = true
	}
	if !cc.Disabled {
		dir, err := paths.CacheDir(cc.Dir)
		if err != nil {
			return nil, err
		}
		cc.Dir = dir
	}
	return cache.Open(cc, cache.Options{
		Namespace: cacheNamespace(resolveFlags.user, resolveFlags.device),
		Logger:    logger.Logger,
	})
}

func cacheNamespace(userID, deviceID string) string {
	subject := placement.Subject(userID, deviceID)
	if subject == "" {
		return ""
	}
	return utils.DefaultHasher().HashFields("onboard", subject)[:16]
}

// parseProps reads key=value pairs. Values that parse as booleans or
// numbers are sent as such.
func parseProps(pairs []string) (value.Map, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	props := make(value.Map, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --prop %q, want key=value", pair)
		}
		props[key] = parseScalar(raw)
	}
	return props, nil
}

func parseScalar(raw string) value.Value {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return value.Bool(b)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Number(n)
	}
	return value.String(raw)
}

func printResolution(w io.Writer, res *placement.Resolution) {
	if res.Empty() {
		fmt.Fprintf(w, "placement %s: nothing to show (%s)\n", res.Placement, res.Reason)
		if res.IsControl {
			fmt.Fprintf(w, "  control group of campaign %s\n", res.Linkage.CampaignID)
		}
		return
	}
	fmt.Fprintf(w, "placement %s: flow %s", res.Placement, res.FlowID)
	if res.FlowName != "" {
		fmt.Fprintf(w, " (%s)", res.FlowName)
	}
	if res.Source == placement.SourceCache {
		fmt.Fprint(w, " [cached]")
	}
	fmt.Fprintln(w)
	if res.Linkage.CampaignID != "" {
		fmt.Fprintf(w, "  campaign %s, variant %s", res.Linkage.CampaignID, res.Linkage.VariantID)
		if res.IsSticky {
			fmt.Fprint(w, ", sticky")
		}
		fmt.Fprintln(w)
	}
	printOutline(w, res.Document)
}
