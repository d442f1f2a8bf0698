package cmd

import (
	"fmt"
	"runtime"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// repositorySlug is where releases are published
const repositorySlug = "s0up4200/youtrackr"

var (
	version   = "dev"
	buildTime = "unknown"

	checkOnly bool
)

// SetVersion records the build version and time injected at link time
func SetVersion(v, built string) {
	version = v
	buildTime = built
}

// parseVersion parses a build version such as "v1.2.3" or "1.2"
func parseVersion(v string) (semver.Version, error) {
	parsed, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.Version{}, fmt.Errorf("not a release version %q: %w", v, err)
	}
	return parsed, nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if parsed, err := parseVersion(version); err == nil {
			fmt.Fprintf(out, "youtrackr v%s\n", parsed)
		} else {
			fmt.Fprintf(out, "youtrackr %s\n", version)
		}
		fmt.Fprintf(out, "Built: %s\n", buildTime)
		fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:         "update",
	Short:       "Update youtrackr to the latest release",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update is available")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	current, err := parseVersion(version)
	if err != nil {
		return fmt.Errorf("cannot update a development build: %w", err)
	}

	ctx := cmd.Context()
	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repositorySlug))
	if err != nil {
		return fmt.Errorf("failed to detect latest release: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	out := cmd.OutOrStdout()
	if latest.LessOrEqual(current.String()) {
		fmt.Fprintf(out, "Already up to date (v%s)\n", current)
		return nil
	}

	if checkOnly {
		fmt.Fprintf(out, "Update available: v%s -> v%s\n", current, latest.Version())
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	logger.Info().
		Str("from", current.String()).
		Str("to", latest.Version()).
		Str("asset", latest.AssetName).
		Msg("Updating")

	if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
		return fmt.Errorf("failed to update binary: %w", err)
	}

	fmt.Fprintf(out, "✓ Updated to v%s\n", latest.Version())
	return nil
}
