package cmd

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const repositorySlug = "nathonfowlie/zfr"

var (
	version   = "dev"
	buildTime = "unknown"
)

// SetVersion records the build information injected by the linker.
func SetVersion(v, built string) {
	version = v
	buildTime = built
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version of zfr",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "zfr %s (built %s)\n", version, buildTime)
			return err
		},
	}
}

func newSelfUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "self-update",
		Short:       "Update zfr to the latest release",
		Long:        `Download the latest zfr release from GitHub and replace the running binary.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := currentVersion()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repositorySlug))
			if err != nil {
				return fmt.Errorf("failed to check for updates: %w", err)
			}
			if !found {
				return fmt.Errorf("no release found for %s", repositorySlug)
			}

			if latest.LessOrEqual(current.String()) {
				fmt.Fprintf(cmd.OutOrStdout(), "zfr %s is the latest version\n", current)
				return nil
			}

			exe, err := selfupdate.ExecutablePath()
			if err != nil {
				return fmt.Errorf("failed to locate executable: %w", err)
			}

			a.logger.Info().
				Str("from", current.String()).
				Str("to", latest.Version()).
				Msg("Updating zfr")

			if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
				return fmt.Errorf("failed to update binary: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated zfr to %s\n", latest.Version())
			return nil
		},
	}
}

// currentVersion parses the build version. Development builds cannot be
// updated.
func currentVersion() (semver.Version, error) {
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return semver.Version{}, fmt.Errorf("cannot self-update build %q: %w", version, err)
	}
	return v, nil
}
