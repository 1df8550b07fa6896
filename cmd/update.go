package cmd

import (
	"fmt"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/autobrr/dupescan/pkg/runtime"
)

const releaseSlug = "autobrr/dupescan"

func UpdateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "update",
		Short: "Update to latest version",
		Long:  `This command can be used to self-update to the latest version.`,
		Example: `  dupescan update`,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// detect latest version
		fmt.Println("Checking for the latest version...")
		latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(releaseSlug))
		if err != nil {
			return errors.Wrap(err, "determine latest available version")
		}

		// check version
		if !found || latest.LessOrEqual(runtime.Version) {
			fmt.Printf("Already using the latest version: %v\n", runtime.Version)
			return nil
		}

		// get existing executable path
		exe, err := selfupdate.ExecutablePath()
		if err != nil {
			return errors.Wrap(err, "locate current executable path")
		}

		if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
			return errors.Wrap(err, "update existing binary to latest release")
		}

		fmt.Printf("Successfully updated to the latest version: %v\n", latest.Version())
		return nil
	}

	return command
}
