package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	profileCmd.AddCommand(profileLsCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileRmCmd)
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage named key-set profiles in $HOME/.aderlee/config",
}

var profileLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List configured profiles",
	Args:    cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(outWriter, tabwriterMinWidth, tabwriterWidth, tabwriterPadding, tabwriterPadChar, tabwriterFlags)
		fmt.Fprintf(w, "NAME\tKEYS\tACTIVE\t\n")
		for _, profile := range cfg.Profiles {
			active := ""
			if currentProfile != nil && profile.Name == currentProfile.Name {
				active = "*"
			}
			// Key material itself never hits the terminal, only the count.
			fmt.Fprintf(w, "%v\t%v\t%v\t\n", profile.Name, len(profile.Keys), active)
		}
		w.Flush()
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Select the current profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.SetCurrentProfile(args[0]); err != nil {
			errorExit("Unable to select profile: %v\n", err)
		}
		fmt.Fprintf(outWriter, "Switched to profile %v.\n", args[0])
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Create or update a profile from the given --key set",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(keysFlag) == 0 {
			errorExit("At least one --key is required\n")
		}
		if err := cfg.UpsertProfile(args[0], keysFlag); err != nil {
			errorExit("Unable to save profile: %v\n", err)
		}
		fmt.Fprintf(outWriter, "Profile %v saved with %d key(s).\n", args[0], len(keysFlag))
	},
}

var profileRmCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete a profile",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.DeleteProfile(args[0]); err != nil {
			errorExit("Unable to delete profile: %v\n", err)
		}
		fmt.Fprintf(outWriter, "Profile %v deleted.\n", args[0])
	},
}
