package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rawasy/aderlee/pkg/environment"
)

var securityFlag string

func init() {
	envCmd.AddCommand(envGetCmd)
	envCmd.AddCommand(envSetCmd)
	rootCmd.AddCommand(envCmd)

	envCmd.PersistentFlags().StringVar(&securityFlag, "security", "", "Instance secret to use instead of "+environment.SecurityVar)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Read and prepare obfuscated environment variables",
}

func newEnvironment() *environment.Environment {
	var opts []environment.Option
	if securityFlag != "" {
		opts = append(opts, environment.WithSecret(securityFlag))
	}
	env, err := environment.New(opts...)
	if err != nil {
		errorExit("Unable to load environment: %v\n", err)
	}
	return env
}

var envGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Resolve an env var, decoding it when it is obfuscated",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		value, ok := newEnvironment().Lookup(args[0])
		if !ok {
			errorExit("%v is not set\n", args[0])
		}
		fmt.Fprintln(outWriter, value)
	},
}

var envSetCmd = &cobra.Command{
	Use:   "set NAME [VALUE]",
	Short: "Print the encoded NAME=value line for an env file",
	Long:  "Encodes VALUE under the variable's own key set and prints the NAME=encoded line, ready to paste into an env file. Reads stdin when VALUE is omitted.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		env := newEnvironment()

		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			value = readArgOrStdin(nil)
		}

		encoded, err := env.EncodeValue(args[0], value)
		if err != nil {
			errorExit("Unable to encode %v: %v\n", args[0], err)
		}
		fmt.Fprintf(outWriter, "%v=%v\n", args[0], encoded)
	},
}
