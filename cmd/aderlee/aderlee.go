package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	outWriter io.Writer = os.Stdout
	errWriter io.Writer = os.Stderr
	inReader  io.Reader = os.Stdin
)

var rootCmd = &cobra.Command{
	Use:   "aderlee",
	Short: "Keyed obfuscation toolkit for env files and config values",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		outWriter = cmd.OutOrStdout()
		errWriter = cmd.ErrOrStderr()
		inReader = cmd.InOrStdin()
	},
}

var cfg Config
var currentProfile *Profile

var (
	cfgFile         string
	keysFlag        []string
	profileOverride string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.aderlee/config)")
	rootCmd.PersistentFlags().StringArrayVarP(&keysFlag, "key", "k", nil, "Secret key, repeatable for ordered multi-key sets. Overrides the active profile")
	rootCmd.PersistentFlags().StringVarP(&profileOverride, "profile", "p", "", "Use the named profile for this invocation only")
	cobra.OnInitialize(onInit)
}

func onInit() {
	var err error
	cfg, err = ReadConfig(cfgFile)
	if err != nil {
		errorExit("Invalid config: %v", err)
	}

	cfg.ProfileOverride = profileOverride
	currentProfile = cfg.ActiveProfile()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// resolveKeys picks the key set for codec commands: explicit --key flags win,
// then the active profile's keys. An empty result means the codec default.
func resolveKeys() []string {
	if len(keysFlag) > 0 {
		return keysFlag
	}
	if currentProfile != nil {
		return currentProfile.Keys
	}
	return nil
}

// readArgOrStdin returns args[0] when present, otherwise all of stdin with a
// single trailing newline trimmed.
func readArgOrStdin(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	data, err := io.ReadAll(inReader)
	if err != nil {
		errorExit("Unable to read stdin: %v\n", err)
	}
	return strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
}

func errorExit(format string, a ...interface{}) {
	fmt.Fprintf(errWriter, format+"\n", a...)
	os.Exit(1)
}
