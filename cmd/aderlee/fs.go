package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rawasy/aderlee/pkg/filesystem"
)

const (
	tabwriterMinWidth = 6
	tabwriterWidth    = 4
	tabwriterPadding  = 3
	tabwriterPadChar  = ' '
	tabwriterFlags    = 0
)

var baseDirFlag string

func init() {
	fsCmd.AddCommand(fsLsCmd)
	rootCmd.AddCommand(fsCmd)

	fsCmd.PersistentFlags().StringVar(&baseDirFlag, "dir", ".", "Base directory for file operations")
}

var fsCmd = &cobra.Command{
	Use:   "fs",
	Short: "Inspect files under a base directory",
}

var fsLsCmd = &cobra.Command{
	Use:     "ls [PATTERN]",
	Aliases: []string{"list"},
	Short:   "List files matching a glob pattern",
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := "*"
		if len(args) == 1 {
			pattern = args[0]
		}

		fs := filesystem.New(baseDirFlag)
		matches, err := fs.List(pattern)
		if err != nil {
			errorExit("Unable to list files: %v\n", err)
		}
		sort.Strings(matches)

		w := tabwriter.NewWriter(outWriter, tabwriterMinWidth, tabwriterWidth, tabwriterPadding, tabwriterPadChar, tabwriterFlags)
		fmt.Fprintf(w, "NAME\tSIZE\tMODIFIED\t\n")
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			name := match
			if rel, err := filepath.Rel(baseDirFlag, match); err == nil {
				name = rel
			}
			size := "-"
			if !info.IsDir() {
				size = humanize.Bytes(uint64(info.Size()))
			}
			fmt.Fprintf(w, "%v\t%v\t%v\t\n", name, size, humanize.Time(info.ModTime()))
		}
		w.Flush()
	},
}
