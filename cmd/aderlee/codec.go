package main

import (
	"fmt"

	prettyjson "github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/rawasy/aderlee/pkg/securedata"
)

var jsonFlag bool

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(probeCmd)

	decodeCmd.Flags().BoolVar(&jsonFlag, "json", false, "Pretty-print the decoded value when it is valid JSON")
}

func newCodec() *securedata.Codec {
	codec, err := securedata.New(resolveKeys()...)
	if err != nil {
		errorExit("Unable to derive codec: %v\n", err)
	}
	return codec
}

var encodeCmd = &cobra.Command{
	Use:   "encode [VALUE]",
	Short: "Obfuscate a value into the hex wire form",
	Long:  "Obfuscate a value under the resolved key set. Reads stdin when VALUE is omitted.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(outWriter, newCodec().Encode(readArgOrStdin(args)))
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode [ENCODED]",
	Short: "Recover the plaintext of an encoded value",
	Long:  "Recover the plaintext of an encoded value under the resolved key set. Reads stdin when ENCODED is omitted.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		plaintext, err := newCodec().Decode(readArgOrStdin(args))
		if err != nil {
			errorExit("Unable to decode: %v\n", err)
		}

		if jsonFlag {
			if b, err := prettyjson.Format([]byte(plaintext)); err == nil {
				fmt.Fprintln(outWriter, string(b))
				return
			}
		}
		fmt.Fprintln(outWriter, plaintext)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [CANDIDATE]",
	Short: "Report whether a value is encoded under the resolved key set",
	Long:  "Prints true when the candidate decodes cleanly under the resolved key set and false otherwise. Reads stdin when CANDIDATE is omitted.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(outWriter, newCodec().IsEncoded(readArgOrStdin(args)))
	},
}
