package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"luadump/internal/chunkfile"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Find Lua chunks and encrypted chunks in a directory",
		Long: `Scan walks a directory and lists every file that starts with the Lua
chunk signature or, when --signature is set, with the XXTEA signature.
Output is one path per line, like find.`,
		Example: `
# Find chunks in an unpacked APK
luadump scan assets/

# Find cocos2d-x encrypted scripts, top level only
luadump scan --signature XXTEA -r=false assets/src
  `,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			recursive, _ := cmd.Flags().GetBool("recursive")
			showKind, _ := cmd.Flags().GetBool("kind")

			matches, err := chunkfile.Scan(cmd.Context(), args[0], cfg.Signature, recursive)
			if err != nil {
				return fmt.Errorf("scan %s: %w", args[0], err)
			}
			out := cmd.OutOrStdout()
			for _, m := range matches {
				if showKind {
					fmt.Fprintf(out, "%s\t%s\n", m.Kind, m.Path)
				} else {
					fmt.Fprintln(out, m.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolP("recursive", "r", true, "Search subdirectories")
	cmd.Flags().BoolP("kind", "k", false, "Prefix each path with chunk or encrypted")
	return cmd
}
