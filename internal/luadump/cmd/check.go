package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"luadump/internal/binchunk"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file]...",
		Short: "Validate chunks without listing them",
		Long: `Check decodes every file and prints one status line per file.
The exit status is non-zero when any file fails to decode.`,
		Example: `
# Check every chunk in a directory
luadump check scripts/*.luac

# Quiet mode prints failures only
luadump check -q --key 2dxLua --signature XXTEA src/*.luac
  `,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			results := decodeFiles(cmd.Context(), args, configFrom(cmd))
			writeCheck(cmd.OutOrStdout(), results, quiet)
			if n := failed(results); n > 0 {
				return fmt.Errorf("%d of %d files failed to decode", n, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolP("quiet", "q", false, "Only report failures")
	return cmd
}

// chunkStats counts functions and instructions over a prototype tree.
func chunkStats(p *binchunk.Prototype) (functions, instructions int) {
	_ = p.Walk(func(_ string, p *binchunk.Prototype) error {
		functions++
		instructions += len(p.Code)
		return nil
	})
	return functions, instructions
}

func writeCheck(w io.Writer, results []result, quiet bool) {
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s: FAIL %v\n", res.Path, res.Err)
			continue
		}
		if quiet {
			continue
		}
		functions, instructions := chunkStats(res.Chunk.Main)
		fmt.Fprintf(w, "%s: ok (%s header, %d function%s, %d instruction%s",
			res.Path, res.Chunk.Layout,
			functions, plural(functions),
			instructions, plural(instructions))
		if res.File.Decrypted {
			fmt.Fprint(w, ", decrypted")
		}
		if res.File.Compression != "" {
			fmt.Fprintf(w, ", %s", res.File.Compression)
		}
		if res.Trailing > 0 {
			fmt.Fprintf(w, ", %d trailing byte%s", res.Trailing, plural(res.Trailing))
		}
		fmt.Fprintln(w, ")")
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
