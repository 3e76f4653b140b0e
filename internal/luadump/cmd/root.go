package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/pprof"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"luadump/internal/chunkfile"
	"luadump/internal/luadump/log"
	"luadump/internal/ui/colorize"
)

type configKey struct{}

func configFrom(cmd *cobra.Command) *Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "luadump [file]...",
		Short: "Inspect precompiled Lua 5.3 chunks",
		Long: `Luadump decodes precompiled Lua 5.3 chunks (luac output) and lists their
functions, instructions, constants, locals and upvalues. Chunks protected
with XXTEA, as shipped by cocos2d-x games, are decrypted on the fly.`,
		Example: `
# Browse a chunk interactively
luadump main.luac

# Print a full listing like luac -l -l
luadump -f main.luac

# Decode an encrypted chunk and dump it as JSON
luadump --key 2dxLua --signature XXTEA --json src/*.luac
  `,
		Args:              cobra.MinimumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE:              runRoot,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringP("cwd", "c", "", "Current working directory")
	pf.String("config", "", "Config file (default $XDG_CONFIG_HOME/luadump/config.json)")
	pf.BoolP("debug", "d", false, "Debug")
	pf.String("layout", "auto", "Header layout: auto, compact or extended")
	pf.Uint32("max-elements", 0, "Largest accepted array count (0 for the built-in limit)")
	pf.String("key", "", "XXTEA key for encrypted chunks")
	pf.String("signature", "", "XXTEA signature for encrypted chunks")
	pf.Int("jobs", 0, "Files decoded concurrently (0 for one per CPU)")

	f := rootCmd.Flags()
	f.BoolP("no-tui", "n", false, "Print the listing instead of starting the TUI")
	f.BoolP("full", "f", false, "Include constants, locals and upvalues (implies --no-tui)")
	f.BoolP("json", "j", false, "Output decoded chunks as JSON")
	f.Bool("raw", false, "Print instruction words in hex")
	f.Bool("decrypt", false, "Write out the decrypted chunk instead of listing it")
	f.BoolP("write", "w", false, "With --decrypt, write foo.luac to foo.lua instead of stdout")
	f.String("cpuprofile", "", "Write CPU profile to file")
	f.String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(newCheckCmd(), newScanCmd(), newSchemaCmd())
	return rootCmd
}

// setup runs before every command: working directory, config, logging.
func setup(cmd *cobra.Command, args []string) error {
	if _, err := ResolveCwd(cmd); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Setup(cfg.Debug)
	slog.Debug("Configuration loaded", "layout", cfg.Layout, "jobs", cfg.jobs(), "encrypted", cfg.Key != "")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	stop, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer stop()

	cfg := configFrom(cmd)
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	decrypt, _ := cmd.Flags().GetBool("decrypt")

	// --full implies --no-tui
	if cfg.Full {
		noTUI = true
	}
	stdout := cmd.OutOrStdout()
	if !isTerminal(stdout) || len(args) > 1 {
		noTUI = true
	}

	if decrypt {
		writeFile, _ := cmd.Flags().GetBool("write")
		return runDecrypt(cmd, args, cfg, writeFile)
	}

	if !noTUI && !jsonOutput {
		program := tea.NewProgram(
			NewModel(args[0], cfg),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		if _, err := program.Run(); err != nil {
			slog.Error("TUI run error", "error", err)
			return fmt.Errorf("TUI error: %v", err)
		}
		return nil
	}

	results := decodeFiles(cmd.Context(), args, cfg)
	if jsonOutput {
		if err := writeJSON(stdout, results); err != nil {
			return err
		}
		return failure(results)
	}

	reportErrors(cmd.ErrOrStderr(), results)
	color := isTerminal(stdout) && colorize.Enabled()
	if err := writeListings(stdout, results, cfg, color); err != nil {
		return err
	}
	return failure(results)
}

func reportErrors(w io.Writer, results []result) {
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(w, "%s: %v\n", res.Path, res.Err)
		}
	}
}

func failure(results []result) error {
	switch n := failed(results); {
	case n == 0:
		return nil
	case len(results) == 1:
		return results[0].Err
	default:
		return fmt.Errorf("%d of %d files failed to decode", n, len(results))
	}
}

// runDecrypt writes the plain chunk bytes of every file, either to stdout
// or next to the input.
func runDecrypt(cmd *cobra.Command, paths []string, cfg *Config, writeFile bool) error {
	if cfg.Key == "" {
		return fmt.Errorf("--key is required when using --decrypt")
	}
	for _, path := range paths {
		f, err := chunkfile.Load(path, cfg.chunkOptions())
		if err != nil {
			return err
		}
		if !writeFile {
			if _, err := cmd.OutOrStdout().Write(f.Data); err != nil {
				return fmt.Errorf("failed to write output: %v", err)
			}
			continue
		}
		out := chunkfile.OutputPath(path)
		if err := os.WriteFile(out, f.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write file: %v", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Successfully decrypted: %s\n", path)
		fmt.Fprintf(cmd.ErrOrStderr(), "Output written to: %s\n", out)
	}
	return nil
}

// startProfiling honours --cpuprofile and --memprofile. The returned
// function stops the CPU profile and writes the heap profile.
func startProfiling(cmd *cobra.Command) (func(), error) {
	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	memprofile, _ := cmd.Flags().GetString("memprofile")

	var cpuFile *os.File
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %v", err)
		}
		cpuFile = f
	}

	return func() {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}
		if memprofile == "" {
			return
		}
		f, err := os.Create(memprofile)
		if err != nil {
			slog.Error("Could not create memory profile", "error", err)
			return
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			slog.Error("Could not write memory profile", "error", err)
		}
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func Execute() {
	rootCmd := newRootCmd()
	defer log.Close()

	// Plain output and pipes bypass fang's styled help and errors.
	plain := !term.IsTerminal(os.Stdout.Fd())
	for _, arg := range os.Args[1:] {
		switch arg {
		case "--no-tui", "-n", "--full", "-f", "--json", "-j":
			plain = true
		}
	}

	if plain {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// ResolveCwd changes to --cwd when given and returns the working directory.
func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		abs, err := filepath.Abs(cwd)
		if err != nil {
			return "", err
		}
		if err := os.Chdir(abs); err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}
