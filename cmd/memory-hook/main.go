package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crack-kitty/claudememkeep/internal/configs"
	"github.com/crack-kitty/claudememkeep/internal/hooks"
	"github.com/crack-kitty/claudememkeep/internal/logger"
)

var Version = "dev"

func main() {
	execute(newRootCmd())
}

// execute runs the CLI. Hooks must never block the client, so even usage
// errors exit 0 and still print a JSON object.
func execute(rootCmd *cobra.Command) {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Warn().Err(err).Msg("memory-hook")
		writeOutput(rootCmd.OutOrStdout(), hooks.Output{})
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "memory-hook",
		Short:        "Client hooks that feed sessions into claudememkeep shared memory",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(hookCmd("session-start", "Inject recent shared context into a new session", (*hooks.Runner).SessionStart))
	rootCmd.AddCommand(hookCmd("session-end", "Save a task/outcome summary for the finished session", (*hooks.Runner).SessionEnd))
	rootCmd.AddCommand(hookCmd("pre-compact", "Archive the transcript before context compaction", (*hooks.Runner).PreCompact))
	return rootCmd
}

type hookFunc func(*hooks.Runner, context.Context, hooks.Event) hooks.Output

func hookCmd(use, short string, run hookFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := hooks.ReadEvent(cmd.InOrStdin())

			out := hooks.Output{}
			if runner := newRunner(); runner != nil {
				out = run(runner, cmd.Context(), ev)
			}
			writeOutput(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newRunner() *hooks.Runner {
	cfg, err := configs.LoadHook()
	if err != nil {
		logger.Setup("warn", "console")
		log.Warn().Err(err).Msg("load hook config")
		return nil
	}
	logger.Setup(cfg.LogLevel, "console")
	return hooks.NewRunner(hooks.NewClient(cfg.ServerURL, cfg.AuthToken))
}

func writeOutput(w io.Writer, out hooks.Output) {
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Warn().Err(err).Msg("write hook output")
	}
}
