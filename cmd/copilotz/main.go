// Command copilotz is a thin driver around the runtime engine: it
// wires queue/thread storage, the tool registry, and LLM providers
// from a YAML config file, then either starts an interactive REPL
// against one thread (the "chat" command) or sends a single message
// and prints the reply (the "run" command). It is not a deliverable
// service — it exists to exercise internal/runtime.Run end to end the
// way a host process would.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "copilotz",
		Short:         "Copilotz multi-agent conversation runtime",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(buildRunCmd(), buildChatCmd())
	return cmd
}
