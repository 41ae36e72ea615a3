package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/copilotzhq/copilotz/internal/runtime"
	"github.com/copilotzhq/copilotz/pkg/models"
)

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		agent      string
		message    string
		thread     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send one message to an agent and print the streamed reply",
		Example: `  copilotz run --agent Assistant --message "what time is it?"
  copilotz run --config ./copilotz.yaml --thread thread-1 --message "go on"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = defaultConfigPath()
			}
			if message == "" {
				return fmt.Errorf("--message is required")
			}
			return runOnce(cmd.Context(), configPath, agent, thread, message)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (default copilotz.yaml)")
	cmd.Flags().StringVar(&agent, "agent", "", "Agent name to address (required for a new thread)")
	cmd.Flags().StringVar(&message, "message", "", "Message content to send")
	cmd.Flags().StringVar(&thread, "thread", "", "Existing thread id to continue")
	return cmd
}

func buildChatCmd() *cobra.Command {
	var (
		configPath string
		agent      string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive REPL against one agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = defaultConfigPath()
			}
			if agent == "" {
				return fmt.Errorf("--agent is required")
			}
			return runChat(cmd.Context(), configPath, agent)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (default copilotz.yaml)")
	cmd.Flags().StringVar(&agent, "agent", "", "Agent name to address")
	return cmd
}

func runOnce(ctx context.Context, configPath, agent, threadID, message string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	engine, closeAll, err := buildEngine(ctx, cfg)
	defer closeAll()
	if err != nil {
		return err
	}

	req := buildRunRequest(agent, threadID, message)
	handle, err := engine.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	slog.Info("run started", "thread", handle.ThreadID, "queue_id", handle.QueueID)
	printEvents(handle)
	return <-handle.Done()
}

func runChat(ctx context.Context, configPath, agent string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	engine, closeAll, err := buildEngine(ctx, cfg)
	defer closeAll()
	if err != nil {
		return err
	}

	var threadID string
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("chatting with %s (ctrl-d to quit)\n", agent)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		req := buildRunRequest(agent, threadID, line)
		handle, err := engine.Run(ctx, req)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		threadID = handle.ThreadID
		printEvents(handle)
		if err := <-handle.Done(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func buildRunRequest(agent, threadID, message string) runtime.RunRequest {
	ref := &models.ThreadRef{}
	if threadID != "" {
		ref.ID = threadID
	} else if agent != "" {
		ref.Participants = []string{agent}
	}

	return runtime.RunRequest{Message: runtime.MessageInput{
		Content: message,
		Sender:  models.Sender{Type: models.SenderUser, Name: "cli"},
		Thread:  ref,
	}}
}

// printEvents drains handle's stream, printing assistant tokens as
// they arrive and a trailing newline once an agent's turn completes.
func printEvents(handle *runtime.RunHandle) {
	for event := range handle.Events() {
		token, ok := event.Payload.(models.TokenPayload)
		if !ok {
			continue
		}
		if token.Token != "" {
			fmt.Print(token.Token)
		}
		if token.IsComplete {
			fmt.Println()
		}
	}
}
