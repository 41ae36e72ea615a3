package native

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/copilotzhq/copilotz/pkg/models"
)

const runCommandTimeout = 60 * time.Second

// shellTools returns run_command, grounded on the teacher's
// node_tools.go shellRunTool handler.
func shellTools() []models.Tool {
	return []models.Tool{runCommandTool()}
}

func runCommandTool() models.Tool {
	return models.Tool{
		Key:         "run_command",
		Description: "runs a shell command and returns its combined stdout/stderr and exit code",
		InputSchema: objectSchema([]string{"command"}, map[string]any{
			"command":    stringProp("shell command to execute"),
			"workingDir": stringProp("optional working directory"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			command, _ := args["command"].(string)
			if strings.TrimSpace(command) == "" {
				return nil, fmt.Errorf("command is required")
			}
			workingDir, _ := args["workingDir"].(string)

			ctx, cancel := contextWithTimeout(ectx, runCommandTimeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			cmd.Dir = workingDir
			var out bytes.Buffer
			cmd.Stdout = &out
			cmd.Stderr = &out

			runErr := cmd.Run()
			exitCode := 0
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else if runErr != nil {
				return nil, fmt.Errorf("run %q: %w", command, runErr)
			}

			return map[string]any{
				"command":  command,
				"output":   out.String(),
				"exitCode": exitCode,
			}, nil
		}),
	}
}
