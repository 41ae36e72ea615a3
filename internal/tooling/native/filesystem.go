package native

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/copilotzhq/copilotz/pkg/models"
)

// filesystemTools returns read_file, write_file, list_directory, and
// search_files — scoped to the process's filesystem, same as the
// teacher's node_tools.go shell/file handlers, minus device access.
func filesystemTools() []models.Tool {
	return []models.Tool{
		readFileTool(),
		writeFileTool(),
		listDirectoryTool(),
		searchFilesTool(),
	}
}

func readFileTool() models.Tool {
	return models.Tool{
		Key:         "read_file",
		Description: "reads a UTF-8 text file and returns its contents",
		InputSchema: objectSchema([]string{"path"}, map[string]any{
			"path": stringProp("filesystem path to read"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return nil, fmt.Errorf("path is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			return map[string]any{"path": path, "content": string(data), "bytes": len(data)}, nil
		}),
	}
}

func writeFileTool() models.Tool {
	return models.Tool{
		Key:         "write_file",
		Description: "writes UTF-8 text content to a file, creating parent directories as needed",
		InputSchema: objectSchema([]string{"path", "content"}, map[string]any{
			"path":    stringProp("filesystem path to write"),
			"content": stringProp("text content to write"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			if path == "" {
				return nil, fmt.Errorf("path is required")
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("mkdir for %s: %w", path, err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", path, err)
			}
			return map[string]any{"path": path, "bytes": len(content)}, nil
		}),
	}
}

func listDirectoryTool() models.Tool {
	return models.Tool{
		Key:         "list_directory",
		Description: "lists the immediate entries of a directory",
		InputSchema: objectSchema([]string{"path"}, map[string]any{
			"path": stringProp("directory path to list"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return nil, fmt.Errorf("path is required")
			}
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", path, err)
			}
			items := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				items = append(items, map[string]any{"name": e.Name(), "isDir": e.IsDir()})
			}
			return map[string]any{"path": path, "entries": items}, nil
		}),
	}
}

func searchFilesTool() models.Tool {
	return models.Tool{
		Key:         "search_files",
		Description: "recursively searches a directory for files whose name contains the given substring",
		InputSchema: objectSchema([]string{"path", "query"}, map[string]any{
			"path":  stringProp("root directory to search from"),
			"query": stringProp("substring to match against file names"),
		}),
		Executor: models.ExecutorFunc(func(args map[string]any, ectx models.ToolExecContext) (any, error) {
			root, _ := args["path"].(string)
			query, _ := args["query"].(string)
			if root == "" || query == "" {
				return nil, fmt.Errorf("path and query are required")
			}
			var matches []string
			err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && strings.Contains(d.Name(), query) {
					matches = append(matches, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("search %s: %w", root, err)
			}
			return map[string]any{"path": root, "query": query, "matches": matches}, nil
		}),
	}
}
