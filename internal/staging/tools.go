package staging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/tools"
	"github.com/edtools/proctor/pkg/formatting"
)

const readLimit = 64 * 1024

// LocalTools returns the filesystem tools the phase agents register
// alongside the grading service's remote toolset.
func LocalTools() []tools.Tool {
	return []tools.Tool{
		prepareTool(),
		readTextTool(),
		listDirectoryTool(),
	}
}

func prepareTool() tools.Tool {
	return tools.Tool{
		Spec: llm.ToolSpec{
			Name:        "prepare_files_for_grading",
			Description: "Stage uploaded files into a clean directory of PDFs. Extracts ZIP archives, converts images to PDF, and rejects unsupported formats.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_paths": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Absolute paths of the uploaded files to stage",
					},
				},
				"required": []string{"file_paths"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			paths, err := stringSlice(args["file_paths"])
			if err != nil {
				return "", fmt.Errorf("file_paths: %w", err)
			}

			result, err := PrepareFiles(ctx, paths)
			if err != nil {
				return "", err
			}
			return result.JSON(), nil
		},
	}
}

func readTextTool() tools.Tool {
	return tools.Tool{
		Spec: llm.ToolSpec{
			Name:        "read_text_file",
			Description: "Read the contents of a local text file, such as a rubric or essay question.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{
						"type":        "string",
						"description": "Absolute path of the text file to read",
					},
					"max_bytes": map[string]any{
						"type":        "string",
						"description": "Optional size cap, such as 16KB or 1MB",
					},
				},
				"required": []string{"file_path"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["file_path"].(string)
			if path == "" {
				return "", fmt.Errorf("file_path is required")
			}

			limit := int64(readLimit)
			if raw, _ := args["max_bytes"].(string); raw != "" {
				parsed, err := formatting.ParseBytes(raw)
				if err != nil {
					return "", fmt.Errorf("max_bytes: %w", err)
				}
				if parsed > 0 && parsed < limit {
					limit = parsed
				}
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
			}

			if int64(len(data)) > limit {
				data = data[:limit]
			}
			return string(data), nil
		},
	}
}

func listDirectoryTool() tools.Tool {
	return tools.Tool{
		Spec: llm.ToolSpec{
			Name:        "list_directory_files",
			Description: "List the files in a local directory, optionally filtered by extension.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"directory_path": map[string]any{
						"type":        "string",
						"description": "Absolute path of the directory to list",
					},
					"extension": map[string]any{
						"type":        "string",
						"description": "Optional extension filter, such as .pdf",
					},
				},
				"required": []string{"directory_path"},
			},
		},
		Run: func(ctx context.Context, args map[string]any) (string, error) {
			dir, _ := args["directory_path"].(string)
			if dir == "" {
				return "", fmt.Errorf("directory_path is required")
			}
			ext, _ := args["extension"].(string)

			entries, err := os.ReadDir(dir)
			if err != nil {
				return "", fmt.Errorf("list %s: %w", dir, err)
			}

			var names []string
			for _, entry := range entries {
				if entry.IsDir() || hiddenFile(entry.Name()) {
					continue
				}
				if ext != "" && !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
					continue
				}
				names = append(names, entry.Name())
			}
			sort.Strings(names)

			if len(names) == 0 {
				return "No matching files found.", nil
			}
			return strings.Join(names, "\n"), nil
		},
	}
}

func stringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			paths = append(paths, s)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("expected array of strings, got %T", value)
	}
}
