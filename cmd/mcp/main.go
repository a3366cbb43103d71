// Command mcp exposes a crudfs volume to MCP clients as a small set of file
// tools: format, list, store, retrieve.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/objectstream/crudfs/clients/library"
	"github.com/objectstream/crudfs/internal/config"
	"github.com/objectstream/crudfs/internal/log_service/logrus"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/mcp.yaml"

// LoadConfig reads the yaml config, writing one with defaults first if the
// file does not exist yet.
func LoadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaultConfig := config.DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return defaultConfig, fmt.Errorf("failed to create config directory: %v", err)
		}

		data, err := yaml.Marshal(defaultConfig)
		if err != nil {
			return defaultConfig, fmt.Errorf("failed to marshal default config: %v", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return defaultConfig, fmt.Errorf("failed to write default config: %v", err)
		}

		return defaultConfig, nil
	}

	return config.Load(path)
}

// FileTools wraps one client and keeps the volume mounted across tool calls.
type FileTools struct {
	mu      sync.Mutex
	client  *crudlib.Client
	mounted bool
}

func (ft *FileTools) ensureMounted() error {
	if ft.mounted {
		return nil
	}
	if err := ft.client.Mount(); err != nil {
		return fmt.Errorf("mount failed (is the volume formatted?): %v", err)
	}
	ft.mounted = true
	return nil
}

func (ft *FileTools) handleFormat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if err := ft.client.Format(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format volume: %v", err)), nil
	}
	ft.mounted = true
	return mcp.NewToolResultText("Volume formatted"), nil
}

func (ft *FileTools) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if err := ft.ensureMounted(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Files on volume:\n"
	for _, info := range ft.client.List() {
		result += fmt.Sprintf("- %s (%d bytes)\n", info.Name, info.Length)
	}
	return mcp.NewToolResultText(result), nil
}

func (ft *FileTools) handleStore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := ft.ensureMounted(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fh, err := ft.client.Open(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open %s: %v", name, err)), nil
	}
	defer ft.client.Close(fh)

	if _, err := ft.client.Write(fh, []byte(content)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to write %s: %v", name, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Stored %s (%d bytes)", name, len(content))), nil
}

func (ft *FileTools) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := ft.ensureMounted(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fh, err := ft.client.Open(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open %s: %v", name, err)), nil
	}
	defer ft.client.Close(fh)

	info, err := ft.client.Stat(fh)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := ft.client.Read(fh, int(info.Length))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read %s: %v", name, err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

func addTools(s *server.MCPServer, ft *FileTools) {
	s.AddTool(mcp.NewTool("format_volume",
		mcp.WithDescription("Format the volume, destroying every file on it"),
	), ft.handleFormat)

	s.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the files on the volume"),
	), ft.handleList)

	s.AddTool(mcp.NewTool("store_file",
		mcp.WithDescription("Store a file on the volume"),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name on the volume")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
	), ft.handleStore)

	s.AddTool(mcp.NewTool("retrieve_file",
		mcp.WithDescription("Retrieve a file's content from the volume"),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name on the volume")),
	), ft.handleRetrieve)
}

func main() {
	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ls := logruslog.NewLogrusLogService("mcp", cfg.LogLevel)
	ls.SetOutput(os.Stderr) // stdout belongs to the MCP transport

	ft := &FileTools{client: crudlib.NewClient(cfg, ls)}

	s := server.NewMCPServer(
		"crudfs",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	addTools(s, ft)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}

	// Persist the directory before exiting.
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.mounted {
		if err := ft.client.Unmount(); err != nil {
			log.Printf("unmount failed: %v", err)
		}
	}
}
