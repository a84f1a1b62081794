// river-mcp exposes a running river over MCP so agents can read the
// stream, drop words into it, and check its health.
//
// It is a thin stdio wrapper around the river HTTP API: point RIVER_URL
// at the instance you want (default http://localhost:5000).
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	// Load .env file - try executable's parent dir (repo root), then exe dir, then cwd
	envPaths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		envPaths = append([]string{
			filepath.Join(filepath.Dir(exeDir), ".env"),
			filepath.Join(exeDir, ".env"),
		}, envPaths...)
	}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	s := server.NewMCPServer(
		"river-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Register tools
	s.AddTool(readTool(), handleRead)
	s.AddTool(contributeTool(), handleContribute)
	s.AddTool(statusTool(), handleStatus)

	// Run server
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func riverURL() string {
	if v := os.Getenv("RIVER_URL"); v != "" {
		return v
	}
	return "http://localhost:5000"
}

func readTool() mcp.Tool {
	return mcp.NewTool("river_read",
		mcp.WithDescription("Read the river's current text. Returns the visible stream plus its sequence number; pass the sequence to notice when new text has arrived."),
		mcp.WithNumber("window",
			mcp.Description("Return only the last N characters of the stream (default: everything)"),
		),
	)
}

func handleRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)

	target := riverURL() + "/text"
	if w, ok := args["window"].(float64); ok {
		target += "?window=" + strconv.Itoa(int(w))
	}

	body, err := get(ctx, target)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read river: %v", err)), nil
	}

	var snap struct {
		Text     string `json:"text"`
		Sequence int    `json:"sequence"`
		Last     string `json:"new_text"`
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
	}

	output := fmt.Sprintf("%s\n\nSequence: %d\nLatest fragment: %s", snap.Text, snap.Sequence, snap.Last)
	return mcp.NewToolResultText(output), nil
}

func contributeTool() mcp.Tool {
	return mcp.NewTool("river_contribute",
		mcp.WithDescription("Drop one word into the river. The word is queued and woven into the stream on the next generation cycle. Single word only: letters, digits, apostrophes, hyphens."),
		mcp.WithString("word",
			mcp.Required(),
			mcp.Description("The word to contribute"),
		),
	)
}

func handleContribute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]any)
	word, _ := args["word"].(string)

	if word == "" {
		return mcp.NewToolResultError("word is required"), nil
	}

	payload, err := json.Marshal(map[string]string{"word": word})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", riverURL()+"/contribute", bytes.NewReader(payload))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reach river: %v", err)), nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result struct {
		Accepted bool   `json:"accepted"`
		Word     string `json:"word"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("river error (%d): %s", resp.StatusCode, string(respBody))), nil
	}

	if !result.Accepted {
		return mcp.NewToolResultError(fmt.Sprintf("word rejected: %s", result.Reason)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Dropped %q into the river. It will surface on the next cycle.", result.Word)), nil
}

func statusTool() mcp.Tool {
	return mcp.NewTool("river_status",
		mcp.WithDescription("Check the river's health: whether the generation engine is reachable, how many cycles have run, and the current sequence number."),
	)
}

func handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := get(ctx, riverURL()+"/health")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to check river: %v", err)), nil
	}

	var health map[string]any
	if err := json.Unmarshal(body, &health); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
	}

	output, err := json.MarshalIndent(health, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal status: %v", err)), nil
	}

	return mcp.NewToolResultText(string(output)), nil
}

func get(ctx context.Context, target string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("river error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
