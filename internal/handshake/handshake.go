// Package handshake performs an MCP handshake against the bundled server.
//
// It is a diagnostic used by `openspec-mcp-x doctor --handshake`: the
// server command built by the supervisor is started behind an MCP client
// over a command (stdio) transport, initialized, and asked for its tool
// list. It is never on the launch path, where the launcher must not read
// or write the server's streams.
package handshake

import (
	"context"
	"fmt"
	"os/exec"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ClientName identifies the launcher to the server during the handshake.
const ClientName = "openspec-mcp-x-doctor"

// Report is the result of a successful handshake.
type Report struct {
	// Tools lists the names of the tools the server advertises, sorted.
	Tools []string `json:"tools"`
}

// Check connects to the server started by cmd, completes the MCP
// initialize exchange, and lists its tools. cmd must not have Stdin or
// Stdout set; the transport owns both. The server process is shut down
// before Check returns.
func Check(ctx context.Context, cmd *exec.Cmd, clientVersion string) (*Report, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: clientVersion}, &mcp.ClientOptions{})

	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, &mcp.ClientSessionOptions{})
	if err != nil {
		return nil, fmt.Errorf("mcp initialize: %w", err)
	}
	defer func() { _ = session.Close() }()

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("mcp tools/list: %w", err)
	}

	report := &Report{Tools: make([]string, 0, len(res.Tools))}
	for _, tool := range res.Tools {
		report.Tools = append(report.Tools, tool.Name)
	}
	sort.Strings(report.Tools)
	return report, nil
}
