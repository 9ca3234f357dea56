package handshake

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serverEnv switches a re-executed test binary into a minimal stdio MCP
// server speaking newline-delimited JSON-RPC.
const serverEnv = "HANDSHAKE_TEST_SERVER"

func TestMain(m *testing.M) {
	switch os.Getenv(serverEnv) {
	case "":
		os.Exit(m.Run())
	case "tools":
		os.Exit(serve())
	case "exit":
		os.Exit(3)
	}
}

// rpcMessage is the subset of a JSON-RPC 2.0 message the fake server reads.
type rpcMessage struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// serve answers initialize and tools/list until stdin closes.
func serve() int {
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := json.NewEncoder(os.Stdout)

	for in.Scan() {
		var msg rpcMessage
		if err := json.Unmarshal(in.Bytes(), &msg); err != nil {
			return 2
		}
		if len(msg.ID) == 0 {
			continue // notification
		}

		reply := map[string]any{"jsonrpc": "2.0", "id": msg.ID}
		switch msg.Method {
		case "initialize":
			var params struct {
				ProtocolVersion string `json:"protocolVersion"`
			}
			_ = json.Unmarshal(msg.Params, &params)
			reply["result"] = map[string]any{
				"protocolVersion": params.ProtocolVersion,
				"capabilities":    map[string]any{"tools": map[string]any{}},
				"serverInfo":      map[string]any{"name": "openspec-mcp-x", "version": "test"},
			}
		case "tools/list":
			schema := map[string]any{"type": "object"}
			reply["result"] = map[string]any{
				"tools": []map[string]any{
					{"name": "openspec_validate", "inputSchema": schema},
					{"name": "check_openspec_status", "inputSchema": schema},
				},
			}
		default:
			reply["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		if err := out.Encode(reply); err != nil {
			return 2
		}
	}
	return 0
}

func serverCommand(t *testing.T, mode string) *exec.Cmd {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), serverEnv+"="+mode)
	return cmd
}

// TestCheck_ListsTools verifies a full handshake against a conforming server.
func TestCheck_ListsTools(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report, err := Check(ctx, serverCommand(t, "tools"), "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"check_openspec_status", "openspec_validate"}, report.Tools)
}

// TestCheck_ServerExitsImmediately verifies that a server that dies before
// answering produces an error instead of hanging.
func TestCheck_ServerExitsImmediately(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := Check(ctx, serverCommand(t, "exit"), "test")
	assert.Error(t, err)
}
