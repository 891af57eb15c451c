package service

import (
	"fmt"

	"github.com/louisbranch/cairn/internal/services/chain/client"
	"github.com/louisbranch/cairn/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "Cairn MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// serverInstructions orients MCP clients before the first tool call.
const serverInstructions = "Tools for a Cairn chain node: read the chain head, " +
	"accounts, and content claims; submit blocks of extrinsics; list block receipts. " +
	"Balances are base-10 strings."

// Server hosts the MCP server for one chain node.
type Server struct {
	mcpServer *mcp.Server
	node      *client.Client
}

// New creates a configured MCP server whose tools call the chain node at
// nodeURL.
func New(nodeURL string, opts ...client.Option) (*Server, error) {
	node, err := client.New(nodeURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("build chain node client: %w", err)
	}
	return newServer(node), nil
}

// newServer binds the chain tool handlers once per server.
func newServer(node *client.Client) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, &mcp.ServerOptions{
		Instructions: serverInstructions,
	})
	registerChainTools(mcpServer, node)
	return &Server{mcpServer: mcpServer, node: node}
}

func registerChainTools(server *mcp.Server, node *client.Client) {
	mcp.AddTool(server, domain.ChainHeadTool(), domain.ChainHeadHandler(node))
	mcp.AddTool(server, domain.AccountGetTool(), domain.AccountGetHandler(node))
	mcp.AddTool(server, domain.ClaimGetTool(), domain.ClaimGetHandler(node))
	mcp.AddTool(server, domain.BlockSubmitTool(), domain.BlockSubmitHandler(node))
	mcp.AddTool(server, domain.ReceiptsListTool(), domain.ReceiptsListHandler(node))
}
