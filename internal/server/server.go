package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/soyunomas/dupefinder/internal/tools"
)

// Setup crea el servidor MCP con la herramienta de búsqueda de duplicados.
func Setup(version string, duplicatesHandler *tools.FindDuplicatesHandler) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "dupefinder",
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `This server finds byte-identical files inside a directory. Files are grouped by size and then compared chunk by chunk, so results are exact, not hash guesses.`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "find_duplicates",
		Description: `List duplicate files directly inside a directory (no recursion).

Output: one line per file that has copies, "representative: [copy, copy]".
The representative is the first file in name order.

Options:
  - all: also list files without copies as "file: []"
  - relative: print names instead of full paths
  - chunkSize / digest: tune the comparison (defaults 256 bytes, sha1)`,
	}, duplicatesHandler.Handle)

	return mcpServer
}
