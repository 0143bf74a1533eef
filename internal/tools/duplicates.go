package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/soyunomas/dupefinder/internal/config"
	"github.com/soyunomas/dupefinder/internal/engine"
	"github.com/soyunomas/dupefinder/internal/report"
	"github.com/soyunomas/dupefinder/internal/scanner"
)

// FindDuplicatesArgs son los parámetros de la herramienta find_duplicates.
type FindDuplicatesArgs struct {
	Dir       string `json:"dir" jsonschema:"Directory to scan (flat, no recursion)"`
	All       bool   `json:"all,omitempty" jsonschema:"If true also list files without duplicates"`
	Relative  bool   `json:"relative,omitempty" jsonschema:"If true print file names instead of full paths"`
	ChunkSize string `json:"chunkSize,omitempty" jsonschema:"Bytes compared per step, e.g. 256 or 4KiB"`
	Digest    string `json:"digest,omitempty" jsonschema:"Chunk digest: sha1, sha256, sha512, md5 or xxh64"`
}

// FindDuplicatesHandler parte de la configuración cargada al arrancar; cada
// llamada puede sobrescribir algunos valores sin tocar el original.
type FindDuplicatesHandler struct {
	Config *config.Config
	Logger *slog.Logger
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// Handle ejecuta un escaneo completo por llamada.
func (h *FindDuplicatesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FindDuplicatesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Dir == "" {
		h.Logger.Warn("find_duplicates called with empty dir")
		return errorResult("Error: dir parameter is required"), nil, nil
	}

	cfg := *h.Config
	if args.ChunkSize != "" {
		cfg.ChunkSize = args.ChunkSize
	}
	if args.Digest != "" {
		cfg.Digest = args.Digest
	}
	if args.All {
		cfg.Mode = "all"
	}
	if args.Relative {
		cfg.Relative = true
	}

	resolved, err := cfg.Resolve()
	if err != nil {
		return errorResult("Configuration error: %v", err), nil, nil
	}

	matcher, err := scanner.NewMatcher(scanner.MatcherOptions{
		Dir:        args.Dir,
		Patterns:   resolved.Excludes,
		IgnoreFile: cfg.IgnoreFile,
	})
	if err != nil {
		return errorResult("Configuration error: %v", err), nil, nil
	}

	runner, err := engine.New(engine.Options{
		Compare: resolved.Compare,
		Workers: resolved.Workers,
		Policy:  resolved.Policy,
		Matcher: matcher,
		Logger:  h.Logger,
	})
	if err != nil {
		return errorResult("Configuration error: %v", err), nil, nil
	}

	res, err := runner.Run(ctx, args.Dir)
	if err != nil {
		h.Logger.Error("find_duplicates failed", "dir", args.Dir, "error", err)
		return errorResult("Scan error: %v", err), nil, nil
	}

	var builder strings.Builder
	if err := report.WriteText(&builder, res.Duplicates, resolved.Report); err != nil {
		return errorResult("Render error: %v", err), nil, nil
	}

	summary := report.Build(res, report.Metadata{}, resolved.Report).Summary
	if builder.Len() == 0 {
		builder.WriteString("No duplicates found.\n")
	}
	builder.WriteString(fmt.Sprintf("\n%d files scanned, %d duplicates, %s recoverable",
		summary.TotalFilesScanned, summary.TotalDuplicates, humanize.Bytes(uint64(summary.BytesSaved))))
	if len(res.Failures) > 0 {
		builder.WriteString(fmt.Sprintf(", %d files with read errors", len(res.Failures)))
	}
	builder.WriteString("\n")

	h.Logger.Info("find_duplicates",
		"dir", args.Dir,
		"files", summary.TotalFilesScanned,
		"duplicates", summary.TotalDuplicates,
		"elapsed", time.Since(start),
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: builder.String()}},
	}, nil, nil
}
