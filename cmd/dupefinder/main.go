package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/soyunomas/dupefinder/internal/config"
	"github.com/soyunomas/dupefinder/internal/engine"
	"github.com/soyunomas/dupefinder/internal/report"
	"github.com/soyunomas/dupefinder/internal/scanner"
	"github.com/soyunomas/dupefinder/internal/server"
	"github.com/soyunomas/dupefinder/internal/tools"
	"github.com/soyunomas/dupefinder/internal/watcher"
)

const version = "1.0.0"

// excludePatterns permite repetir -exclude.
type excludePatterns []string

func (e *excludePatterns) String() string { return strings.Join(*e, ", ") }
func (e *excludePatterns) Set(value string) error {
	*e = append(*e, value)
	return nil
}

// cli agrupa lo que no vive en el archivo de configuración.
type cli struct {
	dir        string
	output     string
	configPath string
	saveConfig bool
	watch      bool
	mcp        bool
	quiet      bool
	skip       []string // informe y log, que nunca se comparan
}

// parseArgs lee flags y argumentos posicionales. Solo los flags que el
// usuario escribió sobrescriben el archivo de configuración.
func parseArgs(args []string, stderr io.Writer) (*cli, *config.Config, error) {
	fs := flag.NewFlagSet("dupefinder", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var c cli
	var (
		chunkSize, digest, verify, onError string
		ignoreFile, format, sortOrder      string
		logLevel, logFile                  string
		workers                            int
		all, relative                      bool
		excludes                           excludePatterns
	)

	fs.StringVar(&c.dir, "dir", ".", "Directorio a escanear (sin recursión)")
	fs.StringVar(&c.output, "output", "", "Archivo del informe (por defecto stdout)")
	fs.StringVar(&c.configPath, "config", "", "Archivo de configuración INI")
	fs.BoolVar(&c.saveConfig, "save-config", false, "💾 Guarda la configuración efectiva y sale")
	fs.StringVar(&chunkSize, "chunk-size", "", "Bytes por paso de comparación (256, 4KiB...)")
	fs.StringVar(&digest, "digest", "", "Hash por bloque: sha1, sha256, sha512, md5, xxh64")
	fs.StringVar(&verify, "verify", "", "Verificación final: exact o digest")
	fs.IntVar(&workers, "workers", 0, "Grupos de tamaño en paralelo (0 = núcleos)")
	fs.StringVar(&onError, "on-error", "", "Ante un archivo ilegible: abort o skip")
	fs.Var(&excludes, "exclude", "Patrón a excluir (repetible)")
	fs.StringVar(&ignoreFile, "ignore-file", "", "Archivo con sintaxis gitignore (por defecto DIR/.dupeignore)")
	fs.StringVar(&format, "format", "", "Formato del informe: text, json, script")
	fs.BoolVar(&all, "all", false, "Incluye archivos sin duplicados como 'archivo: []'")
	fs.BoolVar(&relative, "relative", false, "Muestra nombres en lugar de rutas completas")
	fs.StringVar(&sortOrder, "sort", "", "Orden: discovery, path, size, count")
	fs.BoolVar(&c.watch, "watch", false, "👀 Vuelve a escanear cuando cambia el directorio")
	fs.BoolVar(&c.mcp, "mcp", false, "Sirve la herramienta find_duplicates por MCP (stdio)")
	fs.StringVar(&logLevel, "log-level", "", "Nivel de log: debug|info|warn|error")
	fs.StringVar(&logFile, "log-file", "", "Archivo de log (por defecto stderr)")
	fs.BoolVar(&c.quiet, "quiet", false, "Sin líneas de progreso")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1, 2:
		if set["dir"] {
			return nil, nil, errors.New("el directorio se indicó dos veces (-dir y posicional)")
		}
		c.dir = rest[0]
		if len(rest) == 2 {
			if set["output"] {
				return nil, nil, errors.New("la salida se indicó dos veces (-output y posicional)")
			}
			c.output = rest[1]
		}
	default:
		return nil, nil, fmt.Errorf("demasiados argumentos: %v", rest)
	}

	path, explicit := c.configPath, c.configPath != ""
	if !explicit {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, nil, err
	}
	if c.configPath == "" {
		c.configPath = path
	}

	if set["chunk-size"] {
		cfg.ChunkSize = chunkSize
	}
	if set["digest"] {
		cfg.Digest = digest
	}
	if set["verify"] {
		cfg.Verify = verify
	}
	if set["workers"] {
		cfg.Workers = workers
	}
	if set["on-error"] {
		cfg.OnError = onError
	}
	if set["exclude"] {
		cfg.Excludes = append(cfg.Excludes, excludes...)
	}
	if set["ignore-file"] {
		cfg.IgnoreFile = ignoreFile
	}
	if set["format"] {
		cfg.Format = format
	}
	if set["all"] {
		if all {
			cfg.Mode = "all"
		} else {
			cfg.Mode = "duplicates"
		}
	}
	if set["relative"] {
		cfg.Relative = relative
	}
	if set["sort"] {
		cfg.Sort = sortOrder
	}
	if set["log-level"] {
		cfg.LogLevel = logLevel
	}
	if set["log-file"] {
		cfg.LogFile = logFile
	}

	return &c, cfg, nil
}

func main() {
	c, cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		die(err, false)
	}
	// En modo MCP stdout es del transporte
	jsonMode := !c.mcp && jsonToStdout(cfg, c.output)

	// Todo se valida antes de leer un solo archivo
	resolved, err := cfg.Resolve()
	if err != nil {
		die(err, jsonMode)
	}

	if c.saveConfig {
		if c.configPath == "" {
			die(errors.New("no hay ruta para guardar la configuración; usa -config"), jsonMode)
		}
		if err := cfg.Save(c.configPath); err != nil {
			die(err, jsonMode)
		}
		fmt.Fprintf(os.Stderr, "💾 Configuración guardada en %s\n", c.configPath)
		return
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.mcp {
		handler := &tools.FindDuplicatesHandler{Config: cfg, Logger: logger}
		logger.Info("servidor MCP escuchando en stdio")
		if err := server.Setup(version, handler).Run(ctx, &mcp.StdioTransport{}); err != nil {
			logger.Error("error del servidor MCP", "error", err)
			os.Exit(1)
		}
		return
	}

	for _, p := range []string{c.output, cfg.LogFile} {
		if p != "" {
			c.skip = append(c.skip, p)
		}
	}
	matcher, err := scanner.NewMatcher(scanner.MatcherOptions{
		Dir:        c.dir,
		Patterns:   resolved.Excludes,
		IgnoreFile: cfg.IgnoreFile,
		Skip:       c.skip,
	})
	if err != nil {
		die(err, jsonMode)
	}

	var progress io.Writer = os.Stderr
	if c.quiet || (resolved.Format == config.FormatJSON && c.output == "") {
		progress = nil
	}

	runner, err := engine.New(engine.Options{
		Compare:  resolved.Compare,
		Workers:  resolved.Workers,
		Policy:   resolved.Policy,
		Matcher:  matcher,
		Logger:   logger,
		Progress: progress,
	})
	if err != nil {
		die(err, jsonMode)
	}

	if progress != nil {
		fmt.Fprintf(progress, "🚀 Dupefinder v%s - Escaneando: %s\n", version, c.dir)
		fmt.Fprintf(progress, "🔐 Comparación: %s por bloques de %s, verificación %s\n",
			resolved.Compare.Algorithm, humanize.IBytes(uint64(resolved.Compare.ChunkSize)), resolved.Compare.Verify)
		fmt.Fprintln(progress, "------------------------------------------------")
	}

	if err := runOnce(ctx, runner, c, resolved, progress); err != nil {
		die(err, jsonMode)
	}

	if c.watch {
		if err := watch(ctx, runner, c, resolved, matcher, logger, progress); err != nil {
			die(err, jsonMode)
		}
	}
}

// runOnce escanea, escribe el informe y resume en stderr.
func runOnce(ctx context.Context, runner *engine.Runner, c *cli, resolved *config.Resolved, progress io.Writer) error {
	res, err := runner.Run(ctx, c.dir)
	if err != nil {
		return err
	}

	rep := report.Build(res, report.Metadata{
		ScannedPath: c.dir,
		Digest:      resolved.Compare.Algorithm.String(),
		Verify:      resolved.Compare.Verify.String(),
		ChunkSize:   resolved.Compare.ChunkSize,
		Timestamp:   time.Now(),
	}, resolved.Report)

	if err := writeReport(c.output, res, rep, resolved); err != nil {
		return err
	}

	if progress != nil {
		printSummary(progress, rep, c.output)
	}
	return nil
}

// writeReport crea el archivo de salida después del escaneo, de modo que un
// escaneo fallido no deja un informe a medias.
func writeReport(output string, res *engine.Result, rep report.Report, resolved *config.Resolved) error {
	if output == "" {
		return render(os.Stdout, res, rep, resolved)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("no se pudo crear el informe: %w", err)
	}
	if err := render(f, res, rep, resolved); err != nil {
		f.Close()
		return fmt.Errorf("no se pudo escribir el informe: %w", err)
	}
	return f.Close()
}

func render(w io.Writer, res *engine.Result, rep report.Report, resolved *config.Resolved) error {
	switch resolved.Format {
	case config.FormatJSON:
		return report.WriteJSON(w, rep)
	case config.FormatScript:
		return report.WriteScript(w, res.Duplicates, resolved.Report)
	default:
		return report.WriteText(w, res.Duplicates, resolved.Report)
	}
}

func printSummary(w io.Writer, rep report.Report, output string) {
	fmt.Fprintln(w, "------------------------------------------------")
	if rep.Summary.TotalDuplicates == 0 {
		fmt.Fprintln(w, "✅ ¡Limpio! No se encontraron duplicados.")
	} else {
		fmt.Fprintf(w, "🏁 Escaneo terminado. Duplicados: %s en %s grupos\n",
			humanize.Comma(rep.Summary.TotalDuplicates), humanize.Comma(int64(len(rep.Groups))))
		fmt.Fprintf(w, "💾 Espacio recuperable: %s\n", rep.Summary.BytesSavedHuman)
	}
	if n := len(rep.Failures); n > 0 {
		fmt.Fprintf(w, "⚠️  Archivos con errores de acceso: %d\n", n)
	}
	fmt.Fprintf(w, "⏱️  %s, %s comparaciones\n", rep.Metadata.Duration, humanize.Comma(rep.Summary.Comparisons))
	if output != "" {
		fmt.Fprintf(w, "📄 Informe: %s\n", output)
	}
}

// watch repite runOnce tras cada lote de cambios hasta Ctrl+C.
func watch(ctx context.Context, runner *engine.Runner, c *cli, resolved *config.Resolved, matcher *scanner.Matcher, logger *slog.Logger, progress io.Writer) error {
	w, err := watcher.NewWatcher(c.dir, matcher, watcher.DefaultInterval, logger, c.skip...)
	if err != nil {
		return fmt.Errorf("no se pudo vigilar %s: %w", c.dir, err)
	}
	defer w.Close()
	go w.Start()

	if progress != nil {
		fmt.Fprintf(progress, "👀 Vigilando %s (Ctrl+C para salir)\n", c.dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-w.Changes():
			logger.Info("cambios detectados", "count", len(batch))
			if progress != nil {
				fmt.Fprintf(progress, "\n🔄 %d cambios, escaneando de nuevo...\n", len(batch))
			}
			if err := runOnce(ctx, runner, c, resolved, progress); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Un archivo que desaparece a mitad de escaneo no detiene la vigilancia
				logger.Error("escaneo fallido", "error", err)
				fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			}
		}
	}
}

// setupLogger escribe en stderr o en un archivo; nunca en stdout, que es
// del informe o del transporte MCP.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelWarn
	}

	var writer io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  No se pudo abrir el log %s: %v, se usa stderr\n", logFile, err)
		} else {
			writer = f
		}
	}

	return slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel}))
}

// die termina con código 1. Con el informe JSON en stdout también deja ahí
// un objeto {"error": ...} para quien consuma la salida.
func die(err error, jsonMode bool) {
	writeFatal(os.Stdout, os.Stderr, err, jsonMode)
	os.Exit(1)
}

func writeFatal(stdout, stderr io.Writer, err error, jsonMode bool) {
	if jsonMode {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(struct {
			Error string `json:"error"`
		}{err.Error()})
	}
	fmt.Fprintf(stderr, "❌ Error fatal: %v\n", err)
}

// jsonToStdout indica si el informe irá como JSON a stdout.
func jsonToStdout(cfg *config.Config, output string) bool {
	f, err := config.ParseFormat(cfg.Format)
	return err == nil && f == config.FormatJSON && output == ""
}
