package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/soyunomas/dupefinder/internal/engine"
	"github.com/soyunomas/dupefinder/internal/entities"
)

// --- ESTRUCTURAS PARA EL REPORTE FINAL ---

type Report struct {
	Summary  Summary       `json:"summary"`
	Groups   []GroupResult `json:"groups"`
	Failures []FailureInfo `json:"failures,omitempty"`
	Metadata Metadata      `json:"metadata"`
}

type Metadata struct {
	ScannedPath string    `json:"scanned_path"`
	Digest      string    `json:"digest"`
	Verify      string    `json:"verify"`
	ChunkSize   int       `json:"chunk_size"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    string    `json:"duration_human"`
}

type Summary struct {
	TotalFilesScanned int64  `json:"total_files_scanned"`
	Representatives   int    `json:"representatives"`
	TotalDuplicates   int64  `json:"total_duplicates"`
	Comparisons       int64  `json:"comparisons"`
	BytesSaved        int64  `json:"bytes_saved"`
	BytesSavedHuman   string `json:"bytes_saved_human"`
}

type GroupResult struct {
	Size           int64    `json:"file_size"`
	Representative string   `json:"representative"`
	Duplicates     []string `json:"duplicates"`
}

type FailureInfo struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

// Mode elige qué representantes aparecen en el informe.
type Mode int

const (
	ModeDuplicates Mode = iota // solo los que tienen copias
	ModeAll
)

func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "duplicates", "":
		return ModeDuplicates, nil
	case "all":
		return ModeAll, nil
	default:
		return 0, fmt.Errorf("modo de informe desconocido: %s", name)
	}
}

// Options controla el renderizado. El DuplicateMap completo no cambia:
// omitir representantes sin copias es solo una decisión de presentación.
type Options struct {
	Mode     Mode
	Relative bool // nombres en lugar de rutas completas
	Order    engine.ClusterOrder
}

func (o Options) name(f *entities.FileHandle) string {
	if o.Relative {
		return f.Name
	}
	return f.Path
}

func (o Options) clusters(dm *entities.DuplicateMap) []*entities.Cluster {
	var out []*entities.Cluster
	for _, c := range engine.SortClusters(dm.Clusters(), o.Order) {
		if o.Mode == ModeDuplicates && !c.HasDuplicates() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// WriteText escribe una línea por representante:
//
//	representante: [duplicado, duplicado]
func WriteText(w io.Writer, dm *entities.DuplicateMap, opts Options) error {
	bw := bufio.NewWriter(w)
	for _, c := range opts.clusters(dm) {
		dups := make([]string, len(c.Duplicates))
		for i, d := range c.Duplicates {
			dups[i] = opts.name(d)
		}
		fmt.Fprintf(bw, "%s: [%s]\n", opts.name(c.Representative), strings.Join(dups, ", "))
	}
	return bw.Flush()
}

// Build resume un resultado para JSON o para el script de revisión.
func Build(res *engine.Result, meta Metadata, opts Options) Report {
	meta.ScannedPath = res.Dir
	meta.Duration = res.Duration.String()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	rep := Report{
		Metadata: meta,
		Summary: Summary{
			TotalFilesScanned: res.TotalFilesScanned,
			Representatives:   res.Duplicates.Len(),
			Comparisons:       res.Comparisons,
		},
		Groups: []GroupResult{},
	}

	for _, c := range opts.clusters(res.Duplicates) {
		g := GroupResult{
			Size:           c.Representative.Size,
			Representative: opts.name(c.Representative),
			Duplicates:     []string{},
		}
		for _, d := range c.Duplicates {
			g.Duplicates = append(g.Duplicates, opts.name(d))
			rep.Summary.TotalDuplicates++
			rep.Summary.BytesSaved += d.Size
		}
		rep.Groups = append(rep.Groups, g)
	}

	for _, f := range res.Failures {
		rep.Failures = append(rep.Failures, FailureInfo{Path: f.Path, Op: f.Op, Error: f.Err.Error()})
	}

	rep.Summary.BytesSavedHuman = humanize.Bytes(uint64(rep.Summary.BytesSaved))
	return rep
}

func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteScript genera un script de revisión; no borra nada por sí mismo.
// Las rutas siempre son absolutas y van entre comillas simples, así el
// script no depende del directorio desde el que se ejecute y ningún nombre
// de archivo se interpreta como código.
func WriteScript(w io.Writer, dm *entities.DuplicateMap, opts Options) error {
	opts.Mode = ModeDuplicates

	clusters := opts.clusters(dm)
	var saved int64
	for _, c := range clusters {
		for _, d := range c.Duplicates {
			saved += d.Size
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#!/bin/sh\n")
	fmt.Fprintf(bw, "# Generado por dupefinder\n")
	fmt.Fprintf(bw, "# Espacio recuperable: %s\n", humanize.Bytes(uint64(saved)))
	fmt.Fprintf(bw, "echo 'Iniciando limpieza...'\n\n")

	for _, c := range clusters {
		rep, err := filepath.Abs(c.Representative.Path)
		if err != nil {
			return err
		}
		// En un comentario basta con que no haya saltos de línea
		fmt.Fprintf(bw, "# Representante: %s (%s)\n", strconv.Quote(rep), humanize.Bytes(uint64(c.Representative.Size)))
		for _, d := range c.Duplicates {
			path, err := filepath.Abs(d.Path)
			if err != nil {
				return err
			}
			fmt.Fprintf(bw, "rm -v -- %s\n", shellQuote(path))
		}
		fmt.Fprintf(bw, "\n")
	}
	return bw.Flush()
}

// shellQuote devuelve s como literal POSIX entre comillas simples.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
