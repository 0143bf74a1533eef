package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/soyunomas/dupefinder/internal/entities"
	"github.com/soyunomas/dupefinder/internal/hasher"
	"github.com/soyunomas/dupefinder/internal/scanner"
)

type Options struct {
	Compare  hasher.Options
	Workers  int // <= 0 usa runtime.NumCPU()
	Policy   entities.ErrorPolicy
	Matcher  *scanner.Matcher
	Logger   *slog.Logger
	Progress io.Writer // líneas de avance para humanos; nil las silencia
}

// Result es el resultado completo de un escaneo. Pertenece a quien lo recibe.
type Result struct {
	Dir               string
	TotalFilesScanned int64
	SizeGroups        int
	Candidates        int64
	Comparisons       int64
	Duplicates        *entities.DuplicateMap
	Failures          []entities.Failure
	Duration          time.Duration
}

type Runner struct {
	opts     Options
	comparer *hasher.Comparer
}

// New valida la configuración de comparación antes de tocar el disco.
func New(opts Options) (*Runner, error) {
	if opts.Compare.ChunkSize == 0 {
		opts.Compare.ChunkSize = hasher.DefaultChunkSize
	}
	comparer, err := hasher.NewComparer(opts.Compare)
	if err != nil {
		return nil, fmt.Errorf("configuración inválida: %w", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{opts: opts, comparer: comparer}, nil
}

func (r *Runner) progressf(format string, args ...any) {
	if r.opts.Progress != nil {
		fmt.Fprintf(r.opts.Progress, format, args...)
	}
}

// Run lista dir, agrupa por tamaño y clasifica cada grupo.
func (r *Runner) Run(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()

	// --- PASO 1: LISTADO ---
	r.progressf("🔍 Fase 1: Listando %s...\n", dir)
	paths, err := scanner.List(ctx, dir, r.opts.Matcher)
	if err != nil {
		return nil, fmt.Errorf("fallo en scanner: %w", err)
	}

	res, err := r.RunPaths(ctx, paths)
	if err != nil {
		return nil, err
	}
	res.Dir = dir
	res.Duration = time.Since(start)
	return res, nil
}

// RunPaths procesa una lista de rutas ya resuelta, en el orden dado.
func (r *Runner) RunPaths(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	logger := r.opts.Logger

	// --- PASO 2: PARTICIÓN POR TAMAÑO ---
	groups, failures, err := scanner.Partition(paths, r.opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("fallo en scanner: %w", err)
	}
	for _, f := range failures {
		logger.Warn("archivo omitido", "path", f.Path, "error", f.Err)
	}

	var candidates int64
	var jobs []int
	sizes := groups.Sizes()
	for i, size := range sizes {
		if n := groups.Bucket(size).Count; n > 1 {
			candidates += n
			jobs = append(jobs, i)
		}
	}
	r.progressf("   -> %s archivos en %d tamaños. %s candidatos por tamaño.\n",
		humanize.Comma(groups.FileCount()), groups.Len(), humanize.Comma(candidates))
	logger.Info("partition complete",
		"files", groups.FileCount(),
		"sizeGroups", groups.Len(),
		"candidates", candidates,
	)

	// --- PASO 3: COMPARACIÓN POR BLOQUES ---
	r.progressf("🔍 Fase 2: Comparando bloques (%s, %s, %d bytes)...\n",
		r.opts.Compare.Algorithm, r.opts.Compare.Verify, r.opts.Compare.ChunkSize)

	var comparisons atomic.Int64
	eq := func(a, b *entities.FileHandle) (bool, error) {
		comparisons.Add(1)
		return r.comparer.Equal(a.Path, b.Path)
	}

	perGroup, groupFailures, err := r.classifyGroups(ctx, groups, sizes, jobs, eq)
	if err != nil {
		return nil, err
	}

	// --- PASO 4: FUSIÓN EN ORDEN DE DESCUBRIMIENTO ---
	merged := entities.NewDuplicateMap()
	for i, size := range sizes {
		dm := perGroup[i]
		if dm == nil {
			// grupo de un solo archivo: representante sin duplicados
			dm = entities.NewDuplicateMap()
			dm.AddRepresentative(groups.Bucket(size).Files[0])
		}
		if err := merged.Merge(dm); err != nil {
			return nil, err
		}
		failures = append(failures, groupFailures[i]...)
	}

	r.progressf("   -> %d comparaciones, %d duplicados.\n", comparisons.Load(), merged.DuplicateCount())
	logger.Info("classification complete",
		"comparisons", comparisons.Load(),
		"representatives", merged.Len(),
		"duplicates", merged.DuplicateCount(),
		"failures", len(failures),
	)

	return &Result{
		TotalFilesScanned: groups.FileCount(),
		SizeGroups:        groups.Len(),
		Candidates:        candidates,
		Comparisons:       comparisons.Load(),
		Duplicates:        merged,
		Failures:          failures,
		Duration:          time.Since(start),
	}, nil
}

// classifyGroups reparte los grupos con candidatos entre workers. Los
// resultados se guardan por índice, así la fusión no depende del reparto.
func (r *Runner) classifyGroups(ctx context.Context, groups *entities.SizeGroup, sizes []int64, jobIdx []int, eq EqualFunc) ([]*entities.DuplicateMap, [][]entities.Failure, error) {
	type result struct {
		idx      int
		dm       *entities.DuplicateMap
		failures []entities.Failure
		err      error
	}

	perGroup := make([]*entities.DuplicateMap, len(sizes))
	perFailures := make([][]entities.Failure, len(sizes))
	if len(jobIdx) == 0 {
		return perGroup, perFailures, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, len(jobIdx))
	results := make(chan result, len(jobIdx))

	numWorkers := min(r.opts.Workers, len(jobIdx))
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				files := groups.Bucket(sizes[idx]).Files
				dm, failures, err := Classify(ctx, files, eq, r.opts.Policy, r.opts.Logger)
				results <- result{idx, dm, failures, err}
			}
		}()
	}

	for _, idx := range jobIdx {
		jobs <- idx
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstErr error
	processed := 0
	for res := range results {
		processed++
		if processed%50 == 0 {
			r.progressf("#")
		}
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("fallo clasificando grupo de %s: %w",
					humanize.Bytes(uint64(sizes[res.idx])), res.err)
				cancel()
			}
			continue
		}
		perGroup[res.idx] = res.dm
		perFailures[res.idx] = res.failures
	}
	if processed >= 50 {
		r.progressf("\n")
	}

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return perGroup, perFailures, nil
}
