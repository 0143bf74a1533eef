package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/soyunomas/dupefinder/internal/scanner"
)

// DefaultInterval es la ventana de calma antes de volver a escanear.
const DefaultInterval = 300 * time.Millisecond

// Watcher vigila un único directorio, sin recursión, igual que el escaneo.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	matcher   *scanner.Matcher
	skip      map[string]struct{}
	dir       string
	logger    *slog.Logger
}

// NewWatcher empieza a vigilar dir. Las rutas de skip (por ejemplo el propio
// archivo de informe) nunca generan cambios.
func NewWatcher(dir string, matcher *scanner.Matcher, interval time.Duration, logger *slog.Logger, skip ...string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	skipSet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		if abs, err := filepath.Abs(p); err == nil {
			skipSet[abs] = struct{}{}
		}
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(interval),
		matcher:   matcher,
		skip:      skipSet,
		dir:       dir,
		logger:    logger,
	}, nil
}

// Changes entrega los lotes de cambios ya agrupados.
func (w *Watcher) Changes() <-chan []Change {
	return w.debouncer.Output()
}

// Start procesa eventos hasta que se cierre el watcher. Llamar en una goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if abs, err := filepath.Abs(path); err == nil {
		if _, ok := w.skip[abs]; ok {
			return
		}
	}

	// Los subdirectorios no forman parte del escaneo
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			return
		}
	}

	if w.matcher.ShouldIgnore(path) {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.logger.Debug("change detected", "path", path, "op", op)
	w.debouncer.Add(path, op)
}

// Close deja de vigilar y cancela cualquier lote aún no entregado.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
