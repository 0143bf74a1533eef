package watcher

import (
	"sync"
	"time"
)

// Op es el tipo de cambio observado sobre un archivo.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	}
	return "unknown"
}

// Change es un cambio ya agrupado por el debouncer.
type Change struct {
	Path string
	Op   Op
}

// Debouncer acumula cambios y los entrega en lote tras un periodo de calma.
// Varios cambios sobre la misma ruta dentro de la ventana cuentan como uno.
type Debouncer struct {
	interval time.Duration
	pending  map[string]Change
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	output   chan []Change
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]Change),
		output:   make(chan []Change, 16),
	}
}

func (d *Debouncer) Output() <-chan []Change {
	return d.output
}

// Add registra un cambio; el último tipo observado para una ruta gana.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = Change{Path: path, Op: op}

	// Cada cambio nuevo reinicia la ventana
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Change, 0, len(d.pending))
	for _, c := range d.pending {
		batch = append(batch, c)
	}
	d.pending = make(map[string]Change)

	// Si nadie consume, el lote se descarta: el siguiente lo reemplaza
	select {
	case d.output <- batch:
	default:
	}
}

// Stop descarta lo pendiente. Después de Stop no se entrega ningún lote más,
// así un escaneo no arranca cuando el watcher ya se cerró.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]Change)
}
