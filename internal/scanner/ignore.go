package scanner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// DefaultIgnoreFile se busca dentro del directorio escaneado.
const DefaultIgnoreFile = ".dupeignore"

// MatcherOptions configura qué archivos no participan en la búsqueda.
type MatcherOptions struct {
	Dir        string
	Patterns   []string // globs doublestar contra el nombre del archivo
	IgnoreFile string   // sintaxis gitignore; vacío = Dir/.dupeignore
	Skip       []string // rutas exactas, p. ej. el archivo de informe
}

// Matcher combina patrones de la línea de comandos con un archivo de exclusión.
type Matcher struct {
	patterns []string
	skip     map[string]struct{}
	rules    gitignore.GitIgnore
}

// NewMatcher valida los patrones y carga el archivo de exclusión si existe.
func NewMatcher(opts MatcherOptions) (*Matcher, error) {
	for _, p := range opts.Patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("patrón de exclusión inválido: %s", p)
		}
	}

	ignoreFile := opts.IgnoreFile
	if ignoreFile == "" && opts.Dir != "" {
		ignoreFile = filepath.Join(opts.Dir, DefaultIgnoreFile)
	}

	m := &Matcher{patterns: opts.Patterns, skip: make(map[string]struct{})}
	for _, p := range opts.Skip {
		m.skip[absPath(p)] = struct{}{}
	}
	if ignoreFile != "" {
		m.skip[absPath(ignoreFile)] = struct{}{}
		rules, err := loadIgnoreFile(ignoreFile, opts.Dir)
		if err != nil {
			return nil, err
		}
		m.rules = rules
	}
	return m, nil
}

// ShouldIgnore indica si el archivo con ese nombre queda fuera.
// El propio archivo de exclusión nunca se compara.
func (m *Matcher) ShouldIgnore(path string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.skip[absPath(path)]; ok {
		return true
	}

	name := filepath.Base(path)
	for _, p := range m.patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}

	if m.rules != nil {
		match := m.rules.Relative(name, false)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// loadIgnoreFile devuelve nil si el archivo no existe.
func loadIgnoreFile(path, baseDir string) (gitignore.GitIgnore, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &AccessError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil), nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
