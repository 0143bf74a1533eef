package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// List devuelve los archivos regulares que cuelgan directamente de dir,
// sin recursión y ordenados por nombre. Enlaces simbólicos y archivos
// especiales se descartan.
func List(ctx context.Context, dir string, matcher *Matcher) ([]string, error) {
	root := filepath.Clean(dir)

	info, err := os.Stat(root)
	if err != nil {
		return nil, &AccessError{Path: root, Op: "stat", Err: err}
	}
	if !info.IsDir() {
		return nil, &AccessError{Path: root, Op: "list", Err: fs.ErrInvalid}
	}

	var (
		mu    sync.Mutex
		paths []string
	)

	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fs.SkipAll
		}
		if err != nil {
			if path == root {
				return &AccessError{Path: root, Op: "list", Err: err}
			}
			// Algo dentro de un subdirectorio que de todos modos no recorremos
			if filepath.Dir(path) != root {
				return nil
			}
			return &AccessError{Path: path, Op: "list", Err: err}
		}

		if path == root {
			return nil
		}
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.ShouldIgnore(path) {
			return nil
		}

		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
		return nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if walkErr != nil {
		return nil, walkErr
	}

	slices.Sort(paths)
	return paths, nil
}
