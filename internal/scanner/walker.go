package scanner

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/soyunomas/dupefinder/internal/entities"
)

// Partition agrupa las rutas por tamaño exacto con una sola consulta de
// metadatos por archivo. El orden dentro de cada cubo es el de entrada.
//
// Con PolicyAbort el primer AccessError corta la partición. Con PolicySkip
// el fallo se registra y la ruta queda fuera del resultado.
func Partition(paths []string, policy entities.ErrorPolicy) (*entities.SizeGroup, []entities.Failure, error) {
	groups := entities.NewSizeGroup()
	var failures []entities.Failure

	for _, path := range paths {
		info, err := os.Stat(path)
		if err == nil && !info.Mode().IsRegular() {
			err = fs.ErrInvalid
		}
		if err != nil {
			accessErr := &AccessError{Path: path, Op: "stat", Err: err}
			if policy == entities.PolicyAbort {
				return nil, nil, accessErr
			}
			failures = append(failures, entities.Failure{Path: path, Op: "stat", Err: accessErr})
			continue
		}

		groups.Add(&entities.FileHandle{
			Path: path,
			Name: filepath.Base(path),
			Size: info.Size(),
		})
	}

	return groups, failures, nil
}
