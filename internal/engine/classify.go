package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/soyunomas/dupefinder/internal/entities"
	"github.com/soyunomas/dupefinder/internal/hasher"
)

// EqualFunc decide si dos archivos del mismo tamaño son idénticos.
type EqualFunc func(a, b *entities.FileHandle) (bool, error)

// Classify reparte un grupo de archivos del mismo tamaño entre representantes.
//
// El primer archivo es el primer representante. Cada archivo siguiente se
// compara con los representantes en orden de inserción y se queda con el
// primero que coincida; si ninguno coincide pasa a ser un representante nuevo.
// En el peor caso son O(k²) comparaciones para k archivos distintos.
//
// Con PolicySkip una pareja que no se puede leer cuenta como distinta. Un
// archivo que no coincide con nadie por eso sigue en el mapa como su propio
// representante, y aparece una vez en los fallos devueltos.
func Classify(ctx context.Context, handles []*entities.FileHandle, eq EqualFunc, policy entities.ErrorPolicy, logger *slog.Logger) (*entities.DuplicateMap, []entities.Failure, error) {
	dm := entities.NewDuplicateMap()
	if len(handles) == 0 {
		return dm, nil, nil
	}

	var failures []entities.Failure
	failed := make(map[string]bool)
	dm.AddRepresentative(handles[0])

	for _, f := range handles[1:] {
		var match *entities.Cluster

		for _, c := range dm.Clusters() {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}

			same, err := eq(c.Representative, f)
			if err != nil {
				var readErr *hasher.ReadError
				if policy == entities.PolicyAbort || !errors.As(err, &readErr) {
					return nil, nil, err
				}
				logger.Warn("pareja descartada por error de lectura",
					"representative", c.Representative.Path,
					"file", f.Path,
					"error", err,
				)
				// Un archivo ilegible cuenta una sola vez aunque falle contra
				// varios representantes
				if !failed[readErr.Path] {
					failed[readErr.Path] = true
					failures = append(failures, entities.Failure{Path: readErr.Path, Op: "compare", Err: err})
				}
				continue
			}
			if same {
				match = c
				break
			}
		}

		if match != nil {
			dm.AddDuplicate(match, f)
		} else {
			dm.AddRepresentative(f)
		}
	}

	return dm, failures, nil
}
