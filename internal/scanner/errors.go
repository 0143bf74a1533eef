package scanner

import "fmt"

// AccessError indica que una ruta no se puede abrir o consultar
// (permisos, desaparecida, archivo especial).
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("sin acceso (%s) a %s: %v", e.Op, e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }
