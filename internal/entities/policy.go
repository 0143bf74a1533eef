package entities

import (
	"fmt"
	"strings"
)

// ErrorPolicy decide qué hacer con un archivo inaccesible o una lectura fallida.
type ErrorPolicy int

const (
	// PolicyAbort corta el escaneo con el primer error.
	PolicyAbort ErrorPolicy = iota // Default
	// PolicySkip registra el fallo y continúa. Una pareja que no se pudo
	// leer cuenta como "no duplicados".
	PolicySkip
)

func ParseErrorPolicy(name string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "abort", "":
		return PolicyAbort, nil
	case "skip":
		return PolicySkip, nil
	default:
		return 0, fmt.Errorf("política de errores desconocida: %s", name)
	}
}

func (p ErrorPolicy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "abort"
}
