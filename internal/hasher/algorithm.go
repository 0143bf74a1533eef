package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Algorithm es el conjunto cerrado de digests aceptados para el corte
// temprano por bloque. Se elige una vez al arrancar.
type Algorithm int

const (
	SHA1 Algorithm = iota // Default
	SHA256
	SHA512
	MD5
	XXH64
)

// DefaultAlgorithm es un digest de 160 bits disponible en cualquier sitio.
const DefaultAlgorithm = SHA1

var algorithmNames = map[Algorithm]string{
	SHA1:   "sha1",
	SHA256: "sha256",
	SHA512: "sha512",
	MD5:    "md5",
	XXH64:  "xxh64",
}

// ParseAlgorithm traduce el nombre configurado. Un nombre desconocido es un
// error de configuración y debe detectarse antes de abrir ningún archivo.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sha1", "":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	case "md5":
		return MD5, nil
	case "xxh64", "xxhash":
		return XXH64, nil
	default:
		return 0, fmt.Errorf("algoritmo de hash no soportado: %s", name)
	}
}

func (a Algorithm) String() string {
	if n, ok := algorithmNames[a]; ok {
		return n
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Cryptographic es falso para digests que no resisten colisiones buscadas.
func (a Algorithm) Cryptographic() bool {
	return a != XXH64
}

// New devuelve un digest vacío del algoritmo.
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA256:
		return sha256.New()
	case SHA512:
		return sha512.New()
	case MD5:
		return md5.New()
	case XXH64:
		return xxhash.New()
	default:
		return sha1.New()
	}
}
