package hasher

import (
	"bytes"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"
)

// DefaultChunkSize es lo que se lee de cada archivo en cada paso de la comparación.
const DefaultChunkSize = 256

// VerifyMode decide qué pasa cuando los digests de un bloque coinciden.
type VerifyMode int

const (
	// VerifyExact compara además los bytes del bloque. Memoria acotada a un
	// par de bloques y resultado exacto aunque el digest colisione.
	VerifyExact VerifyMode = iota // Default
	// VerifyDigest confía en la igualdad del digest.
	VerifyDigest
)

func ParseVerifyMode(name string) (VerifyMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exact", "":
		return VerifyExact, nil
	case "digest":
		return VerifyDigest, nil
	default:
		return 0, fmt.Errorf("modo de verificación desconocido: %s", name)
	}
}

func (m VerifyMode) String() string {
	if m == VerifyDigest {
		return "digest"
	}
	return "exact"
}

// ReadError es un fallo de apertura o lectura durante una comparación.
type ReadError struct {
	Path string
	Op   string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("error de lectura (%s) en %s: %v", e.Op, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Options configura un Comparer.
type Options struct {
	Algorithm Algorithm
	ChunkSize int
	Verify    VerifyMode
}

// Comparer implementa la prueba de igualdad por parejas. Es seguro usarlo
// desde varias goroutines: el estado de cada comparación es local.
type Comparer struct {
	opts    Options
	newHash func() hash.Hash

	// bufferPool guarda un par de bloques por comparación
	bufferPool sync.Pool
}

// NewComparer valida las opciones y prepara el pool de buffers.
func NewComparer(opts Options) (*Comparer, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("tamaño de bloque inválido: %d", opts.ChunkSize)
	}
	if opts.Verify == VerifyDigest && !opts.Algorithm.Cryptographic() {
		return nil, fmt.Errorf("el modo digest exige un hash criptográfico, %s no lo es", opts.Algorithm)
	}
	return newComparer(opts, opts.Algorithm.New), nil
}

func newComparer(opts Options, newHash func() hash.Hash) *Comparer {
	c := &Comparer{opts: opts, newHash: newHash}
	size := opts.ChunkSize
	c.bufferPool.New = func() any {
		b := make([]byte, 2*size)
		return &b
	}
	return c
}

func (c *Comparer) Options() Options {
	return c.opts
}

type stream struct {
	r    io.Reader
	name string
}

// Equal compara dos archivos del mismo tamaño declarado. Con tamaños
// distintos el resultado no está definido.
func (c *Comparer) Equal(path1, path2 string) (bool, error) {
	f1, err := os.Open(path1)
	if err != nil {
		return false, &ReadError{Path: path1, Op: "open", Err: err}
	}
	defer f1.Close()

	f2, err := os.Open(path2)
	if err != nil {
		return false, &ReadError{Path: path2, Op: "open", Err: err}
	}
	defer f2.Close()

	return c.compare(stream{f1, path1}, stream{f2, path2})
}

// EqualReaders aplica la misma prueba sobre dos lectores arbitrarios.
func (c *Comparer) EqualReaders(r1, r2 io.Reader) (bool, error) {
	return c.compare(stream{r1, "reader#1"}, stream{r2, "reader#2"})
}

// compare lee ambos flujos a la par, un bloque por paso. Si los digests de
// un bloque difieren devuelve false sin leer nada más.
func (c *Comparer) compare(s1, s2 stream) (bool, error) {
	bufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtr)
	buf1 := (*bufPtr)[:c.opts.ChunkSize]
	buf2 := (*bufPtr)[c.opts.ChunkSize:]

	h1, h2 := c.newHash(), c.newHash()
	var sum1, sum2 []byte

	for {
		n1, err := readChunk(s1, buf1)
		if err != nil {
			return false, err
		}
		n2, err := readChunk(s2, buf2)
		if err != nil {
			return false, err
		}

		if n1 == 0 {
			// fin del primer archivo: iguales solo si el segundo también terminó
			return n2 == 0, nil
		}

		h1.Reset()
		h1.Write(buf1[:n1])
		sum1 = h1.Sum(sum1[:0])

		h2.Reset()
		h2.Write(buf2[:n2])
		sum2 = h2.Sum(sum2[:0])

		if !bytes.Equal(sum1, sum2) {
			return false, nil
		}
		if c.opts.Verify == VerifyExact && !bytes.Equal(buf1[:n1], buf2[:n2]) {
			return false, nil
		}
	}
}

// readChunk llena buf salvo al final del flujo. Devuelve 0 en EOF.
func readChunk(s stream, buf []byte) (int, error) {
	n, err := io.ReadFull(s.r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, &ReadError{Path: s.name, Op: "read", Err: err}
	}
	return n, nil
}
