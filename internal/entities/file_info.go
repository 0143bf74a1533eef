package entities

import (
	"fmt"
)

// FileHandle identifica un archivo por su ruta y el tamaño leído al escanear.
// El tamaño se consulta una sola vez; si el archivo cambia durante el escaneo
// el resultado queda indefinido.
type FileHandle struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size_bytes"`
}

// FileGroup representa un conjunto ordenado de archivos del mismo tamaño.
type FileGroup struct {
	Count int64         `json:"count"`
	Files []*FileHandle `json:"files"`
}

// Add agrega un archivo al grupo
func (fg *FileGroup) Add(f *FileHandle) {
	fg.Files = append(fg.Files, f)
	fg.Count++
}

// SizeGroup agrupa archivos por tamaño exacto.
// Las claves se recorren en el orden en que aparecieron por primera vez.
type SizeGroup struct {
	order   []int64
	buckets map[int64]*FileGroup
	files   int64
}

func NewSizeGroup() *SizeGroup {
	return &SizeGroup{buckets: make(map[int64]*FileGroup)}
}

// Add coloca el archivo en el cubo de su tamaño, creándolo si no existe.
func (sg *SizeGroup) Add(f *FileHandle) {
	group, exists := sg.buckets[f.Size]
	if !exists {
		group = &FileGroup{}
		sg.buckets[f.Size] = group
		sg.order = append(sg.order, f.Size)
	}
	group.Add(f)
	sg.files++
}

// Sizes devuelve los tamaños en orden de descubrimiento.
func (sg *SizeGroup) Sizes() []int64 {
	out := make([]int64, len(sg.order))
	copy(out, sg.order)
	return out
}

func (sg *SizeGroup) Bucket(size int64) *FileGroup {
	return sg.buckets[size]
}

// Len es el número de cubos.
func (sg *SizeGroup) Len() int {
	return len(sg.order)
}

// FileCount es el número total de archivos en todos los cubos.
func (sg *SizeGroup) FileCount() int64 {
	return sg.files
}

// Failure registra un archivo o una pareja descartada en modo permisivo.
type Failure struct {
	Path string `json:"path"`
	Op   string `json:"op"`
	Err  error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Op, f.Path, f.Err)
}
