package entities

import (
	"fmt"
)

// Cluster es un representante y la lista de archivos idénticos a él.
type Cluster struct {
	Representative *FileHandle   `json:"representative"`
	Duplicates     []*FileHandle `json:"duplicates"`
}

// HasDuplicates indica si el representante tiene al menos una copia.
func (c *Cluster) HasDuplicates() bool {
	return len(c.Duplicates) > 0
}

// DuplicateMap asocia cada representante con sus duplicados.
// Cada archivo aparece exactamente una vez: como clave o dentro de una lista.
type DuplicateMap struct {
	clusters []*Cluster
	byPath   map[string]*Cluster
	files    int
}

func NewDuplicateMap() *DuplicateMap {
	return &DuplicateMap{byPath: make(map[string]*Cluster)}
}

// AddRepresentative añade f como nuevo representante, detrás de los existentes.
func (dm *DuplicateMap) AddRepresentative(f *FileHandle) *Cluster {
	c := &Cluster{Representative: f, Duplicates: []*FileHandle{}}
	dm.clusters = append(dm.clusters, c)
	dm.byPath[f.Path] = c
	dm.files++
	return c
}

// AddDuplicate añade f a la lista del representante c.
func (dm *DuplicateMap) AddDuplicate(c *Cluster, f *FileHandle) {
	c.Duplicates = append(c.Duplicates, f)
	dm.files++
}

// Get busca el grupo cuyo representante tiene esa ruta.
func (dm *DuplicateMap) Get(path string) (*Cluster, bool) {
	c, ok := dm.byPath[path]
	return c, ok
}

// Clusters devuelve los grupos en orden de inserción.
func (dm *DuplicateMap) Clusters() []*Cluster {
	return dm.clusters
}

// Len es el número de representantes.
func (dm *DuplicateMap) Len() int {
	return len(dm.clusters)
}

// FileCount cuenta representantes más duplicados.
func (dm *DuplicateMap) FileCount() int {
	return dm.files
}

// DuplicateCount cuenta solo los duplicados.
func (dm *DuplicateMap) DuplicateCount() int {
	return dm.files - len(dm.clusters)
}

// Merge une other en dm conservando el orden. Dos grupos de tamaños
// distintos nunca comparten representante; si ocurre es un error.
func (dm *DuplicateMap) Merge(other *DuplicateMap) error {
	for _, c := range other.clusters {
		if _, exists := dm.byPath[c.Representative.Path]; exists {
			return fmt.Errorf("representante duplicado al fusionar: %s", c.Representative.Path)
		}
	}
	for _, c := range other.clusters {
		dm.clusters = append(dm.clusters, c)
		dm.byPath[c.Representative.Path] = c
		dm.files += 1 + len(c.Duplicates)
	}
	return nil
}
