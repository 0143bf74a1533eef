package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/soyunomas/dupefinder/internal/entities"
)

// ClusterOrder define el orden de los grupos en el informe.
// La elección del representante no cambia: solo el orden de las líneas.
type ClusterOrder int

const (
	OrderDiscovery ClusterOrder = iota // Default
	OrderPath
	OrderSize
	OrderCount
)

func ParseClusterOrder(name string) (ClusterOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "discovery", "":
		return OrderDiscovery, nil
	case "path":
		return OrderPath, nil
	case "size":
		return OrderSize, nil
	case "count":
		return OrderCount, nil
	default:
		return 0, fmt.Errorf("orden desconocido: %s", name)
	}
}

// SortClusters devuelve una copia ordenada; el DuplicateMap no se toca.
func SortClusters(clusters []*entities.Cluster, order ClusterOrder) []*entities.Cluster {
	out := make([]*entities.Cluster, len(clusters))
	copy(out, clusters)
	if order == OrderDiscovery {
		return out
	}

	// Estable: a igualdad de criterio se conserva el orden de descubrimiento.
	sort.SliceStable(out, func(i, j int) bool {
		c1 := out[i]
		c2 := out[j]

		switch order {

		case OrderPath:
			return c1.Representative.Path < c2.Representative.Path

		case OrderSize:
			// [0] el que más espacio desperdicia
			w1 := c1.Representative.Size * int64(len(c1.Duplicates))
			w2 := c2.Representative.Size * int64(len(c2.Duplicates))
			if w1 != w2 {
				return w1 > w2
			}
			return c1.Representative.Size > c2.Representative.Size

		case OrderCount:
			return len(c1.Duplicates) > len(c2.Duplicates)
		}
		return false
	})
	return out
}
