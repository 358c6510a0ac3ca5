package history

import (
	"maps"
	"slices"
)

// sortedIDs keeps listener order equal to registration order.
func sortedIDs[F any](m map[int]F) []int {
	return slices.Sorted(maps.Keys(m))
}
