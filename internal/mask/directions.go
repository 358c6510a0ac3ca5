package mask

import "fmt"

// directionSet records, per mask cell, which travel directions have already
// entered it. Four bits are used per cell.
type directionSet []uint8

func newDirectionSet(n int) directionSet {
	return make(directionSet, n)
}

func directionBit(di int) uint8 {
	if di < 0 || di >= len(directions) {
		panic(fmt.Sprintf("mask: unsupported flood direction %d", di))
	}
	return 1 << uint(di)
}

func (s directionSet) has(i, di int) bool {
	return s[i]&directionBit(di) != 0
}

func (s directionSet) mark(i, di int) {
	s[i] |= directionBit(di)
}

func (s directionSet) any(i int) bool {
	return s[i] != 0
}
