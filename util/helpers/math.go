package helpers

import "golang.org/x/exp/constraints"

// Compare returns -1, 0 or 1. NaN sorts before every other float so the
// ordering stays total.
func Compare[T constraints.Ordered](a, b T) int {
	aNaN, bNaN := a != a, b != b
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func CompareFloat(a, b float64) int {
	return Compare(a, b)
}

func GetBit(b uint8, i uint8) bool {
	return b&(1<<i) != 0
}

func SetBit(b *uint8, i uint8, v bool) {
	if v {
		*b |= 1 << i
	} else {
		*b &^= 1 << i
	}
}
