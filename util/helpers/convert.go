package helpers

import (
	"fmt"
)

// ToInt64 converts any Go integer or float to int64. Floats truncate.
func ToInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return int64(n)
	case float64:
		return int64(n)
	}
	panic(fmt.Errorf("invalid numeric value => %T(%v)", v, v))
}

func ToUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint:
		return uint64(n)
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	}
	return uint64(ToInt64(v))
}

func ToFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	case uint, uint8, uint16, uint32, uint64:
		return float64(ToUint64(n))
	}
	return float64(ToInt64(v))
}
