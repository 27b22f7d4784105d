// Package collections adapts the teacher toolchain's generic slice/map
// helpers (pkg/utils/array.go, map.go, pair.go): sorted iteration over
// maps, used by the linker arena's debug dump, and small map/slice
// transforms.
package collections

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Pair is a simple two-value tuple, used when zipping ids with their values.
type Pair[First any, Second any] struct {
	First  First
	Second Second
}

// MakePair constructs a Pair.
func MakePair[First any, Second any](first First, second Second) Pair[First, Second] {
	return Pair[First, Second]{First: first, Second: second}
}

// Keys returns the keys of m in unspecified order.
func Keys[K comparable, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the values of m in unspecified order.
func Values[K comparable, V any](m map[K]V) []V {
	values := make([]V, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}

// SortedKeys returns the keys of m sorted in ascending order. The linker
// uses it to dump its global symbol table in a stable order
// (Context.LogSummary), since Go map order is randomized.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Map applies f to every element of input, returning a new slice.
func Map[T any, U any](input []T, f func(T) U) []U {
	output := make([]U, len(input))
	for i, v := range input {
		output[i] = f(v)
	}
	return output
}

// Filter returns the elements of input for which keep returns true.
func Filter[T any](input []T, keep func(T) bool) []T {
	output := make([]T, 0, len(input))
	for _, v := range input {
		if keep(v) {
			output = append(output, v)
		}
	}
	return output
}
