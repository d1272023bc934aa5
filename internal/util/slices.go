// Package util holds small ordered-collection helpers. All functions
// return a new slice and leave their input untouched.
package util

// Insert returns a copy of s with vals inserted before index.
// A negative index counts from the end, an index past the end appends.
func Insert[T any](s []T, index int, vals ...T) []T {
	if index < 0 {
		index = max(len(s)+index, 0)
	}
	if index > len(s) {
		index = len(s)
	}

	out := make([]T, 0, len(s)+len(vals))
	out = append(out, s[:index]...)
	out = append(out, vals...)
	out = append(out, s[index:]...)
	return out
}

// Remove returns a copy of s without the elements from..to, inclusive.
// If to is smaller than from only s[from] is removed; if to is past the end
// everything from from onwards is removed. An out-of-range from yields a
// plain copy.
func Remove[T any](s []T, from, to int) []T {
	if from < 0 || from >= len(s) {
		return append([]T(nil), s...)
	}
	if to < from {
		to = from
	}
	if to >= len(s) {
		to = len(s) - 1
	}

	out := make([]T, 0, len(s)-(to-from+1))
	out = append(out, s[:from]...)
	out = append(out, s[to+1:]...)
	return out
}
