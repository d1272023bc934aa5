package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsert(t *testing.T) {
	base := []any{0, 1, 2, 3, 4, 5}

	tests := []struct {
		name  string
		index int
		vals  []any
		want  []any
	}{
		{"single element", 2, []any{"a"}, []any{0, 1, "a", 2, 3, 4, 5}},
		{"multiple elements", 3, []any{"hello", "world"}, []any{0, 1, 2, "hello", "world", 3, 4, 5}},
		{"negative index", -2, []any{"a"}, []any{0, 1, 2, 3, "a", 4, 5}},
		{"zero index", 0, []any{"a"}, []any{"a", 0, 1, 2, 3, 4, 5}},
		{"out of range", 9, []any{"a"}, []any{0, 1, 2, 3, 4, 5, "a"}},
		{"very negative", -20, []any{"a"}, []any{"a", 0, 1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Insert(base, tt.index, tt.vals...)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []any{0, 1, 2, 3, 4, 5}, base)
		})
	}
}

func TestRemove(t *testing.T) {
	base := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"single element", 3, 3, []string{"a", "b", "c", "e"}},
		{"range", 1, 3, []string{"a", "e"}},
		{"upper bound smaller", 1, -1, []string{"a", "c", "d", "e"}},
		{"upper bound too big", 1, 10, []string{"a"}},
		{"lower bound out of range", 10, 10, []string{"a", "b", "c", "d", "e"}},
		{"negative lower bound", -1, 2, []string{"a", "b", "c", "d", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Remove(base, tt.from, tt.to)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []string{"a", "b", "c", "d", "e"}, base)
		})
	}
}
