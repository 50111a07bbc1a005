package resolver

import "errors"

// ErrEmptyList is returned when navigating an empty list. The viewing
// session must be closed.
var ErrEmptyList = errors.New("empty item list")

// Direction of a navigation step.
type Direction int

const (
	Next Direction = iota
	Prev
)

// Navigate returns the index one step from current in a list of n items,
// wrapping at both ends.
func Navigate(n, current int, dir Direction) (int, error) {
	if n <= 0 {
		return 0, ErrEmptyList
	}
	if current < 0 || current >= n {
		current = 0
	}
	if dir == Prev {
		return (current - 1 + n) % n, nil
	}
	return (current + 1) % n, nil
}
