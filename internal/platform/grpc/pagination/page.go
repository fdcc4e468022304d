// Package pagination normalizes page size requests for list endpoints.
package pagination

// Limits bounds the page size a list endpoint serves. A zero Limits serves
// one item per page.
type Limits struct {
	Default int
	Max     int
}

// Size resolves a requested page size. Non-positive requests take Default
// and anything above Max is capped; the result is always at least one.
func (l Limits) Size(requested int) int {
	size := requested
	if size <= 0 {
		size = l.Default
	}
	if l.Max > 0 {
		size = min(size, l.Max)
	}
	return max(size, 1)
}
