// Package pager slices ordered lists into fixed-size, 1-based pages.
//
// Every function is pure: the corrected current page is recomputed from the
// list and page size each time, so a view never shows a page past the end
// after its list shrinks.
package pager

// DefaultSize is the number of surveys shown per catalog page.
const DefaultSize = 8

// TotalPages is ceil(n/size), but never less than 1 so that pagination
// controls always have a page to show.
func TotalPages(n, size int) int {
	if size < 1 || n <= 0 {
		return 1
	}
	return (n-1)/size + 1
}

// Clamp corrects page into [1, total].
func Clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page > total {
		return total
	}
	if page < 1 {
		return 1
	}
	return page
}

// Slice returns items[(page-1)*size : min(page*size, len(items))]. Pages
// outside the list yield an empty slice.
func Slice[T any](items []T, size, page int) []T {
	if size < 1 || page < 1 || page > TotalPages(len(items), size) || len(items) == 0 {
		return items[:0:0]
	}
	start := (page - 1) * size
	end := start + min(size, len(items)-start)
	return items[start:end:end]
}

// Page is one computed page of a list.
type Page[T any] struct {
	Items   []T `json:"items"`
	Current int `json:"page"`
	Total   int `json:"totalPages"`
	Size    int `json:"pageSize"`
}

// Paginate computes the page to display for a requested page number,
// correcting it to the last page when the list is shorter.
func Paginate[T any](items []T, size, requested int) Page[T] {
	total := TotalPages(len(items), size)
	current := Clamp(requested, total)
	return Page[T]{
		Items:   Slice(items, size, current),
		Current: current,
		Total:   total,
		Size:    size,
	}
}
