package keyboard

import "strconv"

// Page is one window of a paginated list.
type Page struct {
	Index int // zero-based, clamped to the last page
	Count int // total pages, at least 1
	Start int
	End   int
}

// Paginate cuts total items into pages of size and returns the window for
// index. Out-of-range indexes are clamped.
func Paginate(total, size, index int) Page {
	if size < 1 {
		size = 1
	}
	count := max(1, (total+size-1)/size)
	index = min(max(index, 0), count-1)
	start := index * size
	return Page{Index: index, Count: count, Start: start, End: min(start+size, total)}
}

// Nav returns the previous/next row for p, with prefix+index as callback
// data. A single page has no row.
func (p Page) Nav(prefix string) []InlineBtn {
	var row []InlineBtn
	if p.Index > 0 {
		row = append(row, InlineBtn{Text: "« Prev", Data: prefix + strconv.Itoa(p.Index-1)})
	}
	if p.Index < p.Count-1 {
		row = append(row, InlineBtn{Text: "Next »", Data: prefix + strconv.Itoa(p.Index+1)})
	}
	return row
}
