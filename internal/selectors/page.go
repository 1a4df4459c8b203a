package selectors

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one slice of an ordered result. NextPage is zero on the last page.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	NextPage int   `json:"next_page,omitempty"`
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func newPage[T any](items []T, total int64, page, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	p := Page[T]{Items: items, Total: total, Page: page, PageSize: size}
	if int64(page*size) < total {
		p.NextPage = page + 1
	}
	return p
}
