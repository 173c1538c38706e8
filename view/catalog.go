package view

import (
	"context"
	"slices"

	"github.com/mbolis/form-flow/client"
	"github.com/mbolis/form-flow/model"
	"github.com/mbolis/form-flow/pager"
)

// Catalog lists surveys, either every survey or only the user's own.
// The whole list is loaded and paged locally, so moving between pages never
// waits on the backend.
type Catalog struct {
	lifecycle
	backend Backend
	session client.Session
	mine    bool
	size    int

	items     []model.SurveySummary
	requested int
	page      pager.Page[model.SurveySummary]
}

func NewCatalog(backend Backend, session client.Session, mine bool, size int) *Catalog {
	if size < 1 {
		size = pager.DefaultSize
	}
	c := &Catalog{
		backend:   backend,
		session:   session,
		mine:      mine,
		size:      size,
		requested: 1,
	}
	c.init("catalog")
	c.repaginate()
	return c
}

// Load replaces the list with the backend's. On failure the current list
// is kept and a notice is set.
func (c *Catalog) Load(ctx context.Context) error {
	t := c.begin()
	items, err := c.fetchAll(ctx)
	if err != nil {
		c.fail(t, "load", "Could not load surveys.", err)
		return err
	}
	c.apply(t, "load", func() {
		c.items = items
		c.notice = ""
		c.repaginate()
	})
	return nil
}

func (c *Catalog) fetchAll(ctx context.Context) ([]model.SurveySummary, error) {
	var items []model.SurveySummary
	for n := 1; ; n++ {
		p, err := c.backend.Surveys(ctx, c.session, n, c.mine)
		if err != nil {
			return nil, err
		}
		// a corrected page means we went past the end
		if p.Page < n {
			return items, nil
		}
		items = append(items, p.Surveys...)
		if p.Page >= p.TotalPages || len(p.Surveys) == 0 {
			return items, nil
		}
	}
}

// SetPage shows page n, corrected into the valid range.
func (c *Catalog) SetPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = n
	c.repaginate()
}

// Page is the page currently shown.
func (c *Catalog) Page() pager.Page[model.SurveySummary] {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.page
	p.Items = slices.Clone(p.Items)
	return p
}

// Len is the number of surveys in the whole list.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Catalog) repaginate() {
	c.page = pager.Paginate(c.items, c.size, c.requested)
	c.requested = c.page.Current
}
