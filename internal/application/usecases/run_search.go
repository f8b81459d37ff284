package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/domain/reservation"
)

// RunSearch submits criteria and then pulls up to Pages extra pages.
type RunSearch struct {
	Session *search.Session
	Pages   int
}

func (u RunSearch) Execute(ctx context.Context, c reservation.Criteria) (search.State, error) {
	if u.Session == nil {
		return search.State{}, fmt.Errorf("session is nil")
	}
	if c.Size == "" || c.Date == "" || c.Time == "" {
		return search.State{}, fmt.Errorf("size, date and time are required")
	}

	st := u.Session.Search(ctx, c)
	for i := 0; i < u.Pages && st.Error == "" && st.CanLoadMore; i++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st = u.Session.LoadMore(ctx)
	}
	if st.Error != "" {
		return st, errors.New(st.Error)
	}
	return st, ctx.Err()
}
