package search

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/example/tablesearch/internal/domain/reservation"
	"github.com/example/tablesearch/internal/infrastructure/bookingapi"
)

// fakeAPI scripts the booking platform. Unset hooks succeed with defaults.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []string
	logins int

	login         func(n int) (string, error)
	searchToken   func(tok string, req reservation.SearchRequest) (string, error)
	searchRequest func(ctx context.Context, tok, id string) (reservation.Page, error)

	lastReq    reservation.SearchRequest
	tokensSeen []string
}

func (f *fakeAPI) LoginAnonymously(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.logins++
	n := f.logins
	f.calls = append(f.calls, "login")
	fn := f.login
	f.mu.Unlock()

	if fn != nil {
		return fn(n)
	}
	return fmt.Sprintf("tok-%d", n), nil
}

func (f *fakeAPI) SearchToken(ctx context.Context, tok string, req reservation.SearchRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "search_token")
	f.tokensSeen = append(f.tokensSeen, tok)
	f.lastReq = req
	fn := f.searchToken
	f.mu.Unlock()

	if fn != nil {
		return fn(tok, req)
	}
	return "search-1", nil
}

func (f *fakeAPI) SearchRequest(ctx context.Context, tok, id string) (reservation.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "search_request")
	f.tokensSeen = append(f.tokensSeen, tok)
	fn := f.searchRequest
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, tok, id)
	}
	return reservation.Page{}, nil
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) count(name string) int {
	n := 0
	for _, c := range f.callLog() {
		if c == name {
			n++
		}
	}
	return n
}

func results(prefix string, n int) []reservation.Result {
	out := make([]reservation.Result, n)
	for i := range out {
		out[i].Post.Slug = fmt.Sprintf("%s-%d", prefix, i)
	}
	return out
}

// pager serves total results in pages of size, then empty pages.
func pager(total, size int) func(context.Context, string, string) (reservation.Page, error) {
	var mu sync.Mutex
	served := 0
	return func(context.Context, string, string) (reservation.Page, error) {
		mu.Lock()
		defer mu.Unlock()
		n := min(size, total-served)
		page := reservation.Page{Posts: results(fmt.Sprintf("p%d", served), n), Total: total}
		served += n
		return page, nil
	}
}

func expiredErr() error {
	return bookingapi.NewAPIError("/search_token", http.StatusBadRequest, []byte(`{"message":"\"Token expired\""}`))
}

var testMarket = reservation.Market{MarketplaceID: "mkt", Locale: "en-US", Geocode: "geo"}

var testCriteria = reservation.Criteria{Size: "2", Date: "2024-05-01", Time: "19:00"}

func newTestSession(api *fakeAPI, opts ...SessionOption) (*Session, *SessionManager) {
	m := NewSessionManager(api)
	return NewSession(m, api, testMarket, opts...), m
}
