package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/domain/reservation"
)

// stubAPI serves total results in pages of pageSize.
type stubAPI struct {
	mu       sync.Mutex
	total    int
	pageSize int
	served   int
	loginErr error
	logins   int
	fetches  int
}

func (s *stubAPI) LoginAnonymously(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	if s.loginErr != nil {
		return "", s.loginErr
	}
	return fmt.Sprintf("tok-%d", s.logins), nil
}

func (s *stubAPI) SearchToken(context.Context, string, reservation.SearchRequest) (string, error) {
	return "sid", nil
}

func (s *stubAPI) SearchRequest(context.Context, string, string) (reservation.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	n := min(s.pageSize, s.total-s.served)
	posts := make([]reservation.Result, n)
	for i := range posts {
		posts[i].Post.Slug = fmt.Sprintf("venue-%d", s.served+i)
	}
	s.served += n
	return reservation.Page{Posts: posts, Total: s.total}, nil
}

var crit = reservation.Criteria{Size: "2", Date: "2024-05-01", Time: "19:00"}

func newSession(api *stubAPI) *search.Session {
	return search.NewSession(search.NewSessionManager(api), api, reservation.Market{MarketplaceID: "m", Geocode: "g"})
}

func TestRunSearchLoadsRequestedPages(t *testing.T) {
	api := &stubAPI{total: 50, pageSize: 10}
	st, err := RunSearch{Session: newSession(api), Pages: 2}.Execute(context.Background(), crit)
	require.NoError(t, err)
	assert.Len(t, st.Results, 30)
	assert.True(t, st.CanLoadMore)
	assert.Equal(t, 3, api.fetches)
}

func TestRunSearchStopsWhenExhausted(t *testing.T) {
	api := &stubAPI{total: 15, pageSize: 10}
	st, err := RunSearch{Session: newSession(api), Pages: 5}.Execute(context.Background(), crit)
	require.NoError(t, err)
	assert.Len(t, st.Results, 15)
	assert.False(t, st.CanLoadMore)
	assert.Equal(t, 2, api.fetches)
}

func TestRunSearchSurfacesSessionError(t *testing.T) {
	api := &stubAPI{loginErr: errors.New("dial tcp: refused")}
	st, err := RunSearch{Session: newSession(api)}.Execute(context.Background(), crit)
	require.Error(t, err)
	assert.Equal(t, st.Error, err.Error())
	assert.Contains(t, err.Error(), "Search failed")
}

func TestRunSearchValidates(t *testing.T) {
	_, err := RunSearch{}.Execute(context.Background(), crit)
	assert.EqualError(t, err, "session is nil")

	_, err = RunSearch{Session: newSession(&stubAPI{})}.Execute(context.Background(), reservation.Criteria{Size: "2"})
	assert.EqualError(t, err, "size, date and time are required")
}

func TestLogin(t *testing.T) {
	api := &stubAPI{}
	st, err := Login{Auth: search.NewSessionManager(api)}.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Valid)
	assert.Empty(t, st.Error)

	api.loginErr = errors.New("boom")
	st, err = Login{Auth: search.NewSessionManager(api)}.Execute(context.Background())
	require.Error(t, err)
	assert.False(t, st.Valid)
	assert.NotEmpty(t, st.Error)

	_, err = Login{}.Execute(context.Background())
	assert.EqualError(t, err, "session manager is nil")
}
