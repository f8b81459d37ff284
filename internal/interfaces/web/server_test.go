package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/domain/reservation"
	"github.com/example/tablesearch/internal/internaltypes"
)

// pagedAPI hands out total results ten at a time.
type pagedAPI struct {
	total  int
	served atomic.Int64
	logins atomic.Int64
}

func (p *pagedAPI) LoginAnonymously(context.Context) (string, error) {
	return fmt.Sprintf("tok-%d", p.logins.Add(1)), nil
}

func (p *pagedAPI) SearchToken(context.Context, string, reservation.SearchRequest) (string, error) {
	return "sid-1", nil
}

func (p *pagedAPI) SearchRequest(context.Context, string, string) (reservation.Page, error) {
	from := int(p.served.Load())
	n := min(10, p.total-from)
	p.served.Add(int64(n))
	return reservation.Page{Posts: make([]reservation.Result, n), Total: p.total}, nil
}

func newTestServer(t *testing.T, api *pagedAPI) (*httptest.Server, *http.Client, *Registry) {
	t.Helper()
	auth := search.NewSessionManager(api)
	market := reservation.Market{MarketplaceID: "m", Geocode: "g"}
	reg := NewRegistry(func() *search.Session {
		return search.NewSession(auth, api, market)
	}, time.Hour, zap.NewNop())

	s := &Server{
		Visitors: NewVisitors(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)),
		Sessions: reg,
		Auth:     auth,
		Log:      zap.NewNop(),
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}, reg
}

func decodeState(t *testing.T, resp *http.Response) search.State {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st struct {
		SearchID     string `json:"search_id"`
		Results      []any  `json:"results"`
		TotalResults int    `json:"total_results"`
		CanLoadMore  bool   `json:"can_load_more"`
		Error        string `json:"error"`
		Phase        string `json:"phase"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return search.State{
		SearchID:     st.SearchID,
		Results:      make([]reservation.Result, len(st.Results)),
		TotalResults: st.TotalResults,
		CanLoadMore:  st.CanLoadMore,
		Error:        st.Error,
	}
}

func TestSearchFlowOverHTTP(t *testing.T) {
	ts, c, reg := newTestServer(t, &pagedAPI{total: 25})

	resp, err := c.Post(ts.URL+"/api/search", "application/json",
		strings.NewReader(`{"size":"2","date":"2024-05-01","time":"19:00"}`))
	require.NoError(t, err)
	st := decodeState(t, resp)
	assert.Equal(t, "sid-1", st.SearchID)
	assert.Len(t, st.Results, 10)
	assert.True(t, st.CanLoadMore)
	assert.Equal(t, 1, reg.Len())

	resp, err = c.Post(ts.URL+"/api/search/more", "application/json", nil)
	require.NoError(t, err)
	st = decodeState(t, resp)
	assert.Len(t, st.Results, 20)

	resp, err = c.Get(ts.URL + "/api/search")
	require.NoError(t, err)
	st = decodeState(t, resp)
	assert.Len(t, st.Results, 20)
	assert.Equal(t, 25, st.TotalResults)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/search", nil)
	resp, err = c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, reg.Len())

	var cleared bool
	for _, ck := range resp.Cookies() {
		if ck.Name == cookieName {
			cleared = ck.MaxAge < 0
		}
	}
	assert.True(t, cleared, "visitor cookie is expired on delete")
}

func TestLoadMoreWithoutSessionIsNotFound(t *testing.T) {
	ts, c, _ := newTestServer(t, &pagedAPI{total: 5})

	resp, err := c.Post(ts.URL+"/api/search/more", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), internaltypes.ErrNoSession.Error())
}

func TestSearchRejectsBadCriteria(t *testing.T) {
	ts, c, _ := newTestServer(t, &pagedAPI{})

	for _, body := range []string{`not json`, `{"size":"2"}`} {
		resp, err := c.Post(ts.URL+"/api/search", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestGetSearchBeforeSubmitIsIdle(t *testing.T) {
	ts, c, reg := newTestServer(t, &pagedAPI{})

	resp, err := c.Get(ts.URL + "/api/search")
	require.NoError(t, err)
	st := decodeState(t, resp)
	assert.Empty(t, st.SearchID)
	assert.Equal(t, 0, reg.Len())
}

func TestAuthEndpoint(t *testing.T) {
	api := &pagedAPI{total: 1}
	ts, c, _ := newTestServer(t, api)

	resp, err := c.Post(ts.URL+"/api/search", "application/json",
		strings.NewReader(`{"size":"2","date":"2024-05-01","time":"19:00"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = c.Get(ts.URL + "/api/auth")
	require.NoError(t, err)
	defer resp.Body.Close()
	var st search.AuthState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Valid)
	assert.Equal(t, int64(1), api.logins.Load())
}

func TestMethodNotAllowed(t *testing.T) {
	ts, c, _ := newTestServer(t, &pagedAPI{})

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/search", nil)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = c.Get(ts.URL + "/api/search/more")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts, c, _ := newTestServer(t, &pagedAPI{})
	resp, err := c.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
