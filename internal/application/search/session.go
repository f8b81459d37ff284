package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablesearch/internal/domain/reservation"
	"github.com/example/tablesearch/internal/infrastructure/bookingapi"
)

const recordTimeout = 5 * time.Second

// Recorder is told about every search that lands and every page that grows it.
type Recorder interface {
	Record(ctx context.Context, c reservation.Criteria, st State) error
}

// Session is one logical search: criteria, then a search id, then pages.
//
// Operations block until done and always return the resulting State. A new
// Search cancels whatever is in flight; FetchResults and LoadMore are
// rejected while another operation is running. Responses that arrive for a
// superseded operation are dropped.
type Session struct {
	auth   *SessionManager
	api    reservation.SearchAPI
	market reservation.Market
	log    *zap.Logger
	rec    Recorder

	mu         sync.Mutex
	st         State
	criteria   reservation.Criteria
	hasResults bool
	gen        uint64
	cancel     context.CancelFunc
}

type SessionOption func(*Session)

func WithLogger(l *zap.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.rec = r }
}

func NewSession(auth *SessionManager, api reservation.SearchAPI, market reservation.Market, opts ...SessionOption) *Session {
	s := &Session{auth: auth, api: api, market: market, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Named("search")
	return s
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.clone()
}

// Cancel aborts the in-flight operation, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Reset drops everything and returns the session to Idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.st = State{}
	s.criteria = reservation.Criteria{}
	s.hasResults = false
}

// Search submits c and fetches the first page of results. Results of an
// earlier search stay visible until the new ones land.
func (s *Session) Search(ctx context.Context, c reservation.Criteria) (st State) {
	op, ok := s.begin(ctx, PhaseSearching, true, nil)
	if !ok {
		return s.State()
	}
	var landed bool
	defer func() {
		st = s.finish(op)
		if landed {
			s.record(op, c, st)
		}
	}()

	req := reservation.NewSearchRequest(c, s.market)
	var searchID string
	err := s.withToken(op.ctx, OpSearch, func(tok string) error {
		id, err := s.api.SearchToken(op.ctx, tok, req)
		searchID = id
		return err
	})
	if err != nil {
		s.fail(op, OpSearch, err)
		return
	}
	if searchID == "" {
		s.fail(op, OpSearch, &SearchError{Op: OpSearch, Kind: KindMissingSearchID})
		return
	}
	// Until page 1 of the new id lands, the visible results belong to the
	// previous search and must not be paged further.
	if !s.apply(op, func() {
		s.st.SearchID = searchID
		s.st.CanLoadMore = false
		s.criteria = c
	}) {
		return
	}
	landed = s.fetchFirst(op)
	return
}

// FetchResults re-fetches the current search id and replaces the results.
func (s *Session) FetchResults(ctx context.Context) (st State) {
	op, ok := s.begin(ctx, PhaseSearching, false, nil)
	if !ok {
		return s.State()
	}
	var landed bool
	defer func() {
		st = s.finish(op)
		if landed {
			s.record(op, s.currentCriteria(), st)
		}
	}()

	landed = s.fetchFirst(op)
	return
}

// LoadMore fetches the next page and appends it. It does nothing when the
// session already holds every result.
func (s *Session) LoadMore(ctx context.Context) (st State) {
	op, ok := s.begin(ctx, PhaseLoadingMore, false, func() bool { return s.st.CanLoadMore })
	if !ok {
		return s.State()
	}
	var grew bool
	defer func() {
		st = s.finish(op)
		if grew {
			s.record(op, s.currentCriteria(), st)
		}
	}()

	page, ok := s.fetchPage(op, OpLoadMore)
	if !ok {
		return
	}
	landed := s.apply(op, func() {
		if len(page.Posts) == 0 {
			s.st.CanLoadMore = false
			return
		}
		s.st.Results = append(s.st.Results, page.Posts...)
		s.st.settle()
	})
	grew = landed && len(page.Posts) > 0
	return
}

// fetchFirst replaces the results with page 1 and reports whether it landed.
func (s *Session) fetchFirst(op operation) bool {
	page, ok := s.fetchPage(op, OpFetch)
	if !ok {
		return false
	}
	return s.apply(op, func() {
		s.st.Results = append([]reservation.Result(nil), page.Posts...)
		s.st.TotalResults = page.Total
		s.st.settle()
		s.hasResults = true
	})
}

func (s *Session) fetchPage(op operation, o Op) (reservation.Page, bool) {
	s.mu.Lock()
	searchID := s.st.SearchID
	s.mu.Unlock()

	if searchID == "" {
		s.fail(op, o, &SearchError{Op: o, Kind: KindMissingSearchID})
		return reservation.Page{}, false
	}

	var page reservation.Page
	err := s.withToken(op.ctx, o, func(tok string) error {
		p, err := s.api.SearchRequest(op.ctx, tok, searchID)
		page = p
		return err
	})
	if err != nil {
		s.fail(op, o, err)
		return reservation.Page{}, false
	}
	return page, true
}

// withToken runs call with a valid token. On the expired-token signal it
// renews the token and runs call once more; a second expiry is returned.
func (s *Session) withToken(ctx context.Context, o Op, call func(tok string) error) error {
	tok, err := s.auth.Token(ctx)
	if err != nil {
		return &SearchError{Op: o, Kind: KindMissingToken, Err: err}
	}

	err = call(tok)
	if !bookingapi.IsTokenExpired(err) {
		return err
	}

	s.log.Info("token expired, renewing", zap.Stringer("op", o))
	tok, err = s.auth.Renew(ctx, tok)
	if err != nil {
		return &SearchError{Op: o, Kind: KindMissingToken, Err: err}
	}
	return call(tok)
}

type operation struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
}

// begin claims the session for a new operation. With supersede set any
// running operation is cancelled, otherwise begin refuses while one runs.
func (s *Session) begin(ctx context.Context, phase Phase, supersede bool, guard func() bool) (operation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.Loading && !supersede {
		s.log.Debug("operation rejected, another is in flight", zap.Stringer("phase", phase))
		return operation{}, false
	}
	if guard != nil && !guard() {
		return operation{}, false
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.gen++
	opCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.st.Loading = true
	s.st.Error = ""
	s.st.Phase = phase
	return operation{ctx: opCtx, cancel: cancel, gen: s.gen}, true
}

// finish runs on every exit path of an operation.
func (s *Session) finish(op operation) State {
	op.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if op.gen == s.gen {
		s.cancel = nil
		s.st.Loading = false
		s.st.Phase = s.stablePhase()
	}
	return s.st.clone()
}

func (s *Session) stablePhase() Phase {
	if s.hasResults {
		return PhaseHasResults
	}
	return PhaseIdle
}

// apply mutates state only if op is still the current operation.
func (s *Session) apply(op operation, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op.gen != s.gen {
		return false
	}
	fn()
	return true
}

func (s *Session) fail(op operation, o Op, err error) {
	if errors.Is(err, context.Canceled) {
		s.log.Debug("operation cancelled", zap.Stringer("op", o))
		return
	}

	se := classify(o, err)
	if se.Kind == KindNetwork {
		s.log.Warn("request failed", zap.Stringer("op", o), zap.Error(err))
	} else {
		s.log.Info("request rejected", zap.Stringer("op", o), zap.String("error", se.Error()))
	}
	s.apply(op, func() { s.st.Error = se.Error() })
}

func (s *Session) currentCriteria() reservation.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// record is called once the operation has settled.
func (s *Session) record(op operation, c reservation.Criteria, st State) {
	if s.rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(op.ctx), recordTimeout)
	defer cancel()

	if err := s.rec.Record(ctx, c, st); err != nil {
		s.log.Warn("record search history", zap.String("search_id", st.SearchID), zap.Error(err))
	}
}
