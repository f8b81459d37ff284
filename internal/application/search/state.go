package search

import (
	"fmt"
	"slices"

	"github.com/example/tablesearch/internal/domain/reservation"
)

// Phase is where a session sits in its search lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseHasResults
	PhaseLoadingMore
)

var phaseNames = map[Phase]string{
	PhaseIdle:        "idle",
	PhaseSearching:   "searching",
	PhaseHasResults:  "has_results",
	PhaseLoadingMore: "loading_more",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// State is a point-in-time copy of a session, safe to hand to a view.
type State struct {
	SearchID     string               `json:"search_id"`
	Results      []reservation.Result `json:"results"`
	TotalResults int                  `json:"total_results"`
	CanLoadMore  bool                 `json:"can_load_more"`
	Loading      bool                 `json:"loading"`
	Error        string               `json:"error"`
	Phase        Phase                `json:"phase"`
}

func (s State) clone() State {
	s.Results = slices.Clone(s.Results)
	return s
}

// settle keeps results and total consistent after a page lands.
func (s *State) settle() {
	if len(s.Results) > s.TotalResults {
		s.TotalResults = len(s.Results)
	}
	s.CanLoadMore = len(s.Results) < s.TotalResults
}
