package usecases

import (
	"context"
	"fmt"

	"github.com/example/tablesearch/internal/application/search"
)

// Login forces a fresh anonymous login, useful to check the API is reachable.
type Login struct {
	Auth *search.SessionManager
}

func (u Login) Execute(ctx context.Context) (search.AuthState, error) {
	if u.Auth == nil {
		return search.AuthState{}, fmt.Errorf("session manager is nil")
	}
	err := u.Auth.Acquire(ctx)
	return u.Auth.Snapshot(), err
}
