package ports

import "github.com/bnema/bncbot/internal/domain"

// StateRepository persists the BNC queue and user table across restarts.
type StateRepository interface {
	Load() (domain.State, error)
	Save(state domain.State) error
}
