package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Dias221467/Chat_Manager/internal/repository"
	"github.com/sirupsen/logrus"
)

type ResetTokenSweeper struct {
	Accounts repository.AccountStore
	Now      func() time.Time
}

// NewResetTokenSweeper creates a new instance of ResetTokenSweeper
func NewResetTokenSweeper(accounts repository.AccountStore) *ResetTokenSweeper {
	return &ResetTokenSweeper{
		Accounts: accounts,
		Now:      time.Now,
	}
}

// Run clears password-reset codes that have expired.
func (s *ResetTokenSweeper) Run(ctx context.Context) error {
	n, err := s.Accounts.ClearExpiredResetTokens(ctx, s.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}

	if n > 0 {
		logrus.WithField("cleared", n).Info("Expired reset tokens cleared")
	}
	return nil
}
