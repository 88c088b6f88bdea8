// Package jobs contains background maintenance jobs run outside the request
// path.
package jobs

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/cinelog/cinelog/pkg/auth"
	"github.com/cinelog/cinelog/pkg/observability"
	"github.com/cinelog/cinelog/pkg/storage"
)

// Sweeper removes session tokens that no longer verify from the registry.
// The auth middleware already drops an expired token when it is presented;
// the sweeper covers tokens of devices that simply never come back.
type Sweeper struct {
	users   storage.UserStore
	issuer  *auth.TokenIssuer
	logger  *logrus.Logger
	metrics *observability.Metrics
}

// NewSweeper creates a sweeper. metrics may be nil.
func NewSweeper(users storage.UserStore, issuer *auth.TokenIssuer, logger *logrus.Logger, metrics *observability.Metrics) *Sweeper {
	return &Sweeper{
		users:   users,
		issuer:  issuer,
		logger:  logger,
		metrics: metrics,
	}
}

// Sweep scans every user with recorded sessions and removes tokens that are
// expired or otherwise fail verification. It returns the number of tokens
// removed. Per-user failures are logged and do not abort the sweep.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.users.UsersWithTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users with sessions: %w", err)
	}

	swept := 0
	for _, id := range ids {
		n, err := s.sweepUser(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", id).Warn("failed to sweep user sessions")
			continue
		}
		swept += n
	}

	if s.metrics != nil && swept > 0 {
		s.metrics.TokensSweptTotal.Add(float64(swept))
	}
	return swept, nil
}

func (s *Sweeper) sweepUser(ctx context.Context, userID int64) (int, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load user: %w", err)
	}

	swept := 0
	for _, token := range user.Tokens {
		if _, err := s.issuer.Verify(token); err == nil {
			continue
		}
		// Expired or no longer verifiable (for example after a secret
		// rotation); either way the session is dead.
		if err := s.users.RemoveToken(ctx, userID, token); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("failed to remove dead token")
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.WithFields(logrus.Fields{
			"user_id": userID,
			"swept":   swept,
		}).Info("removed dead session tokens")
	}
	return swept, nil
}
