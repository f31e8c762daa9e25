package repositories

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult counts the rows removed by PurgeExpired.
type CleanupResult struct {
	PendingUsers int64
	Tokens       int64
}

// PurgeExpired deletes registrations whose OTP has lapsed and one-time tokens
// past their lifespan.
func PurgeExpired(ctx context.Context, pendingRepo *PendingUserRepository, tokenRepo *TokenRepository, now time.Time, otpLifespan, tokenLifespan time.Duration) (CleanupResult, error) {
	var res CleanupResult

	n, err := pendingRepo.DeleteCreatedBefore(ctx, now.Add(-otpLifespan))
	if err != nil {
		return res, fmt.Errorf("purge pending users: %w", err)
	}
	res.PendingUsers = n

	n, err = tokenRepo.DeleteCreatedBefore(ctx, now.Add(-tokenLifespan))
	if err != nil {
		return res, fmt.Errorf("purge tokens: %w", err)
	}
	res.Tokens = n
	return res, nil
}
