// Package notify defines how matched deals reach users.
package notify

import (
	"context"

	"github.com/farewatch/farewatch/internal/deal"
	"github.com/farewatch/farewatch/internal/flight"
)

// Notifier delivers a matched deal to one user.
type Notifier interface {
	SendDeal(ctx context.Context, chatID int64, offer flight.Offer, result deal.MatchResult) error
}
