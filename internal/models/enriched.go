package models

import (
	"github.com/shopspring/decimal"
)

// EnrichedUser is a read-only snapshot of a user's referral subtree.
// AmountEarned is what this node alone contributed to the wallet the
// enrichment was computed for; children carry their own contributions.
type EnrichedUser struct {
	User         User
	AmountEarned decimal.Decimal
	Children     []EnrichedUser
}
