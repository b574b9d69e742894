package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a partner merchant. Discount is the cashback percentage as the
// merchant publishes it, e.g. "8%".
type Shop struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	Title       string
	Image       string
	Discount    string
	ClickCount  int64
	SiteURL     string
	Description string
}
