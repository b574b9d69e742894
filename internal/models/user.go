package models

import (
	"time"

	"github.com/google/uuid"
)

type Hasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword string, password string) error
}

// User is a node of the referral forest.
// ParentID is a weak reference by id: nil for the root account and for users
// registered without a referrer. Children are not stored, they are every user
// whose parent points here.
type User struct {
	ID            uuid.UUID
	CreatedAt     time.Time
	Name          string
	Email         string
	PasswordHash  string
	EmailVerified bool
	ParentID      *uuid.UUID
}
