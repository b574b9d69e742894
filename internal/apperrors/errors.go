package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrShopNotFound   = errors.New("shop not found")
	ErrWalletNotFound = errors.New("wallet not found")

	// Shop discount could not be parsed as a percentage. Not retryable.
	ErrInvalidDiscount = errors.New("invalid shop discount format")

	// Root account could not be found or created. Fatal to the settlement
	// that required it.
	ErrRootAccountUnavailable = errors.New("root account unavailable")

	// Settlement commit aborted, every write of the settlement rolled back.
	// Safe to retry from scratch.
	ErrSettlementFailed = errors.New("settlement failed")

	// The parent graph contains a cycle. Not retryable, data must be repaired.
	ErrCorruptHierarchy = errors.New("referral hierarchy is corrupt")

	ErrTransactionInvalid = errors.New("transaction type or amount is invalid")
)
