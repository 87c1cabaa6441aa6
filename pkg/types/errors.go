package types

import "errors"

var (
	ErrInvalidBloodType   = errors.New("invalid blood type")
	ErrStoreUnavailable   = errors.New("donor store unavailable")
	ErrChannelUnavailable = errors.New("notification channel unavailable")
	ErrDeliveryFailed     = errors.New("notification delivery failed")

	ErrRequestNotFound = errors.New("request not found")
	ErrDonorNotFound   = errors.New("donor not found")
)
