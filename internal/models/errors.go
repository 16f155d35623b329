package models

import "errors"

var (
	// ErrReviewNotFound is returned when a review id matches no document.
	ErrReviewNotFound = errors.New("review not found")

	// ErrVersionConflict is returned when a moderation write lost the race
	// against another moderator. The caller sees the conflict instead of a
	// silently dropped update.
	ErrVersionConflict = errors.New("review was modified by another moderator")

	ErrProductNotFound = errors.New("product not found")
	ErrAdminNotFound   = errors.New("admin user not found")
)
