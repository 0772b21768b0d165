// Package services defines the business logic for onboarding resolution,
// page data, and the notification pipeline. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrProfileNotFound indicates that no profile row exists for the
	// requested user.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNotAdmin is returned when the ad-hoc notify path is invoked by a
	// caller whose profile does not carry the admin flag.
	ErrNotAdmin = errors.New("caller is not an administrator")

	// ErrInvalidNotification is returned when a notify request is missing a
	// required field (title or message).
	ErrInvalidNotification = errors.New("notification title and message are required")

	// ErrUnknownTriggerType is returned when a trigger row carries a type the
	// pipeline does not understand.
	ErrUnknownTriggerType = errors.New("unknown trigger type")

	// ErrWorkoutNotFound indicates that the requested workout template does
	// not exist or is not owned by the current user.
	ErrWorkoutNotFound = errors.New("workout not found")

	// ErrUnknownPage is returned for a page identifier outside the known set.
	ErrUnknownPage = errors.New("unknown page")

	// ErrInvalidDevice is returned when a device registration is missing its
	// token or carries an unsupported platform.
	ErrInvalidDevice = errors.New("device token and a supported platform are required")
)
