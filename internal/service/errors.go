package service

import "errors"

// Sentinel errors returned by the services. Handlers map them to API error
// codes with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrForbidden          = errors.New("forbidden")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")

	ErrNotFound          = errors.New("not found")
	ErrSlugTaken         = errors.New("slug already exists")
	ErrDependencyExists  = errors.New("resource is still referenced")
	ErrCourseNotFound    = errors.New("course not found")
	ErrNegativePrice     = errors.New("price must not be negative")
	ErrLessonNotInCourse = errors.New("lesson does not belong to course")

	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrPaymentRequired = errors.New("course requires payment")

	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrInvalidParent      = errors.New("assessment must belong to exactly one of course, module or lesson")
	ErrInvalidResponse    = errors.New("invalid response")
	ErrMaxAttemptsReached = errors.New("maximum attempts reached")

	ErrPaymentNotFound      = errors.New("payment not found")
	ErrValidEmailRequired   = errors.New("a valid email address is required")
	ErrMissingTxRef         = errors.New("missing transaction reference")
	ErrInvalidTxRef         = errors.New("missing or invalid transaction reference")
	ErrDuplicateTxRef       = errors.New("duplicate transaction reference")
	ErrGatewayUnavailable   = errors.New("payment verification service unavailable")
	ErrGatewayMisconfigured = errors.New("payment gateway is not configured")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)
