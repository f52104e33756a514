package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAccountInactive    ErrCode = "ACCOUNT_INACTIVE"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenRevoked       ErrCode = "TOKEN_REVOKED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden      ErrCode = "FORBIDDEN"
	ErrStaffOnly      ErrCode = "STAFF_ACCESS_ONLY"
	ErrInvalidWebhook ErrCode = "INVALID_WEBHOOK_SIGNATURE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"
	ErrUserNotFound     ErrCode = "USER_NOT_FOUND"
	ErrEmailTaken       ErrCode = "EMAIL_TAKEN"

	// ─── Catalog / enrollment ──────────────────────────────────────────
	ErrCourseNotFound    ErrCode = "COURSE_NOT_FOUND"
	ErrLessonNotInCourse ErrCode = "LESSON_NOT_IN_COURSE"
	ErrAlreadyEnrolled   ErrCode = "ALREADY_ENROLLED"
	ErrPaymentRequired   ErrCode = "PAYMENT_REQUIRED"

	// ─── Assessment-specific ───────────────────────────────────────────
	ErrAssessmentNotFound ErrCode = "ASSESSMENT_NOT_FOUND"
	ErrInvalidResponse    ErrCode = "INVALID_RESPONSE"
	ErrMaxAttemptsReached ErrCode = "MAX_ATTEMPTS_REACHED"

	// ─── Payment-specific ──────────────────────────────────────────────
	ErrPaymentNotFound      ErrCode = "PAYMENT_NOT_FOUND"
	ErrMissingTxRef         ErrCode = "MISSING_TX_REF"
	ErrInvalidTxRef         ErrCode = "INVALID_TX_REF"
	ErrDuplicateTxRef       ErrCode = "DUPLICATE_TRANSACTION"
	ErrGatewayUnavailable   ErrCode = "GATEWAY_UNAVAILABLE"
	ErrGatewayMisconfigured ErrCode = "GATEWAY_MISCONFIGURED"
	ErrValidEmailRequired   ErrCode = "VALID_EMAIL_REQUIRED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrAccountInactive:
		return "This account is not active."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."
	case ErrTokenRevoked:
		return "Authentication token has been logged out."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStaffOnly:
		return "This resource is restricted to staff."
	case ErrInvalidWebhook:
		return "Webhook signature verification failed."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "This record is still referenced by other data."
	case ErrUserNotFound:
		return "User not found."
	case ErrEmailTaken:
		return "A user with this email already exists."

	// ─── Catalog / enrollment ──────────────────────────────────────────
	case ErrCourseNotFound:
		return "Course not found."
	case ErrLessonNotInCourse:
		return "Lesson not found in this course."
	case ErrAlreadyEnrolled:
		return "Already enrolled."
	case ErrPaymentRequired:
		return "This course requires a confirmed payment."

	// ─── Assessment-specific ───────────────────────────────────────────
	case ErrAssessmentNotFound:
		return "Assessment not found."
	case ErrInvalidResponse:
		return "One or more responses do not match the assessment."
	case ErrMaxAttemptsReached:
		return "Maximum number of attempts reached."

	// ─── Payment-specific ──────────────────────────────────────────────
	case ErrPaymentNotFound:
		return "Payment not found."
	case ErrMissingTxRef:
		return "Missing transaction reference."
	case ErrInvalidTxRef:
		return "Missing/invalid transaction reference."
	case ErrDuplicateTxRef:
		return "Duplicate transaction."
	case ErrGatewayUnavailable:
		return "Payment verification service unavailable."
	case ErrGatewayMisconfigured:
		return "Payment gateway configuration missing."
	case ErrValidEmailRequired:
		return "Valid user email required."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "File upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
