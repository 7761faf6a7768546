package service

import "errors"

var (
	// ErrStudentNotFound indicates the referenced student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrParentNotFound indicates the referenced parent does not exist.
	ErrParentNotFound = errors.New("parent not found")
	// ErrSlotNotFound indicates the referenced time slot does not exist.
	ErrSlotNotFound = errors.New("time slot not found")
	// ErrQuizNotFound indicates the referenced quiz does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidFormat indicates a raw schedule could not be normalised.
	ErrInvalidFormat = errors.New("invalid schedule format")
	// ErrSuggestionUnavailable indicates the schedule suggestion provider failed or is not configured.
	ErrSuggestionUnavailable = errors.New("schedule suggestion unavailable")
	// ErrQuizAlreadyCompleted indicates answers were submitted for a finished quiz.
	ErrQuizAlreadyCompleted = errors.New("quiz already completed")
	// ErrForbidden indicates the actor may not access the requested student.
	ErrForbidden = errors.New("access to student denied")
	// ErrEmailTaken indicates an account already uses the email address.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUnknownCheck indicates an unrecognised notification check name.
	ErrUnknownCheck = errors.New("unknown notification check")
	// ErrCheckInProgress indicates a run of the same check is still executing.
	ErrCheckInProgress = errors.New("notification check already running")
	// ErrNotificationNotFound indicates the referenced notification history entry does not exist.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrTicketNotFound indicates the referenced support ticket does not exist.
	ErrTicketNotFound = errors.New("support ticket not found")
	// ErrInvalidCredentials indicates the email or password did not match an account.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrQuizGenerationUnavailable indicates the quiz generator failed or is not configured.
	ErrQuizGenerationUnavailable = errors.New("quiz generation unavailable")
	// ErrDuplicateTicket indicates the same ticket was opened moments ago.
	ErrDuplicateTicket = errors.New("duplicate support ticket")
)
