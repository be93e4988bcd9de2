package app

// ErrorKind classifies an application failure so the transport layer can map
// it to a status code without inspecting messages.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota
	KindUnauthenticated
	KindNotFound
	KindInternal
)

// Error is an application failure with a user-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Internal wraps an unexpected failure. The cause is logged at the handler
// boundary; the message shown to callers stays generic.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "Server error", cause: cause}
}

var (
	ErrNoToken      = &Error{Kind: KindUnauthenticated, Message: "Unauthorized: No token provided"}
	ErrInvalidToken = &Error{Kind: KindUnauthenticated, Message: "Unauthorized: Invalid token"}

	ErrUserNotFound  = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrStoryNotFound = &Error{Kind: KindNotFound, Message: "Story not found"}
	ErrWordNotFound  = &Error{Kind: KindNotFound, Message: "Word not found"}

	ErrNoStoriesForLanguage = &Error{Kind: KindNotFound, Message: "No stories found for this language"}
	ErrNoWordsForLanguage   = &Error{Kind: KindNotFound, Message: "No words found for this language"}

	ErrTitleAndContentRequired = &Error{Kind: KindInvalidInput, Message: "Title and content are required"}
	ErrWordAndMeaningRequired  = &Error{Kind: KindInvalidInput, Message: "Word and meaning are required"}
	ErrInvalidGenre            = &Error{Kind: KindInvalidInput, Message: "Invalid genre"}
	ErrInvalidCoinValue        = &Error{Kind: KindInvalidInput, Message: "Invalid coin value"}

	ErrEmailAndPasswordRequired = &Error{Kind: KindInvalidInput, Message: "Email and password are required"}
	ErrInvalidEmail             = &Error{Kind: KindInvalidInput, Message: "Invalid email address"}
	ErrEmailAlreadyExists       = &Error{Kind: KindInvalidInput, Message: "Email already in use"}
	ErrInvalidCredentials       = &Error{Kind: KindUnauthenticated, Message: "Incorrect email address or password"}
)

// KindOf extracts the error kind, defaulting to internal for plain errors.
func KindOf(err error) ErrorKind {
	if appErr, ok := err.(*Error); ok {
		return appErr.Kind
	}
	return KindInternal
}
