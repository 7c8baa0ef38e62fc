package apperrors

// Error is a layered application error. Errors are built as hierarchies of
// sentinels: a base error is created with New, and derived errors are created
// with the base's New method so that errors.Is matches anywhere up the chain.
// Each error carries an HTTP status code that handler wrappers translate into
// the response status.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	Msg(msg string) Error
	MsgErr(msg string, err ...error) Error
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
}
