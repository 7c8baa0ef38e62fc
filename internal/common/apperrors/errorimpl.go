package apperrors

// appError implements the Error interface
type appError struct {
	msg           string
	base          Error
	wrappedErrors []error
	statuscode    int
	expandError   bool
}

// New creates a new base error with the given message.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}

func (e *appError) Error() string {
	return e.msg
}

func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.msg
	}
	var msg string
	for _, err := range e.wrappedErrors {
		msg += err.Error() + ";"
	}
	if len(msg) > 0 {
		// remove the last ;
		msg = msg[:len(msg)-1]
		msg = e.msg + ": " + msg
	} else {
		msg = e.msg
	}
	return msg
}

func (e *appError) Unwrap() []error {
	return e.wrappedErrors
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:         msg,
		statuscode:  e.statuscode,
		expandError: e.expandError,
		base:        e,
	}
}

func (e *appError) Msg(msg string) Error {
	return e.New(msg).Err(e.wrappedErrors...)
}

func (e *appError) MsgErr(msg string, err ...error) Error {
	return e.New(msg).Err(e.wrappedErrors...).Err(err...)
}

// Err derives a new error wrapping the given causes. The receiver is left
// untouched so package-level sentinels stay shared safely.
func (e *appError) Err(err ...error) Error {
	if len(err) == 0 {
		return e
	}
	wrapped := make([]error, 0, len(e.wrappedErrors)+len(err))
	wrapped = append(wrapped, e.wrappedErrors...)
	wrapped = append(wrapped, err...)
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: wrapped,
		statuscode:    e.statuscode,
		expandError:   e.expandError,
	}
}

func (e *appError) Is(target error) bool {
	if e == target || e.base == target {
		return true
	}
	if e.base != nil && e.base.Is(target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if err == target {
			return true
		}
	}
	return false
}

func (e *appError) SetExpandError(expand bool) Error {
	e.expandError = expand
	return e
}

func (e *appError) SetStatusCode(code int) Error {
	e.statuscode = code
	return e
}

func (e *appError) StatusCode() int {
	return e.statuscode
}
