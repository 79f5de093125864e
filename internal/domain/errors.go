package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind: машиночитаемый класс ошибки.
type ErrorKind string

const (
	KindConflict              ErrorKind = "conflict"
	KindNotFound              ErrorKind = "not_found"
	KindInvalid               ErrorKind = "invalid"
	KindUnconfigured          ErrorKind = "unconfigured"
	KindUpstreamUnavailable   ErrorKind = "upstream_unavailable"
	KindUpstreamError         ErrorKind = "upstream_error"
	KindUpstreamProtocolError ErrorKind = "upstream_protocol_error"
	KindInternal              ErrorKind = "internal"
)

// Сентинелы для errors.Is: сравнение идет только по Kind.
var (
	ErrConflict              = &Error{Kind: KindConflict}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrInvalid               = &Error{Kind: KindInvalid}
	ErrUnconfigured          = &Error{Kind: KindUnconfigured}
	ErrUpstreamUnavailable   = &Error{Kind: KindUpstreamUnavailable}
	ErrUpstreamError         = &Error{Kind: KindUpstreamError}
	ErrUpstreamProtocolError = &Error{Kind: KindUpstreamProtocolError}
	ErrInternal              = &Error{Kind: KindInternal}
)

// Error: ошибка, видимая вызывающему: класс, HTTP-статус и текст для поля detail.
type Error struct {
	Kind   ErrorKind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// StatusCode возвращает HTTP-статус; для UpstreamError это статус провайдера.
func (e *Error) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Detail: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Detail: fmt.Sprintf(format, args...)}
}

func Unconfigured(detail string) *Error {
	return &Error{Kind: KindUnconfigured, Detail: detail}
}

func UpstreamUnavailable(detail string, cause error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Detail: detail, Err: cause}
}

// UpstreamStatus пробрасывает статус провайдера вызывающему как есть.
func UpstreamStatus(status int, detail string) *Error {
	return &Error{Kind: KindUpstreamError, Status: status, Detail: detail}
}

func UpstreamProtocol(detail string, cause error) *Error {
	return &Error{Kind: KindUpstreamProtocolError, Detail: detail, Err: cause}
}

func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Detail: fmt.Sprintf("Unexpected error: %v", cause), Err: cause}
}

// AsError достает *Error из цепочки; все неклассифицированное становится Internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal(err)
}
