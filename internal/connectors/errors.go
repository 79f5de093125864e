package connectors

import (
	"fmt"
)

// TransportError: провайдер недостижим: таймаут, DNS, обрыв соединения.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// StatusError: провайдер ответил не-2xx. Body хранится как есть для диагностики.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// DecodeError: успешный статус, но тело не разбирается как ответ chat completion.
type DecodeError struct {
	Body  string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed provider payload: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }
