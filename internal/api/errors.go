package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrTimeout      = errors.New("request timed out")
	ErrNetwork      = errors.New("network error")
	ErrBatchAborted = errors.New("batch aborted")
)

const (
	msgTimeout = "Превышено время ожидания ответа"
	msgNetwork = "Нет соединения с сервером"
	msgDecode  = "Некорректный ответ сервера"
	msgDefault = "Произошла ошибка"
)

var statusMessages = map[int]string{
	http.StatusBadRequest:          "Неверный запрос",
	http.StatusUnauthorized:        "Требуется авторизация",
	http.StatusForbidden:           "Доступ запрещён",
	http.StatusNotFound:            "Ресурс не найден",
	http.StatusTooManyRequests:     "Слишком много запросов. Попробуйте позже",
	http.StatusInternalServerError: "Ошибка сервера",
	http.StatusServiceUnavailable:  "Сервис временно недоступен",
}

// StatusMessage returns the user-facing text for an HTTP status.
func StatusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Произошла ошибка (код %d)", code)
}

// Error is returned by Client for every failed request. StatusCode is zero
// for transport failures.
type Error struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Message)
	}
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := sentinelFor(e.StatusCode); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable reports whether the failure may succeed on a later attempt.
// Client errors that cannot change on their own are excluded.
func (e *Error) Retryable() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	}
	return !errors.Is(e.Err, context.Canceled)
}

func sentinelFor(code int) error {
	switch {
	case code == 0:
		return nil
	case code == http.StatusBadRequest:
		return ErrBadRequest
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return ErrServer
	}
	return nil
}

func newStatusError(method, endpoint string, code int, detail string) *Error {
	return &Error{
		Method:     method,
		Endpoint:   endpoint,
		StatusCode: code,
		Message:    StatusMessage(code),
		Detail:     detail,
	}
}

func newTransportError(method, endpoint string, err error) *Error {
	e := &Error{Method: method, Endpoint: endpoint, Err: err}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		e.Message = msgTimeout
		e.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		e.Message = msgDefault
	default:
		e.Message = msgNetwork
		e.Err = fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return e
}

// UserMessage turns any error from this package into text safe to show
// in a toast.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, ErrNetwork):
		return msgNetwork
	}
	return msgDefault
}

// IsRetryable is the retry policy used by Retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return !errors.Is(err, context.Canceled)
}
