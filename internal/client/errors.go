package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrCanceled вызывающий отменил запрос или он был вытеснен новым
	ErrCanceled = errors.New("запрос отменён")
	// ErrTimeout истёк таймаут самого запроса
	ErrTimeout = errors.New("таймаут запроса")

	ErrUnknownTask = errors.New("задачи нет в загруженном списке")
)

const (
	msgNotFound = "Task not found"
	msgSignIn   = "Please sign in to continue"
	msgGeneric  = "Something went wrong. Please try again."
)

// APIError ответ сервера с кодом >= 400
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCancellation true и для отмены, и для таймаута: оба не меняют состояние
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, ErrTimeout)
}

// UserMessage то, что можно показать пользователю; внутренние детали не проходят
func UserMessage(err error) string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return msgGeneric
	}
	switch {
	case apiErr.Status == http.StatusNotFound:
		return msgNotFound
	case apiErr.Status == http.StatusUnauthorized && apiErr.Message == "":
		return msgSignIn
	case apiErr.Status >= http.StatusInternalServerError:
		return msgGeneric
	case apiErr.Message != "":
		return apiErr.Message
	}
	return msgGeneric
}
