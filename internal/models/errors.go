package models

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound        = errors.New("handle not found")
	ErrProblemNotFound     = errors.New("problem not found")
	ErrInvalidHandle       = errors.New("invalid handle")
	ErrInvalidTopic        = errors.New("invalid topic")
	ErrInvalidInput        = errors.New("invalid input")
	ErrRatingSource        = errors.New("rating source error")
	ErrRatingSourceTimeout = errors.New("rating source timeout")
	ErrConcurrentMutation  = errors.New("concurrent mutation conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	// ErrStore marks failures of the persistence layer.
	ErrStore = errors.New("store failure")
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidHandle   = "INVALID_HANDLE"
	CodeHandleNotFound  = "HANDLE_NOT_FOUND"
	CodeInvalidTopic    = "INVALID_TOPIC"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeProblemNotFound = "PROBLEM_NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeCFAPIError      = "CF_API_ERROR"
	CodeCFAPITimeout    = "CF_API_TIMEOUT"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error:     "error",
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
