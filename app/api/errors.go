package api

import (
	"errors"
	"fmt"
	"time"

	"wikichat/app/agent"
	"wikichat/chunker"
	"wikichat/model"
	"wikichat/retriever"
	"wikichat/store"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler maps domain errors onto HTTP status codes. Pipeline
// failures caused by upstreams come back as 502, storage and unknown
// failures as 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	apiError := mapDomainError(err)
	curTime := time.Now()
	fmt.Printf("%s Request failed with code %d and message: %s\n", &curTime, apiError.Code, apiError.Message)
	return c.Status(apiError.Code).JSON(apiError)
}

func mapDomainError(err error) Error {
	var stageErr *agent.StageError
	if errors.As(err, &stageErr) {
		code := fiber.StatusInternalServerError
		if errors.Is(err, model.ErrUpstream) || stageErr.Stage == agent.StageGeneration {
			code = fiber.StatusBadGateway
		}
		return NewError(code, fmt.Sprintf("query failed during %s", stageErr.Stage))
	}

	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		return ErrNotFound("requested id", "document")
	case errors.Is(err, store.ErrConversationNotFound):
		return ErrNotFound("requested session", "conversation")
	case errors.Is(err, model.ErrEmptyInput),
		errors.Is(err, chunker.ErrInvalidParameters),
		errors.Is(err, retriever.ErrInvalidQuery),
		errors.Is(err, retriever.ErrInvalidTopK):
		return NewError(fiber.StatusBadRequest, err.Error())
	}

	if fiberErr, ok := err.(*fiber.Error); ok {
		return NewError(fiberErr.Code, fiberErr.Message)
	}
	return NewError(fiber.StatusInternalServerError, "internal server error")
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrInvalidID() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid id given",
	}
}

func ErrNotFound[T any](arg T, resource string) Error {
	return Error{
		Code:    fiber.StatusNotFound,
		Message: fmt.Sprintf("%s with %v not found", resource, arg),
	}
}
