package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type ChatParams struct {
	Prompt    string `json:"prompt" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *ChatParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type ChatResponse struct {
	Answer    string            `json:"answer"`
	Sources   []SourceReference `json:"sources"`
	Timestamp time.Time         `json:"timestamp"`
}

type UploadResponse struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Status DocumentStatus `json:"status"`
}

type DocumentResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Source    string         `json:"source"`
	Status    DocumentStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
