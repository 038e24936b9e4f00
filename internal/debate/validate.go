package debate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alphabot-ai/debateboard/internal/apperr"
	"github.com/alphabot-ai/debateboard/internal/store"
)

// inputValidate checks create and rebuttal inputs
var inputValidate = newInputValidator()

func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return isCategory(fl.Field().String())
	})
	return v
}

// isCategory reports whether s is one of store.Categories
func isCategory(s string) bool {
	for _, c := range store.Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

func categoryList() string {
	names := make([]string, len(store.Categories))
	for i, c := range store.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// CreateInput is the payload for a new debate
type CreateInput struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Author   string `json:"author"`
	Category string `json:"category" validate:"omitempty,category"`
}

// RebuttalInput is the payload for a rebuttal
type RebuttalInput struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Author  string `json:"author"`
}

func (in *CreateInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
}

func (in *RebuttalInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Author = strings.TrimSpace(in.Author)
}

// validateInput runs the struct tags and converts failures into a ValidationError
func validateInput(v any) error {
	err := inputValidate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal("validate input", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "category":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, categoryList()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return apperr.New(apperr.KindValidation, strings.Join(msgs, "; "))
}
