package controller

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Messages shown for blank topics.
const (
	MsgEnterTopic      = "Please enter a topic"
	MsgEnterBothTopics = "Please enter both topics"
)

// ValidationError rejects a submission before any request is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = validator.New()

type singleForm struct {
	Topic      string `validate:"required"`
	Complexity string `validate:"omitempty,oneof=beginner intermediate expert"`
}

type fusionForm struct {
	TopicA     string `validate:"required"`
	TopicB     string `validate:"required"`
	Complexity string `validate:"omitempty,oneof=beginner intermediate expert"`
}

// validateForm checks form and turns the first failure into a
// ValidationError. A missing required field reports blank.
func validateForm(form any, blank string) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &ValidationError{Message: blank}
		}
	}
	return &ValidationError{Message: formatFieldError(verrs[0])}
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
