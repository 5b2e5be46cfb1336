package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinQuestionLength = 3
	MaxQuestionLength = 1000
	MaxBatchSize      = 10
)

// ValidateQuestion checks the trimmed question is between
// MinQuestionLength and MaxQuestionLength characters.
func ValidateQuestion(question string) error {
	return validateQuestion("question", question)
}

// ValidateBatch checks a batch holds 1 to MaxBatchSize valid questions.
func ValidateBatch(questions []string) error {
	if len(questions) == 0 {
		return &ValidationError{Field: "questions", Message: "at least one question is required"}
	}
	if len(questions) > MaxBatchSize {
		return &ValidationError{
			Field:   "questions",
			Message: fmt.Sprintf("at most %d questions are allowed per batch, got %d", MaxBatchSize, len(questions)),
		}
	}
	for i, q := range questions {
		if err := validateQuestion(fmt.Sprintf("questions[%d]", i), q); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(field, question string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(question))
	switch {
	case n == 0:
		return &ValidationError{Field: field, Message: "question is required"}
	case n < MinQuestionLength:
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("question must be at least %d characters", MinQuestionLength),
		}
	case n > MaxQuestionLength:
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("question must be at most %d characters", MaxQuestionLength),
		}
	}
	return nil
}
