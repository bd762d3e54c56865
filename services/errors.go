package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies domain failures so transport code can map them to
// status codes and callers can discriminate between the 409 variants.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindValidation       ErrorKind = "validation_error"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindConflict         ErrorKind = "conflict"
	KindState            ErrorKind = "state_error"
)

// DomainError carries a kind and a caller-facing message.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NotFoundError(format string, args ...any) error {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...any) error {
	return &DomainError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func CapacityError(format string, args ...any) error {
	return &DomainError{Kind: KindCapacityExceeded, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...any) error {
	return &DomainError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func StateError(format string, args ...any) error {
	return &DomainError{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, or "" for non-domain errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func statusFor(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindValidation:
		return fiber.StatusBadRequest
	case KindCapacityExceeded, KindConflict, KindState:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError writes the JSON error body for a failed operation. Non-domain
// errors are logged and reported as opaque 500s.
func respondError(c *fiber.Ctx, err error) error {
	var de *DomainError
	if errors.As(err, &de) {
		return c.Status(statusFor(de.Kind)).JSON(fiber.Map{
			"error": de.Message,
			"kind":  string(de.Kind),
		})
	}
	log.Printf("[ERROR] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
