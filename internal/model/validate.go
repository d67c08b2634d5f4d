package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxTextLength bounds message text, in runes.
const DefaultMaxTextLength = 500

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

const invalidUTF8 = "must be valid UTF-8"

// ValidateText trims text and checks it is valid UTF-8, non-empty and at most
// maxLen runes. It returns the trimmed text.
func ValidateText(text string, maxLen int) (string, error) {
	if !utf8.ValidString(text) {
		return "", &ValidationError{Errors: []FieldError{{Field: "text", Message: invalidUTF8}}}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", &ValidationError{Errors: []FieldError{{Field: "text", Message: "is required"}}}
	}
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return "", &ValidationError{Errors: []FieldError{{
			Field:   "text",
			Message: fmt.Sprintf("must be %d characters or fewer", maxLen),
		}}}
	}
	return trimmed, nil
}

// ValidateAuthor trims the optional author fields and rejects bytes that are
// not UTF-8, since JSON encoding would rewrite them on the way to other replicas.
func ValidateAuthor(name, phone string) (string, string, error) {
	var ve ValidationError
	if !utf8.ValidString(name) {
		ve.Errors = append(ve.Errors, FieldError{Field: "author_name", Message: invalidUTF8})
	}
	if !utf8.ValidString(phone) {
		ve.Errors = append(ve.Errors, FieldError{Field: "author_phone", Message: invalidUTF8})
	}
	if ve.HasErrors() {
		return "", "", &ve
	}
	return strings.TrimSpace(name), strings.TrimSpace(phone), nil
}

// ValidateMessage checks a Message record received from any source.
// It returns a *ValidationError if any rules fail, or nil if the record is valid.
func ValidateMessage(m *Message) error {
	var ve ValidationError

	if strings.TrimSpace(m.ID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "id", Message: "is required"})
	}
	if strings.TrimSpace(m.EventID) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "event_id", Message: "is required"})
	}
	if strings.TrimSpace(m.Text) == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "text", Message: "is required"})
	}
	for _, f := range []struct{ name, value string }{
		{"text", m.Text},
		{"author_name", m.AuthorName},
		{"author_phone", m.AuthorPhone},
	} {
		if !utf8.ValidString(f.value) {
			ve.Errors = append(ve.Errors, FieldError{Field: f.name, Message: invalidUTF8})
		}
	}
	if !m.Status.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "status",
			Message: fmt.Sprintf("invalid value %q", m.Status),
		})
	}
	if m.CreatedAt.IsZero() {
		ve.Errors = append(ve.Errors, FieldError{Field: "created_at", Message: "is required"})
	}

	// ApprovedAt consistency with Status.
	if m.Status == StatusApproved && m.ApprovedAt == nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "approved_at",
			Message: "is required when status is approved",
		})
	}
	if m.Status != StatusApproved && m.ApprovedAt != nil {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "approved_at",
			Message: "must be nil when status is not approved",
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ApplyDefaults trims the input and fills in theme colors and display name.
func (in *NewEventInput) ApplyDefaults() {
	in.Name = strings.TrimSpace(in.Name)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.AdminID = strings.TrimSpace(in.AdminID)
	if in.DisplayName == "" {
		in.DisplayName = in.Name
	}
	if strings.TrimSpace(in.Theme.BackgroundColor) == "" {
		in.Theme.BackgroundColor = DefaultBackgroundColor
	}
	if strings.TrimSpace(in.Theme.TextColor) == "" {
		in.Theme.TextColor = DefaultTextColor
	}
}

// ValidateNewEvent checks admin input for a new event. Call ApplyDefaults first.
func ValidateNewEvent(in *NewEventInput) error {
	return validateStruct(in)
}

// ValidateNewGuest trims and checks guest registration input.
func ValidateNewGuest(in *NewGuestInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	return validateStruct(in)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names so errors match the wire format.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// validateStruct runs tag-based validation and converts failures to a *ValidationError.
func validateStruct(v any) error {
	err := structValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Errors = append(ve.Errors, FieldError{Field: fieldPath(fe), Message: tagMessage(fe)})
	}
	return ve
}

// fieldPath drops the top-level struct name from the namespace ("NewEventInput.theme.text_color").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "hexcolor":
		return fmt.Sprintf("must be a hex color, got %q", fe.Value())
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "failed " + fe.Tag() + " check"
}
