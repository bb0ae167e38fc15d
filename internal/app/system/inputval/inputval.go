// Package inputval holds the field rules shared by StudyHub operations.
//
// Rules are plain predicates; Result collects failures for one operation so
// a service can reject bad input before touching the store.
package inputval

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field limits.
const (
	UsernameMin       = 3
	UsernameMax       = 20
	PasswordMin       = 8
	BioMax            = 200
	GroupNameMax      = 50
	GroupDescMax      = 500
	MessageMax        = 500
	MaxAttachments    = 5
	EventTitleMax     = 100
	EventDescMax      = 1000
	PostMax           = 1000
	CommentMax        = 500
	AttachmentNameMax = 255
)

var usernameRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Len returns the length of s in characters (runes), not bytes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// IsValidUsername enforces 3–20 characters of letters, digits and underscore.
func IsValidUsername(s string) bool {
	n := Len(s)
	return n >= UsernameMin && n <= UsernameMax && usernameRE.MatchString(s)
}

// IsValidEmail performs structural validation of an addr-spec. Display-name
// forms ("Name <a@b>") and addresses with whitespace are rejected.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n<>") {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return false
	}
	return validDotted(s[:at]) && validDotted(s[at+1:])
}

func validDotted(part string) bool {
	if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") {
		return false
	}
	return !strings.Contains(part, "..")
}

// IsValidObjectID reports whether s (trimmed) is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// OneOf reports whether v is exactly one of allowed.
func OneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects rule failures.
type Result struct {
	Errors []FieldError
}

// Check records msg against field when ok is false.
func (r *Result) Check(ok bool, field, msg string) {
	if !ok {
		r.Errors = append(r.Errors, FieldError{Field: field, Message: msg})
	}
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first failure message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every failure message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Err returns an InvalidArgument error carrying every message, or nil.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apperr.Invalidf("%s", r.All())
}
