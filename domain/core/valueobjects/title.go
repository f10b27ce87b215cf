package valueobjects

import (
	"strings"

	pkgerrors "github.com/Quan024/Phan-loai-bao/pkg/errors"
)

// Title is a paper title with surrounding whitespace removed. A zero Title
// is never handed out by NewTitle.
type Title struct {
	value string
}

// NewTitle trims the raw title and rejects it when nothing is left.
func NewTitle(raw string) (Title, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Title{}, pkgerrors.NewValidationError("title must not be empty")
	}
	return Title{value: value}, nil
}

// String returns the trimmed title
func (t Title) String() string {
	return t.value
}

// IsZero reports whether the title was never initialised
func (t Title) IsZero() bool {
	return t.value == ""
}
