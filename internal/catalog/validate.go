package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalid matches any *ValidationError.
var ErrInvalid = errors.New("invalid input")

// ValidationError reports a rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalid.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// Draft holds the fields of a movie to be added.
type Draft struct {
	Title    string
	Link     string
	Image    string // data URL, see EncodeImage
	Position int
}

// Patch holds the payload fields to change on an existing movie.
// Nil fields are left as they are.
type Patch struct {
	Title *string
	Link  *string
	Image *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Link == nil && p.Image == nil
}

// Validate checks a draft before anything is written.
func (d Draft) Validate() error {
	if err := validateTitle(d.Title); err != nil {
		return err
	}
	if err := validateLink(d.Link); err != nil {
		return err
	}
	if d.Image == "" {
		return &ValidationError{Field: "image", Reason: "required"}
	}
	if err := validateImage(d.Image); err != nil {
		return err
	}
	return ValidatePosition(d.Position)
}

// Validate checks the fields a patch sets.
func (p Patch) Validate() error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Link != nil {
		if err := validateLink(*p.Link); err != nil {
			return err
		}
	}
	if p.Image != nil {
		if err := validateImage(*p.Image); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePosition rejects positions below 1.
func ValidatePosition(pos int) error {
	if pos < 1 {
		return &ValidationError{Field: "position", Reason: fmt.Sprintf("must be 1 or greater, got %d", pos)}
	}
	return nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	return nil
}

func validateLink(link string) error {
	if strings.TrimSpace(link) == "" {
		return &ValidationError{Field: "link", Reason: "required"}
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &ValidationError{Field: "link", Reason: "must be an absolute http(s) URL"}
	}
	return nil
}

func validateImage(image string) error {
	if !strings.HasPrefix(image, "data:image/") {
		return &ValidationError{Field: "image", Reason: "must be an image data URL"}
	}
	size, err := DataURLSize(image)
	if err != nil {
		return &ValidationError{Field: "image", Reason: err.Error()}
	}
	return checkImageSize(size)
}
