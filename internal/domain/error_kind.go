package domain

import (
	"errors"
	"fmt"
	"regexp"
)

const maxErrorKindLen = 20

var errorKindStrip = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// ErrorKindTag names the dynamic type of the innermost wrapped error,
// e.g. "*fs.PathError" becomes "fsPathError".
func ErrorKindTag(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := unwrapOne(err)
		if next == nil {
			break
		}
		err = next
	}
	return sanitizeKind(fmt.Sprintf("%T", err))
}

// unwrapOne follows single wrapping, or the last error of a multi-wrap.
func unwrapOne(err error) error {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		errs := multi.Unwrap()
		if len(errs) == 0 {
			return nil
		}
		return errs[len(errs)-1]
	}
	return errors.Unwrap(err)
}

// PanicKindTag names the type of a recovered panic value.
func PanicKindTag(v any) string {
	if err, ok := v.(error); ok {
		return ErrorKindTag(err)
	}
	return sanitizeKind(fmt.Sprintf("%T", v))
}

func sanitizeKind(name string) string {
	name = errorKindStrip.ReplaceAllString(name, "")
	if len(name) > maxErrorKindLen {
		name = name[:maxErrorKindLen]
	}
	return name
}
