package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRefName is returned for names git check-ref-format would reject.
var ErrInvalidRefName = errors.New("invalid ref name")

type RefName struct {
	// FullName is the entire, raw refname, including the 'refs/' prefix (unless it is HEAD).
	FullName string
	// Category is the first part of the refname after 'refs/'. E.g. 'heads'. Can be 'HEAD' for HEAD.
	// Does not include a final slash.
	Category string
	// Location is the remainder of the refname after the category. E.g. 'main', 'feature/test'.
	Location string
}

// HEAD is a special-case refname that always exists and is always valid.
var HEAD RefName = RefName{
	FullName: "HEAD",
	Category: "HEAD",
	Location: "HEAD",
}

// ParseRefName parses and validates a full refname.
// HEAD is always valid. Anything else must start with `refs/`, name a category
// and a location, and pass CheckRefFormat.
func ParseRefName(in string) (RefName, error) {
	if in == "HEAD" {
		return HEAD, nil
	}

	rn := RefName{FullName: in}
	if !strings.HasPrefix(in, "refs/") {
		return rn, fmt.Errorf("%w: %q does not include refs/ prefix", ErrInvalidRefName, in)
	}
	rest := in[len("refs/"):]

	categoryIdx := strings.IndexRune(rest, '/')
	if categoryIdx == -1 {
		return rn, fmt.Errorf("%w: %q does not include a category", ErrInvalidRefName, in)
	}
	rn.Category = rest[:categoryIdx]
	rn.Location = rest[categoryIdx+1:]

	if err := CheckRefFormat(in); err != nil {
		return rn, err
	}
	return rn, nil
}

// CheckRefFormat applies the rules of git check-ref-format to name:
//
//   - No slash-separated component can be empty, start with a dot ('.') or end with '.lock'.
//   - No consecutive dots ('..') exist anywhere.
//   - No bytes below 040, DEL (177), space, '~', '^', ':', '?', '*', '[' or '\'.
//   - It cannot end with a slash or a dot.
//   - It cannot contain '@{' and cannot be the single character '@'.
func CheckRefFormat(name string) error {
	invalid := func(reason string) error {
		return fmt.Errorf("%w: %q %s", ErrInvalidRefName, name, reason)
	}

	if name == "" {
		return invalid("is empty")
	}
	if name == "@" {
		return invalid("is a lone @")
	}
	if strings.HasSuffix(name, "/") || strings.HasSuffix(name, ".") {
		return invalid("ends with a slash or a dot")
	}
	if strings.Contains(name, "..") {
		return invalid("contains ..")
	}
	if strings.Contains(name, "@{") {
		return invalid("contains @{")
	}

	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 040 || c == 0177 {
			return invalid("contains a control character")
		}
		switch c {
		case ' ', '~', '^', ':', '?', '*', '[', '\\':
			return invalid(fmt.Sprintf("contains %q", c))
		}
	}

	for _, component := range strings.Split(name, "/") {
		switch {
		case component == "":
			return invalid("has an empty component")
		case strings.HasPrefix(component, "."):
			return invalid("has a component starting with a dot")
		case strings.HasSuffix(component, ".lock"):
			return invalid("has a component ending with .lock")
		}
	}

	return nil
}
