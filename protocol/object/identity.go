package object

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrIncompleteIdentity is returned when an identity lacks a name or an email.
var ErrIncompleteIdentity = errors.New("identity requires a name and an email")

// Identity is an author or committer as recorded in a commit.
type Identity struct {
	Name      string
	Email     string
	Timestamp int64
	Timezone  string
}

// NewIdentity builds an identity stamped with when.
func NewIdentity(name, email string, when time.Time) Identity {
	return Identity{
		Name:      name,
		Email:     email,
		Timestamp: when.Unix(),
		Timezone:  when.Format("-0700"),
	}
}

// Validate checks that the identity can be written into a commit.
func (i Identity) Validate() error {
	if strings.TrimSpace(i.Name) == "" || strings.TrimSpace(i.Email) == "" {
		return ErrIncompleteIdentity
	}
	if strings.ContainsAny(i.Name, "<>\n") || strings.ContainsAny(i.Email, "<>\n") {
		return fmt.Errorf("identity %q <%s> contains reserved characters", i.Name, i.Email)
	}
	return nil
}

// String renders the identity as it appears in a commit header.
func (i Identity) String() string {
	tz := i.Timezone
	if tz == "" {
		tz = "+0000"
	}
	return fmt.Sprintf("%s <%s> %d %s", i.Name, i.Email, i.Timestamp, tz)
}

// ParseIdentity reads an identity line of a commit header,
// "name <email> seconds zone".
func ParseIdentity(line string) (*Identity, error) {
	open, closing := strings.LastIndexByte(line, '<'), strings.LastIndexByte(line, '>')
	if open < 0 || closing < open {
		return nil, fmt.Errorf("invalid identity format: %s", line)
	}

	stamp := strings.Fields(line[closing+1:])
	if len(stamp) != 2 {
		return nil, fmt.Errorf("invalid time format: %s", strings.TrimSpace(line[closing+1:]))
	}
	seconds, err := strconv.ParseInt(stamp[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}

	return &Identity{
		Name:      strings.TrimSpace(line[:open]),
		Email:     line[open+1 : closing],
		Timestamp: seconds,
		Timezone:  stamp[1],
	}, nil
}

// Time returns the identity's timestamp in its recorded zone.
func (i *Identity) Time() (time.Time, error) {
	zone, err := time.Parse("-0700", i.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone offset %q: %w", i.Timezone, err)
	}
	return time.Unix(i.Timestamp, 0).In(zone.Location()), nil
}
