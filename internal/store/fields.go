package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	listSep    = ";"
)

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func ParseTime(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q: %v", ErrMalformedRow, field, v, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func ParseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q: %v", ErrMalformedRow, field, v, err)
	}
	return t, nil
}

func ParseInt(field, v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrMalformedRow, field, v, err)
	}
	return n, nil
}

func ParseBool(field, v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q: %v", ErrMalformedRow, field, v, err)
	}
	return b, nil
}

// JoinList packs a short string list into one field.
func JoinList(items []string) string {
	return strings.Join(items, listSep)
}

func SplitList(v string) []string {
	if v == "" {
		return nil
	}
	return strings.Split(v, listSep)
}
