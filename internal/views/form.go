package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iso27001/tracker/internal/models"
)

// All is the filter value that matches everything.
const All = "all"

func unset(v string) bool {
	return v == "" || strings.EqualFold(v, All)
}

// matches is true when the filter value is unset or equal to v.
func matches(filter, v string) bool {
	return unset(filter) || filter == v
}

// FilterItems keeps the items for which keep returns true.
func FilterItems[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s", ErrRequiredField, field)
	}
	return nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt64(field, s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return &n, nil
}

func optionalDate(field, s string) (*models.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return &d, nil
}

func stringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func int64String(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func dateString(d *models.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.String()
}
