package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iso27001/tracker/internal/views"
)

// field binds one string form field to a flag.
type field struct {
	name  string
	usage string
	ptr   *string
}

func bindFields(cmd *cobra.Command, fields []field) {
	for _, f := range fields {
		cmd.Flags().StringVar(f.ptr, f.name, *f.ptr, f.usage)
	}
}

// applyChanged copies the flags the user actually set from in to out. Both
// lists come from the same field constructor, so they line up by index.
func applyChanged(cmd *cobra.Command, in, out []field) {
	for i, f := range in {
		if cmd.Flags().Changed(f.name) {
			*out[i].ptr = *f.ptr
		}
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// refreshed loads a list and fails when the fetch failed, since commands have
// no stale data to fall back to.
func refreshed(ctx context.Context, refresh func(context.Context) error) error {
	if err := refresh(ctx); err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	return nil
}

// find loads the record being edited.
func find[T any](list *views.List[T], id int64) (T, error) {
	rec, ok := list.Find(id)
	if !ok {
		return rec, fmt.Errorf("record %d not found", id)
	}
	return rec, nil
}

// selection holds the bulk-target flags: explicit --ids, or --all of the
// filtered view minus --except.
type selection struct {
	ids    []int64
	except []int64
	all    bool
}

func (s *selection) bind(cmd *cobra.Command) {
	cmd.Flags().Int64SliceVar(&s.ids, "ids", nil, "record ids to update")
	cmd.Flags().BoolVar(&s.all, "all", false, "update every record matching the filters")
	cmd.Flags().Int64SliceVar(&s.except, "except", nil, "with --all, record ids to leave out")
}

// selectTargets checks the rows the flags name, the way a user ticks
// checkboxes in the list.
func selectTargets[T any](list *views.List[T], s selection, visible func() []T) error {
	switch {
	case s.all && len(s.ids) > 0:
		return fmt.Errorf("use either --ids or --all")
	case len(s.except) > 0 && !s.all:
		return fmt.Errorf("--except needs --all")
	case s.all:
		list.SelectAll(visible())
		for _, id := range s.except {
			if list.IsSelected(id) {
				list.Toggle(id)
			}
		}
	case len(s.ids) > 0:
		for _, id := range s.ids {
			if _, ok := list.Find(id); !ok {
				return fmt.Errorf("record %d not found", id)
			}
			if !list.IsSelected(id) {
				list.Toggle(id)
			}
		}
	default:
		return views.ErrNoSelection
	}
	return nil
}
