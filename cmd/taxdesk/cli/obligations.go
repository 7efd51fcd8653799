package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/business"
	"github.com/taxdesk/taxdesk/internal/obligations"
)

// ProfileSource loads business profiles.
type ProfileSource interface {
	Profile(ctx context.Context, businessID uuid.UUID) (business.Profile, error)
}

// ObligationsOptions configures the obligations command.
type ObligationsOptions struct {
	BusinessID string
	At         time.Time
	Within     time.Duration
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// RunObligations prints the obligation timeline of a business and returns the
// process exit code.
func RunObligations(ctx context.Context, profiles ProfileSource, opts ObligationsOptions) int {
	id, err := uuid.Parse(opts.BusinessID)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "invalid business id %q\n", opts.BusinessID)
		return 2
	}
	profile, err := profiles.Profile(ctx, id)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "load profile: %v\n", err)
		return 1
	}
	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}
	list := obligations.Timeline(profile, at)
	if opts.Within > 0 {
		list = obligations.Upcoming(list, at, opts.Within)
	}

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{"business_id": id, "at": at, "obligations": list}); err != nil {
			fmt.Fprintf(opts.Stderr, "encode: %v\n", err)
			return 1
		}
		return 0
	}

	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tFREQUENCY\tDUE\tCHANNEL\tTITLE")
	for _, o := range list {
		due := "-"
		if o.DueDate != nil {
			due = o.DueDate.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Code, o.Frequency, due, o.Channel, o.Title)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(opts.Stderr, "write: %v\n", err)
		return 1
	}
	return 0
}
