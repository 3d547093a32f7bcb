package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/BearBump/DriverPortal/internal/api/trips_api"
)

func NewTripsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Inspect trips",
	}
	cmd.AddCommand(newTripsListCommand(rootOpts))
	cmd.AddCommand(newTripsCurrentCommand(rootOpts))
	cmd.AddCommand(newTripsStatsCommand(rootOpts))
	cmd.AddCommand(newTripsEventsCommand(rootOpts))
	return cmd
}

func newTripsListCommand(rootOpts *RootOptions) *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trips, optionally filtered by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, rootOpts, func(ctx context.Context, c TripsClient, out *OutputFormatter) error {
				resp, err := c.ListTrips(ctx, &trips_api.ListTripsRequest{Status: statusFilter})
				if err != nil {
					return out.Fail("list trips", err)
				}
				return out.Success(resp.Trips, func(w io.Writer) error {
					return writeTrips(w, resp.Trips)
				})
			})
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "active|upcoming|completed")
	return cmd
}

func newTripsCurrentCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current <trip>",
		Short: "Show the next pending pickup of a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, rootOpts, func(ctx context.Context, c TripsClient, out *OutputFormatter) error {
				resp, err := c.CurrentPickup(ctx, &trips_api.TripRequest{TripID: args[0]})
				if err != nil {
					return out.Fail("current pickup", err)
				}
				return out.Success(resp, func(w io.Writer) error {
					if !resp.Found || resp.Pickup == nil {
						_, err := fmt.Fprintf(w, "trip %s: all pickups resolved\n", args[0])
						return err
					}
					return writePickup(w, *resp.Pickup)
				})
			})
		},
	}
}

func newTripsStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <trip>",
		Short: "Show pickup counts of a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, rootOpts, func(ctx context.Context, c TripsClient, out *OutputFormatter) error {
				resp, err := c.CompletionStats(ctx, &trips_api.TripRequest{TripID: args[0]})
				if err != nil {
					return out.Fail("completion stats", err)
				}
				s := resp.Stats
				return out.Success(s, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "picked: %d\nno-show: %d\npending: %d\ntotal: %d\n",
						s.Picked, s.NoShow, s.Pending, s.Total)
					return err
				})
			})
		},
	}
}

func newTripsEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events <trip>",
		Short: "Show the pickup audit log of a trip, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, rootOpts, func(ctx context.Context, c TripsClient, out *OutputFormatter) error {
				resp, err := c.ListPickupEvents(ctx, &trips_api.ListPickupEventsRequest{TripID: args[0], Limit: limit})
				if err != nil {
					return out.Fail("pickup events", err)
				}
				return out.Success(resp.Events, func(w io.Writer) error {
					tw := newTable(w)
					fmt.Fprintln(tw, "ORDER\tPICKUP\tSTATUS\tRESOLVED AT")
					for _, e := range resp.Events {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.PickupOrder, e.PickupID, e.Status, e.ResolvedAt.UTC().Format("2006-01-02 15:04:05"))
					}
					return tw.Flush()
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max events")
	return cmd
}

func writeTrips(w io.Writer, ts []trips_api.Trip) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTATUS\tDATE\tSTART\tROUTE\tDONE")
	for _, t := range ts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s -> %s\t%d/%d\n",
			t.ID, t.Status, t.ScheduledDate, t.StartTime, t.Source, t.Destination,
			t.Stats.Picked+t.Stats.NoShow, t.Stats.Total)
	}
	return tw.Flush()
}

func writePickup(w io.Writer, p trips_api.Pickup) error {
	_, err := fmt.Fprintf(w, "#%d %s %s (%s) %s\n", p.PickupOrder, p.ID, p.Name, p.PickupPoint, p.Status)
	return err
}
