package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/BearBump/DriverPortal/internal/api/trips_api"
)

func NewPickupsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pickups",
		Short: "Resolve pickups",
	}
	cmd.AddCommand(newPickupsPickCommand(rootOpts))
	cmd.AddCommand(newPickupsNoShowCommand(rootOpts))
	return cmd
}

func newPickupsPickCommand(rootOpts *RootOptions) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "pick <trip> <pickup>",
		Short: "Mark a pickup as picked, verifying the employee code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, rootOpts, func(ctx context.Context, c TripsClient, out *OutputFormatter) error {
				resp, err := c.MarkPicked(ctx, &trips_api.MarkPickedRequest{TripID: args[0], PickupID: args[1], Code: code})
				if err != nil {
					return out.Fail("mark picked", err)
				}
				return out.Success(resp.Pickup, func(w io.Writer) error {
					return writePickup(w, resp.Pickup)
				})
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "verification code given by the employee")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newPickupsNoShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "no-show <trip> <pickup>",
		Short: "Mark a pickup as no-show",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, rootOpts, func(ctx context.Context, c TripsClient, out *OutputFormatter) error {
				resp, err := c.MarkNoShow(ctx, &trips_api.MarkNoShowRequest{TripID: args[0], PickupID: args[1]})
				if err != nil {
					return out.Fail("mark no-show", err)
				}
				return out.Success(resp.Pickup, func(w io.Writer) error {
					return writePickup(w, resp.Pickup)
				})
			})
		},
	}
}
