package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/BearBump/DriverPortal/internal/api/trips_api"
)

// TripsClient is the subset of the gRPC client the commands use.
type TripsClient interface {
	ListTrips(ctx context.Context, req *trips_api.ListTripsRequest) (*trips_api.ListTripsResponse, error)
	CurrentPickup(ctx context.Context, req *trips_api.TripRequest) (*trips_api.CurrentPickupResponse, error)
	CompletionStats(ctx context.Context, req *trips_api.TripRequest) (*trips_api.CompletionStatsResponse, error)
	MarkPicked(ctx context.Context, req *trips_api.MarkPickedRequest) (*trips_api.PickupResponse, error)
	MarkNoShow(ctx context.Context, req *trips_api.MarkNoShowRequest) (*trips_api.PickupResponse, error)
	ListPickupEvents(ctx context.Context, req *trips_api.ListPickupEventsRequest) (*trips_api.ListPickupEventsResponse, error)
	Close() error
}

// DialFunc opens a client for the given address.
type DialFunc func(addr string) (TripsClient, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Addr    string
	Format  string // "json" | "text"
	Timeout time.Duration

	dial DialFunc
}

var ValidFormats = []string{"text", "json"}

const DefaultAddr = "localhost:50051"

// DialGRPC is the production DialFunc.
func DialGRPC(addr string) (TripsClient, error) {
	return trips_api.Dial(addr)
}

func NewRootCommand(dial DialFunc) *cobra.Command {
	opts := &RootOptions{dial: dial}

	cmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Driver portal command line",
		Long:  "Inspect trips and resolve pickups through the portal gRPC API.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", DefaultAddr, "portal gRPC address")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "per-call timeout")

	cmd.AddCommand(NewTripsCommand(opts))
	cmd.AddCommand(NewPickupsCommand(opts))

	return cmd
}

// withClient dials, runs fn under the call timeout and always closes the connection.
func withClient(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, c TripsClient, out *OutputFormatter) error) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	c, err := opts.dial(opts.Addr)
	if err != nil {
		_ = out.Error("Unavailable", err.Error(), nil)
		return WrapExitError(ExitCommandError, "dial "+opts.Addr, err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	return fn(ctx, c, out)
}
