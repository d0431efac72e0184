package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/internal/client"
	"github.com/carryon-app/carryon/internal/models"
	"github.com/carryon-app/carryon/pkg/output"
)

const timeLayout = "2006-01-02 15:04"

var tripsCmd = &cobra.Command{
	Use:   "trips",
	Short: "Trip commands",
	Long:  "Browse, create and cancel trips",
}

var tripsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trips",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var f client.TripFilter
		status, _ := flags.GetString("status")
		f.Status = models.TripStatus(status)
		f.RouteID, _ = flags.GetString("route")
		f.TravelerID, _ = flags.GetString("traveler")
		f.Page, _ = flags.GetInt("page")
		f.PageSize, _ = flags.GetInt("page-size")

		return run(cmd, func(ctx context.Context, e *env) error {
			if mine, _ := flags.GetBool("mine"); mine {
				tokens, err := e.session.Load(ctx)
				if err != nil {
					return err
				}
				f.TravelerID = tokens.Subject()
			}

			page, err := e.client.Trips.List(ctx, f)
			if err != nil {
				return fmt.Errorf("failed to list trips: %w", err)
			}
			return output.Render(e.format, page, func() *output.Table {
				t := output.NewTable("ID", "ROUTE", "DEPARTS", "STATUS", "CAPACITY", "TRAVELER")
				for _, trip := range page.Items {
					t.AddRow(tripRow(trip)...)
				}
				output.Info("Trips (%d of %d):", t.Len(), page.Total)
				return t
			})
		})
	},
}

var tripsShowCmd = &cobra.Command{
	Use:   "show <trip-id>",
	Short: "Show a trip with its route, traveler and orders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			trip, err := e.client.Trips.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return output.Render(e.format, trip, func() *output.Table {
				t := output.NewTable("FIELD", "VALUE")
				t.AddRow("ID", trip.ID)
				t.AddRow("Status", string(trip.Status))
				if trip.Route != nil {
					t.AddRow("Route", trip.Route.String())
				}
				if trip.Traveler != nil {
					t.AddRow("Traveler", trip.Traveler.Name())
				}
				t.AddRow("Departs", trip.DepartureAt.Local().Format(timeLayout))
				t.AddRow("Arrives", trip.ArrivalAt.Local().Format(timeLayout))
				t.AddRow("Capacity", formatKg(trip.CapacityKg))
				t.AddRow("Orders", strconv.Itoa(len(trip.Orders)))
				if trip.Notes != "" {
					t.AddRow("Notes", trip.Notes)
				}
				return t
			})
		})
	},
}

var tripsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Announce a new trip",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var in client.TripInput
		in.RouteID, _ = flags.GetString("route")
		in.CapacityKg, _ = flags.GetFloat64("capacity")
		in.Notes, _ = flags.GetString("notes")
		departs, _ := flags.GetString("departs")
		arrives, _ := flags.GetString("arrives")
		var err error
		if in.DepartureAt, err = time.ParseInLocation(timeLayout, departs, time.Local); err != nil {
			return fmt.Errorf("invalid --departs: %w", err)
		}
		if in.ArrivalAt, err = time.ParseInLocation(timeLayout, arrives, time.Local); err != nil {
			return fmt.Errorf("invalid --arrives: %w", err)
		}

		return run(cmd, func(ctx context.Context, e *env) error {
			trip, err := e.client.Trips.Create(ctx, in)
			if err != nil {
				return fmt.Errorf("failed to create trip: %w", err)
			}
			output.Success("Trip %s created", trip.ID)
			return nil
		})
	},
}

var tripsCancelCmd = &cobra.Command{
	Use:   "cancel <trip-id>",
	Short: "Cancel one of your trips",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			trip, err := e.client.Trips.Cancel(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to cancel trip: %w", err)
			}
			output.Success("Trip %s is now %s", trip.ID, trip.Status)
			return nil
		})
	},
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Route commands",
}

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var f client.RouteFilter
		f.Origin, _ = flags.GetString("from")
		f.Destination, _ = flags.GetString("to")
		f.Page, _ = flags.GetInt("page")
		f.PageSize, _ = flags.GetInt("page-size")

		return run(cmd, func(ctx context.Context, e *env) error {
			page, err := e.client.Routes.List(ctx, f)
			if err != nil {
				return fmt.Errorf("failed to list routes: %w", err)
			}
			return output.Render(e.format, page, func() *output.Table {
				t := output.NewTable("ID", "FROM", "TO", "DURATION", "ACTIVE TRIPS")
				for _, r := range page.Items {
					duration := ""
					if r.DurationMinutes > 0 {
						duration = (time.Duration(r.DurationMinutes) * time.Minute).String()
					}
					t.AddRow(r.ID, r.Origin, r.Destination, duration, strconv.Itoa(r.ActiveTrips))
				}
				output.Info("Routes (%d of %d):", t.Len(), page.Total)
				return t
			})
		})
	},
}

func tripRow(trip models.Trip) []string {
	route, traveler := "", ""
	if trip.Route != nil {
		route = trip.Route.String()
	}
	if trip.Traveler != nil {
		traveler = trip.Traveler.Name()
	}
	return []string{
		trip.ID,
		route,
		trip.DepartureAt.Local().Format(timeLayout),
		string(trip.Status),
		formatKg(trip.CapacityKg),
		traveler,
	}
}

func formatKg(kg float64) string {
	return strconv.FormatFloat(kg, 'f', -1, 64) + " kg"
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 0, "Page number")
	cmd.Flags().Int("page-size", 0, "Results per page")
}

func init() {
	rootCmd.AddCommand(tripsCmd, routesCmd)
	tripsCmd.AddCommand(tripsListCmd, tripsShowCmd, tripsCreateCmd, tripsCancelCmd)
	routesCmd.AddCommand(routesListCmd)

	tripsListCmd.Flags().String("status", "", "Filter by status: scheduled, in_transit, completed, cancelled")
	tripsListCmd.Flags().String("route", "", "Filter by route ID")
	tripsListCmd.Flags().String("traveler", "", "Filter by traveler ID")
	tripsListCmd.Flags().Bool("mine", false, "Only trips you travel on")
	addPageFlags(tripsListCmd)

	tripsCreateCmd.Flags().String("route", "", "Route ID")
	tripsCreateCmd.Flags().String("departs", "", "Departure time ("+timeLayout+")")
	tripsCreateCmd.Flags().String("arrives", "", "Arrival time ("+timeLayout+")")
	tripsCreateCmd.Flags().Float64("capacity", 0, "Spare luggage capacity in kg")
	tripsCreateCmd.Flags().String("notes", "", "Notes for shoppers")
	tripsCreateCmd.MarkFlagRequired("route")
	tripsCreateCmd.MarkFlagRequired("departs")
	tripsCreateCmd.MarkFlagRequired("arrives")

	routesListCmd.Flags().String("from", "", "Filter by origin")
	routesListCmd.Flags().String("to", "", "Filter by destination")
	addPageFlags(routesListCmd)
}
