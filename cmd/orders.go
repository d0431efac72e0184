package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/internal/client"
	"github.com/carryon-app/carryon/internal/models"
	"github.com/carryon-app/carryon/pkg/output"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Shopping order commands",
	Long:  "List, inspect and cancel shopping orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your shopping orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var f client.OrderFilter
		status, _ := flags.GetString("status")
		f.Status = models.OrderStatus(status)
		f.Role, _ = flags.GetString("role")
		f.Page, _ = flags.GetInt("page")
		f.PageSize, _ = flags.GetInt("page-size")

		return run(cmd, func(ctx context.Context, e *env) error {
			page, err := e.client.Orders.List(ctx, f)
			if err != nil {
				return fmt.Errorf("failed to list orders: %w", err)
			}
			return output.Render(e.format, page, func() *output.Table {
				t := output.NewTable("ID", "STATUS", "DESTINATION", "TOTAL", "SHOPPER", "TRIP")
				for _, o := range page.Items {
					shopper, trip := "", ""
					if o.Shopper != nil {
						shopper = o.Shopper.Name()
					}
					if o.Trip != nil {
						trip = o.Trip.ID
					}
					t.AddRow(o.ID, string(o.Status), o.Destination, o.Total.String(), shopper, trip)
				}
				output.Info("Orders (%d of %d):", t.Len(), page.Total)
				return t
			})
		})
	},
}

var ordersShowCmd = &cobra.Command{
	Use:   "show <order-id>",
	Short: "Show an order with its items and quotes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			order, err := e.client.Orders.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return output.Render(e.format, order, func() *output.Table {
				output.Info("Order %s (%s) to %s, total %s", order.ID, order.Status, order.Destination, order.Total)
				if order.Trip != nil {
					output.Info("Carried on trip %s", order.Trip.ID)
				}
				t := output.NewTable("ITEM", "QTY", "PRICE")
				for _, item := range order.Items {
					t.AddRow(item.Name, strconv.Itoa(item.Quantity), item.Price.String())
				}
				for _, q := range order.Quotes {
					output.Info("Quote %s: %s (%s)", q.ID, q.Fee, q.Status)
				}
				return t
			})
		})
	},
}

var ordersCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel one of your orders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			order, err := e.client.Orders.Cancel(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to cancel order: %w", err)
			}
			output.Success("Order %s is now %s", order.ID, order.Status)
			return nil
		})
	},
}

var ordersReceiptCmd = &cobra.Command{
	Use:   "receipt <order-id>",
	Short: "Download the receipt of an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			file = args[0] + ".pdf"
		}

		return run(cmd, func(ctx context.Context, e *env) error {
			data, err := e.client.Orders.Receipt(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to download receipt: %w", err)
			}
			if file == "-" {
				_, err := output.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(file, data, 0644); err != nil {
				return err
			}
			output.Success("Receipt saved to %s (%d bytes)", file, len(data))
			return nil
		})
	},
}

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Quote commands",
	Long:  "Review and answer travellers' quotes on your orders",
}

var quotesListCmd = &cobra.Command{
	Use:   "list <order-id>",
	Short: "List the quotes on an order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			quotes, err := e.client.Quotes.ListForOrder(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list quotes: %w", err)
			}
			return output.Render(e.format, quotes, func() *output.Table {
				t := output.NewTable("ID", "STATUS", "FEE", "EXPIRES", "MESSAGE")
				for _, q := range quotes {
					t.AddRow(q.ID, string(q.Status), q.Fee.String(), q.ExpiresAt.Local().Format(timeLayout), q.Message)
				}
				return t
			})
		})
	},
}

var quotesAcceptCmd = &cobra.Command{
	Use:   "accept <quote-id>",
	Short: "Accept a quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			q, err := e.client.Quotes.Accept(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to accept quote: %w", err)
			}
			output.Success("Quote %s accepted for %s", q.ID, q.Fee)
			return nil
		})
	},
}

var quotesDeclineCmd = &cobra.Command{
	Use:   "decline <quote-id>",
	Short: "Decline a quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			q, err := e.client.Quotes.Decline(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to decline quote: %w", err)
			}
			output.Success("Quote %s declined", q.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ordersCmd, quotesCmd)
	ordersCmd.AddCommand(ordersListCmd, ordersShowCmd, ordersCancelCmd, ordersReceiptCmd)
	quotesCmd.AddCommand(quotesListCmd, quotesAcceptCmd, quotesDeclineCmd)

	ordersListCmd.Flags().String("status", "", "Filter by status: open, accepted, purchased, delivered, cancelled")
	ordersListCmd.Flags().String("role", "", "shopper for orders you placed, traveler for orders you carry")
	addPageFlags(ordersListCmd)

	ordersReceiptCmd.Flags().StringP("file", "f", "", "Destination file, or - for stdout (default: <order-id>.pdf)")
}
