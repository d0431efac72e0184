package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/pkg/output"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Notification commands",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		size, _ := cmd.Flags().GetInt("page-size")

		return run(cmd, func(ctx context.Context, e *env) error {
			list, err := e.client.Notifications.List(ctx, page, size)
			if err != nil {
				return fmt.Errorf("failed to list notifications: %w", err)
			}
			return output.Render(e.format, list, func() *output.Table {
				t := output.NewTable("ID", "", "KIND", "TITLE", "DATE")
				unread := 0
				for _, n := range list.Items {
					marker := ""
					if !n.Read {
						marker = "*"
						unread++
					}
					t.AddRow(n.ID, marker, n.Kind, n.Title, n.CreatedAt.Local().Format(timeLayout))
				}
				output.Info("Notifications (%d of %d, %d unread):", t.Len(), list.Total, unread)
				return t
			})
		})
	},
}

var notificationsUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Print the number of unread notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			n, err := e.client.Notifications.UnreadCount(ctx)
			if err != nil {
				return err
			}
			return output.Render(e.format, map[string]int{"unread": n}, func() *output.Table {
				t := output.NewTable("UNREAD")
				t.AddRow(strconv.Itoa(n))
				return t
			})
		})
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [notification-id...]",
	Short: "Mark notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("give notification IDs or --all")
		}

		return run(cmd, func(ctx context.Context, e *env) error {
			if all {
				if err := e.client.Notifications.MarkAllRead(ctx); err != nil {
					return err
				}
				output.Success("All notifications marked as read")
				return nil
			}
			if err := e.client.Notifications.MarkRead(ctx, args...); err != nil {
				return err
			}
			output.Success("%d notification(s) marked as read", len(args))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsUnreadCmd, notificationsReadCmd)

	addPageFlags(notificationsListCmd)
	notificationsReadCmd.Flags().Bool("all", false, "Mark every notification as read")
}
