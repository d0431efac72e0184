package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/internal/client"
	"github.com/carryon-app/carryon/pkg/output"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile commands",
	Long:  "View and edit your carryon profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			user, err := e.client.Profile.Get(ctx)
			if err != nil {
				return err
			}
			return output.Render(e.format, user, func() *output.Table {
				return userTable(user)
			})
		})
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update your profile",
	Long:  "Change profile fields. Fields whose flags are not given stay as they are.",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var in client.ProfileInput
		in.FirstName, _ = flags.GetString("first-name")
		in.LastName, _ = flags.GetString("last-name")
		in.Phone, _ = flags.GetString("phone")
		in.Bio, _ = flags.GetString("bio")
		in.Locale, _ = flags.GetString("locale")
		if in == (client.ProfileInput{}) {
			return fmt.Errorf("nothing to update")
		}

		return run(cmd, func(ctx context.Context, e *env) error {
			user, err := e.client.Profile.Update(ctx, in)
			if err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			output.Success("Profile updated")
			return output.Render(e.format, user, func() *output.Table {
				return userTable(user)
			})
		})
	},
}

var profileAvatarCmd = &cobra.Command{
	Use:   "avatar <file>",
	Short: "Upload a new avatar image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return run(cmd, func(ctx context.Context, e *env) error {
			user, err := e.client.Profile.UploadAvatar(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return fmt.Errorf("failed to upload avatar: %w", err)
			}
			output.Success("Avatar uploaded: %s", user.AvatarURL)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileShowCmd, profileUpdateCmd, profileAvatarCmd)

	profileUpdateCmd.Flags().String("first-name", "", "First name")
	profileUpdateCmd.Flags().String("last-name", "", "Last name")
	profileUpdateCmd.Flags().String("phone", "", "Phone number in E.164 format")
	profileUpdateCmd.Flags().String("bio", "", "Short bio")
	profileUpdateCmd.Flags().String("locale", "", "Preferred locale, e.g. en or pt-BR")
}
