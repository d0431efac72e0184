package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carryon-app/carryon/internal/client"
	"github.com/carryon-app/carryon/internal/models"
	"github.com/carryon-app/carryon/pkg/output"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Sign in to carryon and manage the stored session",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	Long:  "Authenticate with carryon and store the session for the current profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		password, err := stdinOr(password)
		if err != nil {
			return err
		}
		if err := saveAPIURL(cmd); err != nil {
			return err
		}

		return run(cmd, func(ctx context.Context, e *env) error {
			s, err := e.client.Auth.Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			return e.storeSession(ctx, s)
		})
	},
}

var authOAuthCmd = &cobra.Command{
	Use:   "oauth <provider>",
	Short: "Log in with an OAuth authorization code",
	Long:  "Exchange an authorization code from google or apple for a carryon session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		redirectURI, _ := cmd.Flags().GetString("redirect-uri")
		if err := saveAPIURL(cmd); err != nil {
			return err
		}

		return run(cmd, func(ctx context.Context, e *env) error {
			s, err := e.client.Auth.ExchangeOAuth(ctx, args[0], code, redirectURI)
			if err != nil {
				return fmt.Errorf("oauth login failed: %w", err)
			}
			return e.storeSession(ctx, s)
		})
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			tokens, err := e.session.Load(ctx)
			if err == nil {
				// The local session goes away even if the backend is unreachable.
				if err := e.client.Auth.Logout(ctx, tokens.AccessToken); err != nil {
					output.Warn("Could not revoke session on the server: %v", err)
				}
			}
			if err := e.session.Clear(ctx); err != nil {
				return err
			}
			output.Success("Logged out from profile '%s'", e.profile)
			return nil
		})
	},
}

var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the access token now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, e *env) error {
			tokens, err := e.session.Refresh(ctx)
			if err != nil {
				return err
			}
			if exp, ok := tokens.Expiry(); ok {
				output.Success("Session refreshed, valid until %s", exp.Local().Format(time.RFC1123))
				return nil
			}
			output.Success("Session refreshed")
			return nil
		})
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display the signed-in user",
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

// saveAPIURL stores --api-url on the selected profile before the env is
// built, so the call goes to the new backend.
func saveAPIURL(cmd *cobra.Command) error {
	if !cmd.Flags().Changed("api-url") {
		return nil
	}
	apiURL, _ := cmd.Flags().GetString("api-url")
	profile := profileName(cmd)
	if err := cfg.SaveProfile(profile, apiURL, cfg.Locale(profile)); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (e *env) storeSession(ctx context.Context, s *client.AuthSession) error {
	if err := e.session.Save(ctx, s.Tokens); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if s.User != nil {
		output.Success("Logged in as %s", s.User.Name())
	} else {
		output.Success("Logged in")
	}
	return nil
}

func userTable(u *models.User) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("ID", u.ID)
	t.AddRow("Name", u.Name())
	t.AddRow("Email", u.Email)
	if u.Phone != "" {
		t.AddRow("Phone", u.Phone)
	}
	if u.Locale != "" {
		t.AddRow("Locale", u.Locale)
	}
	if u.Rating > 0 {
		t.AddRow("Rating", fmt.Sprintf("%.1f", u.Rating))
	}
	if u.Bio != "" {
		t.AddRow("Bio", u.Bio)
	}
	return t
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authOAuthCmd, authLogoutCmd, authRefreshCmd, authWhoamiCmd)

	authLoginCmd.Flags().StringP("email", "e", "", "Email address")
	authLoginCmd.Flags().StringP("password", "p", "", "Password, or - to read it from stdin")
	authLoginCmd.Flags().String("api-url", "", "API URL to store on the profile")
	authLoginCmd.MarkFlagRequired("email")
	authLoginCmd.MarkFlagRequired("password")

	authOAuthCmd.Flags().String("code", "", "Authorization code returned by the provider")
	authOAuthCmd.Flags().String("redirect-uri", "", "Redirect URI used to obtain the code")
	authOAuthCmd.Flags().String("api-url", "", "API URL to store on the profile")
	authOAuthCmd.MarkFlagRequired("code")
}
