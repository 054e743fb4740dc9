package social

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/nourish/adapter/cli"
	"github.com/felixgeelhaar/nourish/internal/social/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the social command group.
var Cmd = &cobra.Command{
	Use:   "social",
	Short: "Link social accounts and share content",
}

var (
	authState       string
	authRedirectURI string

	connectCode        string
	connectRedirectURI string

	sharePlatforms []string
	shareCaption   string
	shareMediaURL  string
	shareLink      string
)

var authURLCmd = &cobra.Command{
	Use:   "auth-url <provider>",
	Short: "Print the authorization URL for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SocialService == nil {
			return errors.New("social accounts require the backend connection")
		}

		state := authState
		if state == "" {
			state = uuid.NewString()
		}
		url, err := app.SocialService.AuthURL(args[0], state, authRedirectURI)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <provider>",
	Short: "Link an account using an authorization code",
	Long: `Exchange the authorization code returned by the provider for a linked
account.

Examples:
  nourish social connect instagram --code AQBx... --redirect-uri https://app.example.com/callback`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SocialService == nil {
			return errors.New("social accounts require the backend connection")
		}

		account, err := app.SocialService.ConnectAccount(cmd.Context(), args[0], connectCode, connectRedirectURI)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Connected %s account: %s\n", account.Provider, account.AccountName)
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Share content to linked accounts",
	Long: `Post a caption, media URL or link to one or more linked platforms.

Examples:
  nourish social share --platform instagram --platform tiktok --caption "New recipe" --link https://example.com/r/1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SocialService == nil {
			return errors.New("social accounts require the backend connection")
		}

		results, err := app.SocialService.ShareContent(cmd.Context(), domain.ShareRequest{
			Platforms: sharePlatforms,
			Caption:   shareCaption,
			MediaURL:  shareMediaURL,
			Link:      shareLink,
		})
		if err != nil {
			return err
		}

		failed := 0
		for _, result := range results {
			switch {
			case result.Success && result.URL != "":
				fmt.Fprintf(cmd.OutOrStdout(), "%s: shared %s\n", result.Platform, result.URL)
			case result.Success:
				fmt.Fprintf(cmd.OutOrStdout(), "%s: shared\n", result.Platform)
			default:
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %s\n", result.Platform, result.Error)
			}
		}
		if failed > 0 {
			return fmt.Errorf("sharing failed on %d of %d platform(s)", failed, len(results))
		}
		return nil
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SocialService == nil {
			return errors.New("social accounts require the backend connection")
		}

		catalogue := app.SocialService.Providers()
		for _, name := range catalogue.Names() {
			p := catalogue[name]
			state := "not configured"
			if p.Configured() {
				state = "configured"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-12s %s (%s)\n", p.Name, p.DisplayName, state, strings.Join(p.Scopes, ","))
		}
		return nil
	},
}

func init() {
	authURLCmd.Flags().StringVar(&authState, "state", "", "opaque state echoed back by the provider (random when empty)")
	authURLCmd.Flags().StringVar(&authRedirectURI, "redirect-uri", "", "redirect URI registered with the provider")

	connectCmd.Flags().StringVar(&connectCode, "code", "", "authorization code")
	connectCmd.Flags().StringVar(&connectRedirectURI, "redirect-uri", "", "redirect URI used for the authorization")

	shareCmd.Flags().StringSliceVar(&sharePlatforms, "platform", nil, "platform to share to (repeatable)")
	shareCmd.Flags().StringVar(&shareCaption, "caption", "", "post caption")
	shareCmd.Flags().StringVar(&shareMediaURL, "media-url", "", "media URL to attach")
	shareCmd.Flags().StringVar(&shareLink, "link", "", "link to attach")

	Cmd.AddCommand(authURLCmd)
	Cmd.AddCommand(connectCmd)
	Cmd.AddCommand(shareCmd)
	Cmd.AddCommand(providersCmd)
}
