package main

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/myassistant/internal/domain"
	"github.com/kalambet/myassistant/internal/googleauth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in to Google through the proxy",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open the Google consent page",
	Long: `Open the Google consent page served by the proxy.

After consenting, the browser lands on the proxy's start page, which shows
the command to finish signing in:

  myassistant auth import <credential>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loginURL := strings.TrimRight(cfg.Client.ServerURL, "/") + "/api/auth/login"

		printStep("Opening %s", loginURL)
		if noBrowser, _ := cmd.Flags().GetBool("no-browser"); noBrowser || openBrowser(loginURL) != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser:\n  %s\n", loginURL)
		}
		return nil
	},
}

var authImportCmd = &cobra.Command{
	Use:   "import <credential|redirect-url>",
	Short: "Store the credential shown after signing in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			auth, err := importCredential(a, args[0])
			if err != nil {
				return err
			}
			printSuccess("Signed in as %s", accountLabel(auth.User.Email, auth.User.Name))
			return nil
		})
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored Google credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			auth := a.store.GoogleAuth()
			if auth == nil {
				printStatus("Google", "signed out")
				return nil
			}
			printStatus("Account", "%s", accountLabel(auth.User.Email, auth.User.Name))
			printStatus("Token", "%s", a.tokens.State())
			if auth.ExpiresAt > 0 {
				printStatus("Expires", "%s", time.UnixMilli(auth.ExpiresAt).Local().Format("Jan 2 15:04"))
			}
			printStatus("Refreshable", "%t", auth.RefreshToken != "")
			return nil
		})
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored Google credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.store.Logout(); err != nil {
				return err
			}
			printSuccess("Signed out")
			return nil
		})
	},
}

func init() {
	authLoginCmd.Flags().Bool("no-browser", false, "print the URL instead of opening a browser")
	authCmd.AddCommand(authLoginCmd, authImportCmd, authStatusCmd, authLogoutCmd)
}

// importCredential accepts the bare credential or the whole redirect URL the
// proxy sent the browser to.
func importCredential(a *app, raw string) (domain.GoogleAuth, error) {
	blob := strings.TrimSpace(raw)
	if strings.Contains(blob, "auth_success=") || strings.Contains(blob, "auth_error=") {
		u, err := url.Parse(blob)
		if err != nil {
			return domain.GoogleAuth{}, fmt.Errorf("parsing redirect URL: %w", err)
		}
		q := u.Query()
		if e := q.Get("auth_error"); e != "" {
			return domain.GoogleAuth{}, fmt.Errorf("sign-in failed: %s", e)
		}
		blob = q.Get("auth_success")
	}
	if blob == "" {
		return domain.GoogleAuth{}, errors.New("empty credential")
	}

	auth, err := googleauth.DecodeAuth(blob)
	if err != nil {
		return domain.GoogleAuth{}, fmt.Errorf("decoding credential: %w", err)
	}
	if err := a.store.Login(auth); err != nil {
		return domain.GoogleAuth{}, fmt.Errorf("saving credential: %w", err)
	}
	return auth, nil
}

func openBrowser(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	return cmd.Start()
}
