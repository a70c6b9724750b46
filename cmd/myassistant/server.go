package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/myassistant/internal/api"
	"github.com/kalambet/myassistant/internal/config"
	"github.com/kalambet/myassistant/internal/google"
	"github.com/kalambet/myassistant/internal/googleauth"
	"github.com/kalambet/myassistant/internal/proxy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Google OAuth, Gmail and Calendar proxy (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		return runServer(host)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show proxy, account and model status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return showStatus(cmd.Context(), a)
		})
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "interface to listen on")
}

func newProxyHandler(cfg config.Config) (http.Handler, bool) {
	auth := googleauth.NewService(googleauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURI,
		AuthURL:      cfg.Google.AuthURL,
		TokenURL:     cfg.Google.TokenURL,
		UserInfoURL:  cfg.Google.UserInfoURL,
	})
	return api.NewProxyHandler(api.ProxyDeps{
		Google: google.NewClientWithBaseURL(cfg.Google.APIBaseURL),
		Auth:   auth,
	}), auth.Configured()
}

func runServer(host string) error {
	fmt.Fprintf(os.Stderr, "myassistant version %s\n", version)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		printWarning("myassistant is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, configured := newProxyHandler(cfg)
	if !configured {
		printWarning("Google OAuth client is not configured; /api/auth routes will fail. " +
			"Set google.client_id and MYASSISTANT_GOOGLE_CLIENT_SECRET.")
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "myassistant listening on %s (public URL %s)\n", addr, cfg.Server.PublicURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func showStatus(ctx context.Context, a *app) error {
	client := &http.Client{Timeout: 2 * time.Second}
	printStatus("Server", "%s", serverState(client, a.cfg.Client.ServerURL))

	state := a.tokens.State()
	if auth := a.store.GoogleAuth(); auth != nil {
		printStatus("Google", "%s (%s)", accountLabel(auth.User.Email, auth.User.Name), state)
	} else {
		printStatus("Google", "signed out")
	}

	if key := a.cfg.Proxy.OpenRouterAPIKey; key != "" {
		modelsCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		models, err := proxy.NewClient(key).ListModels(modelsCtx)
		if err != nil {
			printStatus("OpenRouter", "error: %v", err)
		} else {
			printStatus("OpenRouter", "%d models available, using %s", len(models), a.cfg.Proxy.DefaultModel)
		}
	} else {
		printStatus("OpenRouter", "not configured (offline replies)")
	}

	if saved := a.store.LastSaved(); !saved.IsZero() {
		printStatus("Last saved", "%s", saved.Local().Format("Jan 2 15:04:05"))
	}
	printStatus("Data dir", "%s", a.cfg.Storage.DataDir)
	return nil
}

func serverState(client *http.Client, serverURL string) string {
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return "unreachable at " + serverURL
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("error (HTTP %d)", resp.StatusCode)
	}
	return "running at " + serverURL
}

func accountLabel(email, name string) string {
	switch {
	case email != "" && name != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case email != "":
		return email
	case name != "":
		return name
	}
	return "signed in"
}
