package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/KMINALI2005/School-management-system/internal/infrastructure/logger"
)

// DriveAuth walks an operator through the Google consent screen once and
// prints the refresh token needed by a gdrive upload target.
type DriveAuth struct {
	config *oauth2.Config
	logger *logger.Logger
	state  string
	server *http.Server
}

func NewDriveAuth(log *logger.Logger, clientSecretPath, state string) (*DriveAuth, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if clientSecretPath == "" {
		return nil, errors.New("client secret path cannot be empty")
	}

	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}

	return &DriveAuth{config: cfg, logger: log, state: state}, nil
}

func (d *DriveAuth) Config() *oauth2.Config {
	return d.config
}

// Handler serves the consent redirect and the OAuth callback.
func (d *DriveAuth) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/google/drive", func(w http.ResponseWriter, r *http.Request) {
		authURL := d.config.AuthCodeURL(d.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != d.state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code parameter", http.StatusBadRequest)
			return
		}

		token, err := d.config.Exchange(r.Context(), code)
		if err != nil {
			d.logger.Errorf("Drive token exchange failed: %v", err)
			http.Error(w, fmt.Sprintf("token exchange failed: %v", err), http.StatusInternalServerError)
			return
		}

		if token.RefreshToken == "" {
			fmt.Fprintln(w, "⚠️ No refresh token returned. Revoke app access & re-authorize.")
			return
		}

		tokenJSON, err := json.MarshalIndent(token, "", "  ")
		if err != nil {
			http.Error(w, "failed to marshal token", http.StatusInternalServerError)
			return
		}

		d.logger.Infof("Drive refresh token issued")
		fmt.Fprintf(w, "✅ Refresh Token:\n%s\n\nFull Token JSON:\n%s", token.RefreshToken, tokenJSON)
	})

	return mux
}

// Serve listens on addr until ctx is done, then shuts the server down.
func (d *DriveAuth) Serve(ctx context.Context, addr string) error {
	d.server = &http.Server{
		Addr:              addr,
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.logger.Infof("Google Drive OAuth server listening on %s, open /auth/google/drive", addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("OAuth server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown OAuth server: %w", err)
	}
	d.logger.Infof("OAuth server stopped")
	return nil
}
