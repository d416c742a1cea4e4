package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"moviecat/internal/backend/firestore"
	"moviecat/internal/catalog"
	"moviecat/internal/config"
	"moviecat/internal/exitcode"
)

const (
	callbackTimeout = 5 * time.Minute
	exchangeTimeout = 30 * time.Second

	// Callback ports tried in order, starting at callbackPort.
	callbackPort     = 8085
	callbackAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authenticate with Google for Firestore" }
func (c *LoginCmd) Usage() string     { return "moviecat login [common flags]" }
func (c *LoginCmd) NeedsStore() bool  { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc *catalog.Service, args []string, out, errOut io.Writer) int {
	if !cfg.NeedsOAuth() {
		if !cfg.Quiet {
			fmt.Fprintf(out, "login not needed for the %s backend\n", describeBackend(cfg))
		}
		return exitcode.Success
	}

	if !cfg.HasOAuthClient() {
		printCredentialSetup(errOut, cfg.Dir)
		return exitcode.AuthError
	}

	if cfg.HasToken() && firestore.CheckToken(ctx, cfg) == nil {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	oc, err := firestore.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	tok, err := authorize(ctx, oc, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := firestore.SaveToken(cfg.TokenPath(), tok); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// authorize runs the installed-app flow: the user opens the printed URL and
// Google redirects to a local callback carrying the code.
func authorize(ctx context.Context, oc *oauth2.Config, errOut io.Writer) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New("cancelled")
	}

	cb, err := listenCallback()
	if err != nil {
		return nil, err
	}
	defer cb.close()

	oc.RedirectURL = cb.redirectURL()
	verifier := oauth2.GenerateVerifier()
	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, oc.AuthCodeURL(cb.state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))

	code, err := cb.wait(ctx)
	if err != nil {
		return nil, err
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	tok, err := oc.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return tok, nil
}

// callback is the local redirect target of the OAuth flow.
type callback struct {
	listener net.Listener
	server   *http.Server
	state    string
	result   chan callbackResult
}

type callbackResult struct {
	code string
	err  error
}

func listenCallback() (*callback, error) {
	var ln net.Listener
	var err error
	for port := callbackPort; port < callbackPort+callbackAttempts; port++ {
		ln, err = net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			break
		}
	}
	if ln == nil {
		return nil, errors.New("could not bind to local port for OAuth callback")
	}

	cb := &callback{
		listener: ln,
		state:    uuid.NewString(),
		result:   make(chan callbackResult, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", cb.handle)
	cb.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := cb.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cb.deliver(callbackResult{err: err})
		}
	}()
	return cb, nil
}

func (cb *callback) redirectURL() string {
	return fmt.Sprintf("http://localhost:%d/callback", cb.listener.Addr().(*net.TCPAddr).Port)
}

func (cb *callback) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("state") != cb.state:
		http.Error(w, "state mismatch", http.StatusBadRequest)
		cb.deliver(callbackResult{err: errors.New("oauth state mismatch")})
	case q.Get("error") != "":
		http.Error(w, "authorization denied", http.StatusForbidden)
		cb.deliver(callbackResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
	case q.Get("code") == "":
		http.Error(w, "no code in callback", http.StatusBadRequest)
		cb.deliver(callbackResult{err: errors.New("no code in callback")})
	default:
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>moviecat is authorized</h1><p>You may close this window.</p></body></html>")
		cb.deliver(callbackResult{code: q.Get("code")})
	}
}

// deliver keeps the first result only.
func (cb *callback) deliver(res callbackResult) {
	select {
	case cb.result <- res:
	default:
	}
}

func (cb *callback) wait(ctx context.Context) (string, error) {
	timer := time.NewTimer(callbackTimeout)
	defer timer.Stop()

	select {
	case res := <-cb.result:
		return res.code, res.err
	case <-timer.C:
		return "", errors.New("oauth callback timed out")
	case <-ctx.Done():
		return "", errors.New("cancelled")
	}
}

func (cb *callback) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = cb.server.Shutdown(ctx)
	_ = cb.listener.Close()
}

func printCredentialSetup(w io.Writer, dir string) {
	fmt.Fprintf(w, "error: %s not found in %s\n\n", config.OAuthClientFile, dir)
	fmt.Fprintf(w, `moviecat talks to Cloud Firestore with your Google account. To set it up:

1. Open https://console.cloud.google.com/apis/credentials and pick the
   project that holds the movie collection.
2. Make sure the Cloud Firestore API is enabled:
   https://console.cloud.google.com/apis/library/firestore.googleapis.com
3. Create Credentials > OAuth client ID > Desktop app, then download the JSON.
4. Save it as %s

Then run 'moviecat login' again.
`, filepath.Join(dir, config.OAuthClientFile))
}

func describeBackend(cfg *config.Config) string {
	if cfg.Backend == config.BackendFirestore {
		return "firestore emulator"
	}
	return cfg.Backend
}
