package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mallfront/storefront/client/internal/console"
	"github.com/mallfront/storefront/client/internal/shop"
	"github.com/mallfront/storefront/pkg/health"
	"github.com/mallfront/storefront/pkg/request"
	"github.com/mallfront/storefront/pkg/session"
)

var errUnhealthy = errors.New("one or more services are unhealthy")

func newHealthCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe every configured service once",
		Long:  "Probes every service in health.services concurrently and prints a table.\nExits with status 1 if any service is unhealthy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Health probes are public and their failures silent, so no
			// session or console is involved.
			p, err := buildPipeline(a.cfg, session.NewMemory(session.Session{}), nil, nil)
			if err != nil {
				return err
			}
			agg, closers := buildAggregator(a.cfg, p)
			defer closeAll(closers)

			snap := agg.CheckAll(cmd.Context())
			renderSnapshot(cmd.OutOrStdout(), snap)
			if snap.Overall() == health.StatusUnhealthy {
				return exitWith(1, errUnhealthy)
			}
			return nil
		},
	}
}

// renderSnapshot prints one row per service in name order, then the overall
// state.
func renderSnapshot(w io.Writer, snap health.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tSTATUS\tLATENCY\tERROR")
	for _, name := range snap.Names() {
		h := snap.Services[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, h.Status, h.Latency.Round(time.Millisecond), h.Error)
	}
	tw.Flush() //nolint:errcheck
	fmt.Fprintf(w, "overall: %s\n", snap.Overall())
}

func newCallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> <path> [json-body]",
		Short: "Send one request through the authenticated pipeline",
		Example: "  storefront call GET /carts\n" +
			"  storefront call GET '/search/list?key=tea&pageNo=1'\n" +
			`  storefront call POST /carts '{"itemId":317578,"name":"Tea"}'`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if len(args) == 3 {
				if !json.Valid([]byte(args[2])) {
					return fmt.Errorf("body is not valid JSON")
				}
				body = json.RawMessage(args[2])
			}

			sessions, err := openSessions(a.cfg)
			if err != nil {
				return err
			}
			con := console.New(cmd.ErrOrStderr(), a.debug)
			p, err := buildPipeline(a.cfg, sessions, con, con)
			if err != nil {
				return err
			}

			method := strings.ToUpper(args[0])
			con.Loading(method + " " + args[1])
			env, err := send(cmd, p, method, args[1], body)
			if err != nil {
				// The console has already told the user unless the failure
				// was silent (health paths).
				if _, redirected := con.LastRedirect(); !redirected && con.Errors() == 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				}
				return exitWith(1, err)
			}
			return printEnvelope(cmd.OutOrStdout(), env)
		},
	}
}

func send(cmd *cobra.Command, p *request.Pipeline, method, path string, body any) (*request.Envelope, error) {
	ctx := cmd.Context()
	switch method {
	case "GET":
		if body != nil {
			return nil, fmt.Errorf("GET does not take a body")
		}
		return p.Get(ctx, path, nil)
	case "POST":
		return p.Post(ctx, path, body)
	case "PUT":
		return p.Put(ctx, path, body)
	case "DELETE":
		return p.Delete(ctx, path, body)
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}
}

// printEnvelope prints the data payload indented, or the raw body when the
// response carried no data.
func printEnvelope(w io.Writer, env *request.Envelope) error {
	if env == nil {
		return nil
	}
	if len(env.Data) == 0 {
		if len(env.Raw) > 0 {
			fmt.Fprintln(w, strings.TrimSpace(string(env.Raw)))
		}
		return nil
	}
	var v any
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}

func newLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <username> <password>",
		Short: "Sign in and store the session token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := openSessions(a.cfg)
			if err != nil {
				return err
			}
			con := console.New(cmd.ErrOrStderr(), false)
			p, err := buildPipeline(a.cfg, sessions, con, con)
			if err != nil {
				return err
			}

			res, err := shop.New(p).Login(cmd.Context(), shop.Credentials{Username: args[0], Password: args[1]})
			if err != nil {
				if errors.Is(err, shop.ErrValidation) {
					return err
				}
				return exitWith(1, err)
			}
			if res.Token == "" {
				return fmt.Errorf("login succeeded but no token was returned")
			}

			identity := res.Username
			if identity == "" {
				identity = args[0]
			}
			if err := sessions.Set(session.Session{Token: res.Token, Identity: identity}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", identity)
			return nil
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := openSessions(a.cfg)
			if err != nil {
				return err
			}
			if err := sessions.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			if a.cfg.Session.Token() != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "note: %s is still set and will keep supplying a token\n", a.cfg.Session.TokenEnv)
			}
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := openSessions(a.cfg)
			if err != nil {
				return err
			}
			cur := sessions.Current()
			out := cmd.OutOrStdout()
			if cur.Token == "" {
				fmt.Fprintln(out, "not logged in")
				return exitWith(1, nil)
			}

			describeSession(out, cur, time.Now())
			if !remote {
				return nil
			}

			con := console.New(cmd.ErrOrStderr(), false)
			p, err := buildPipeline(a.cfg, sessions, con, con)
			if err != nil {
				return err
			}
			u, err := shop.New(p).CurrentUser(cmd.Context())
			if err != nil {
				return exitWith(1, err)
			}
			fmt.Fprintf(out, "account:  %s (id %d, balance %s)\n", u.Username, u.ID, u.Balance)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "also fetch the account from the backend")
	return cmd
}

// describeSession prints what can be learned from the token locally.
func describeSession(w io.Writer, s session.Session, now time.Time) {
	identity := s.ResolvedIdentity()
	if identity == "" {
		identity = "(unknown)"
	}
	fmt.Fprintf(w, "identity: %s\n", identity)

	info, err := session.Inspect(s.Token)
	switch {
	case err != nil:
		fmt.Fprintln(w, "token:    opaque")
	case info.ExpiresAt.IsZero():
		fmt.Fprintln(w, "expires:  never")
	case info.Expired(now):
		fmt.Fprintf(w, "expires:  %s (expired)\n", info.ExpiresAt.UTC().Format(time.RFC3339))
	default:
		fmt.Fprintf(w, "expires:  %s (in %s)\n", info.ExpiresAt.UTC().Format(time.RFC3339), info.ExpiresAt.Sub(now).Round(time.Second))
	}
}
