package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/attendance-service/internal/api/client"
	"github.com/Dhoini/attendance-service/internal/lifecycle"
	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/spf13/cobra"
)

// Version задается при сборке через -ldflags
var Version = "dev"

type options struct {
	url      string
	token    string
	username string
	password string
	poll     time.Duration
	logLevel string
}

var opts options

var rootCmd = &cobra.Command{
	Use:     "subwatch",
	Short:   "Watch the attendance subscription countdown",
	Long:    `subwatch polls the attendance service, shows the time left on the subscription and expires it when the countdown reaches zero.`,
	Version: Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), cmd.OutOrStdout())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current subscription once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.url, "url", envOr("SUBWATCH_URL", "http://localhost:8080"), "attendance service base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("SUBWATCH_TOKEN"), "session token")
	flags.StringVar(&opts.username, "username", os.Getenv("SUBWATCH_USERNAME"), "login used when no token is given")
	flags.StringVar(&opts.password, "password", os.Getenv("SUBWATCH_PASSWORD"), "password for --username")
	flags.DurationVar(&opts.poll, "poll", 3*time.Minute, "how often to re-read the subscription")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newClient(ctx context.Context, log *logger.Logger) (*client.Client, error) {
	c := client.New(opts.url, client.WithToken(opts.token), client.WithLogger(log))
	if opts.token != "" {
		return c, nil
	}
	if opts.username == "" {
		return nil, errors.New("either --token or --username is required")
	}
	if _, err := c.Login(ctx, opts.username, opts.password); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return c, nil
}

func runStatus(ctx context.Context, out io.Writer) error {
	log := logger.New(logger.ParseLevel(opts.logLevel))
	defer log.Sync()

	c, err := newClient(ctx, log)
	if err != nil {
		return err
	}
	sub, err := c.GetSubscription(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	active := lifecycle.HasActiveSubscription(sub, now)
	var remaining lifecycle.Remaining
	if active {
		remaining = lifecycle.Countdown(sub.DateOfExpiration.Sub(now))
	}
	fmt.Fprintln(out, renderState(lifecycle.State{Subscription: sub, Active: active, Remaining: remaining}))
	return nil
}

func runWatch(ctx context.Context, out io.Writer) error {
	log := logger.New(logger.ParseLevel(opts.logLevel))
	defer log.Sync()

	c, err := newClient(ctx, log)
	if err != nil {
		return err
	}

	cfg := lifecycle.DefaultConfig()
	cfg.PollInterval = opts.poll

	ctrl := lifecycle.NewController(c, cfg, log, lifecycle.WithObserver(func(s lifecycle.State) {
		fmt.Fprintf(out, "\r%s\033[K", renderState(s))
	}))

	err = ctrl.Run(ctx)
	fmt.Fprintln(out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func renderState(s lifecycle.State) string {
	var line string
	switch {
	case s.Active:
		label := ""
		if s.Subscription.SubscriptionDuration != nil {
			label = *s.Subscription.SubscriptionDuration + ", "
		}
		line = fmt.Sprintf("Subscription active (%s%s left)", label, s.Remaining)
	case s.Expiring:
		line = "Subscription expired, updating..."
	default:
		line = "No active subscription"
	}
	if s.Err != nil {
		line += fmt.Sprintf(" [error: %v]", s.Err)
	}
	return line
}
