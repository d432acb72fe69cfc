package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loopwork-ai/infinity-mcp/internal"
	"github.com/loopwork-ai/infinity-mcp/internal/config"
	"github.com/loopwork-ai/infinity-mcp/internal/logging"
	"github.com/loopwork-ai/infinity-mcp/mcp"
	"github.com/loopwork-ai/infinity-mcp/sqlapi"
)

const serverName = "sql-query-server"

var rootCmd = &cobra.Command{
	Use:   "infinity-mcp",
	Short: "An MCP server for the SQL query API",
	Long: `infinity-mcp is a CLI tool that provides an MCP stdio transport for a SQL query API.
It processes JSON-RPC requests from stdin, calls the API to run queries,
list databases and describe tables, and writes JSON-RPC responses to stdout.

The API base URL is read from the SQL_API_URL environment variable
(default http://localhost:7000) unless --api-url is given.
The session ends at end of input or on an empty line.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		logger = logger.With("session", uuid.NewString())

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			gateway, err := newGateway(ctx, cfg, logger)
			if err != nil {
				return err
			}
			logger.Info("connecting to SQL API", "url", gateway.BaseURL())

			server, err := mcp.NewServer(
				mcp.WithGateway(gateway),
				mcp.WithLogger(logger),
				mcp.WithServerInfo(serverName, version),
			)
			if err != nil {
				return fmt.Errorf("error creating server: %w", err)
			}

			transport := mcp.NewStdioTransport(os.Stdin, os.Stdout, logger)
			return transport.Run(ctx, server)
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the SQL API declares the endpoints used by the tools",
	Long: `check downloads the OpenAPI document published by the SQL API and reports
whether it declares the query, database listing and table schema endpoints.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		gateway, err := newGateway(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}

		report, err := gateway.CheckEndpoints(cmd.Context(), specPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s (%s)\n", report.Title, report.Version, gateway.BaseURL())
		for _, endpoint := range report.Found {
			fmt.Fprintf(out, "  ok       %s\n", endpoint)
		}
		for _, endpoint := range report.Missing {
			fmt.Fprintf(out, "  missing  %s\n", endpoint)
		}
		if !report.OK() {
			return fmt.Errorf("%d endpoint(s) missing", len(report.Missing))
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Print the effective configuration",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := cfg.Redacted().Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var (
	configPath string
	apiURL     string
	auth       string
	verbose    bool
	retries    int
	timeout    time.Duration
	rps        int
	logFormat  string
	specPath   string

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON configuration file")
	flags.StringVar(&apiURL, "api-url", "", "Base URL of the SQL API (overrides "+config.EnvAPIURL+")")
	flags.StringVar(&auth, "auth", "", "Authorization header value (e.g. 'Bearer token123' or an op:// reference)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
	flags.IntVar(&retries, "retries", 3, "Maximum number of retries for failed requests")
	flags.DurationVar(&timeout, "timeout", 60*time.Second, "HTTP request timeout (0 for none)")
	flags.IntVarP(&rps, "rps", "r", 0, "Maximum requests per second (0 for no limit)")
	flags.StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	checkCmd.Flags().StringVar(&specPath, "spec-path", sqlapi.DefaultSpecPath, "Path or URL of the API's OpenAPI document")

	rootCmd.AddCommand(checkCmd, configCmd)
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date)
}

// loadConfig layers the config file, environment and explicitly set flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = apiURL
	}
	if flags.Changed("auth") {
		cfg.Auth = auth
	}
	if flags.Changed("retries") {
		cfg.Retries = retries
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("rps") {
		cfg.RPS = rps
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sqlapi.Client, error) {
	authHeader, err := internal.ResolveSecret(ctx, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("error resolving auth: %w", err)
	}

	return sqlapi.NewClient(cfg.APIURL,
		sqlapi.WithHTTPClient(newHTTPClient(cfg, authHeader, logger)),
		sqlapi.WithLogger(logger),
	)
}

func newHTTPClient(cfg *config.Config, authHeader string, logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = nil
	if logger != nil {
		retryClient.Logger = logger
	}
	retryClient.CheckRetry = internal.RetryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if cfg.RPS > 0 {
		limit := cfg.RPS
		retryClient.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
			// Ensure we wait at least 1/rps between requests
			minWait := time.Second / time.Duration(limit)
			if min < minWait {
				min = minWait
			}
			return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
		}
	}

	headers := http.Header{}
	headers.Set("User-Agent", "infinity-mcp/"+version)
	if authHeader != "" {
		headers.Set("Authorization", authHeader)
	}

	client := retryClient.StandardClient()
	client.Transport = &internal.HeaderTransport{
		Base:    client.Transport,
		Headers: headers,
	}
	return client
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
