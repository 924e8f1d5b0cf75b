package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourorg/restspec/internal/config"
	"github.com/yourorg/restspec/internal/decl"
	"github.com/yourorg/restspec/internal/endpoint"
	"github.com/yourorg/restspec/internal/logging"
	"github.com/yourorg/restspec/internal/network"
	"github.com/yourorg/restspec/internal/runner"
	"github.com/yourorg/restspec/internal/schema"
	"github.com/yourorg/restspec/internal/store"
	"github.com/yourorg/restspec/pkg/types"
)

const defaultConfigContent = `base_url: "http://localhost:3000"
declarations: "restspec.yaml"

request:
  timeout_seconds: 30
  headers:
    Accept: application/json

journal:
  enabled: false
  path: ""

sanitize:
  headers:
    - Authorization
    - Cookie
    - Set-Cookie
    - X-Api-Key
    - X-Auth-Token
  body_fields:
    - password
    - secret
    - token
    - api_key
    - access_token
    - refresh_token
    - credential
  replacement: "***REDACTED***"

log:
  level: "info"
  format: "text"
`

const exampleDeclarations = `schemas:
  user:
    attributes:
      id: {type: integer, for: [response]}
      name: {string: {min_length: 1}}
      email: email

namespaces:
  users:
    base_path: /users
    schema: user
    endpoints:
      index: {method: GET, expect: {status: 200}}
      create: {method: POST, expect: {status: 201}}
      show:
        path: /:id
        url_params:
          id: {from: users/create, field: id}
        expect: {status: 200}
`

var version = "dev"

type rootFlags struct {
	cfgPath string
	verbose bool
	debug   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "restspec",
		Short:         "Check a REST API against declared schemas and endpoints",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.cfgPath, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "print passing checks too")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log every exchange")

	root.AddCommand(newInitCmd())
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newExampleCmd(flags))
	root.AddCommand(newEndpointsCmd(flags))
	root.AddCommand(newRunsCmd(flags))
	root.AddCommand(newShowCmd(flags))
	root.AddCommand(newDeleteCmd(flags))
	root.AddCommand(newExportCmd(flags))

	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create ~/.restspec with a default config and an example declarations file",
		RunE: func(cmd *cobra.Command, args []string) error {
			baseDir, err := config.DefaultDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := writeIfMissing(out, filepath.Join(baseDir, "config.yaml"), defaultConfigContent); err != nil {
				return err
			}
			if err := writeIfMissing(out, "restspec.yaml", exampleDeclarations); err != nil {
				return err
			}

			dbPath := filepath.Join(baseDir, "journal.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(out, "journal ready", dbPath)
			fmt.Fprintln(out, "set base_url in the config, then run: restspec check")
			return nil
		},
	}
}

func writeIfMissing(out io.Writer, path, content string) error {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
		fmt.Fprintln(out, "created", path)
	case err == nil:
		fmt.Fprintln(out, "exists", path)
	default:
		return err
	}
	return nil
}

// env is everything a command needs after config and declarations are
// loaded.
type env struct {
	cfg          *config.Config
	logger       *slog.Logger
	registry     *endpoint.Registry
	expectations []decl.Expectation
}

// loadEnv loads config and declarations. Extra executor options, such as
// a journal recorder, are passed through.
func loadEnv(flags *rootFlags, opts ...network.Option) (*env, error) {
	cfg, err := config.Load(flags.cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCheck(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg, flags)

	opts = append([]network.Option{network.WithLogger(logger)}, opts...)
	exec := network.FromConfig(cfg, network.NewHTTPTransport(cfg.RequestTimeout()), opts...)
	reg := endpoint.NewRegistry(schema.NewStore(), exec)
	exps, err := decl.NewLoader(reg, logger).LoadFile(cfg.Declarations)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, registry: reg, expectations: exps}, nil
}

func newLogger(cfg *config.Config, flags *rootFlags) *slog.Logger {
	if flags.debug {
		return logging.New(logging.Options{
			Level:  slog.LevelDebug,
			Format: logging.ParseFormat(cfg.Log.Format),
			Output: os.Stderr,
		})
	}
	return logging.FromConfig(cfg.Log, os.Stderr)
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var only string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Execute declared endpoints and check their responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.ValidateCheck(); err != nil {
				return err
			}

			var (
				journal  *store.SQLiteStore
				run      *types.Run
				execOpts []network.Option
			)
			if cfg.Journal.Enabled {
				journal, err = openJournal(cfg)
				if err != nil {
					return err
				}
				defer journal.Close()
				run, err = journal.CreateRun(cfg.BaseURL, cfg.Declarations)
				if err != nil {
					return err
				}
				execOpts = append(execOpts, network.WithRecorder(store.RunRecorder{Store: journal, RunID: run.ID}, cfg.Sanitize))
			}

			// A run that never reaches the runner is closed as failed.
			abort := func(err error) error {
				if run != nil {
					_ = journal.UpdateRunStatus(run.ID, types.RunStatusFailed)
				}
				return err
			}

			e, err := loadEnv(flags, execOpts...)
			if err != nil {
				return abort(err)
			}
			exps, err := selectExpectations(e.expectations, only)
			if err != nil {
				return abort(err)
			}

			runOpts := []runner.Option{runner.WithLogger(e.logger)}
			if run != nil {
				runOpts = append(runOpts, runner.WithJournal(journal, run.ID))
			}
			rep, err := runner.New(e.registry, runOpts...).Run(cmd.Context(), exps)
			if err != nil {
				return abort(err)
			}

			printReport(cmd.OutOrStdout(), rep, flags.verbose)
			if !rep.OK() {
				return fmt.Errorf("%d of %d checks did not pass", rep.Failed+rep.Errored, len(rep.Results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&only, "endpoint", "", "only check this endpoint (namespace/name)")
	return cmd
}

func selectExpectations(exps []decl.Expectation, only string) ([]decl.Expectation, error) {
	if only == "" {
		return exps, nil
	}
	for _, exp := range exps {
		if exp.Endpoint == only {
			return []decl.Expectation{exp}, nil
		}
	}
	return nil, fmt.Errorf("no expectation declared for %q: %w", only, endpoint.ErrUnknownEndpoint)
}

func printReport(out io.Writer, rep *runner.Report, verbose bool) {
	for _, res := range rep.Results {
		switch res.Status {
		case types.CheckPassed:
			if verbose {
				fmt.Fprintf(out, "PASS  %s (%d)\n", res.Endpoint, res.Actual)
			}
		case types.CheckFailed:
			fmt.Fprintf(out, "FAIL  %s (%d)\n", res.Endpoint, res.Actual)
			for _, f := range res.Failures {
				fmt.Fprintf(out, "      %s\n", f)
			}
		default:
			fmt.Fprintf(out, "ERROR %s: %s\n", res.Endpoint, res.ErrorMsg)
		}
	}
	fmt.Fprintf(out, "%d passed, %d failed, %d errors", rep.Passed, rep.Failed, rep.Errored)
	if rep.RunID != "" {
		fmt.Fprintf(out, " (run %s)", rep.RunID)
	}
	fmt.Fprintln(out)
}

func newExampleCmd(flags *rootFlags) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "example [schema]",
		Short: "Print a generated payload for a schema or an endpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (from != "") {
				return errors.New("give either a schema name or --endpoint")
			}
			e, err := loadEnv(flags)
			if err != nil {
				return err
			}

			var payload map[string]any
			if from != "" {
				ep, err := e.registry.LookupEndpoint(from)
				if err != nil {
					return err
				}
				payload, err = ep.Payload(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				s, err := e.registry.Schemas().Lookup(args[0])
				if err != nil {
					return err
				}
				payload, err = s.Example(cmd.Context())
				if err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		},
	}
	cmd.Flags().StringVar(&from, "endpoint", "", "generate the payload of this endpoint (namespace/name)")
	return cmd
}

func newEndpointsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List declared endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(flags)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ENDPOINT\tMETHOD\tPATH\tSCHEMA\tPARAMS")
			for _, ep := range e.registry.Endpoints() {
				var params []string
				for k, p := range ep.RawURLParams() {
					if p.IsLazy() {
						k += "*"
					}
					params = append(params, k)
				}
				slices.Sort(params)
				schemaName := ep.SchemaName()
				if schemaName == "" {
					schemaName = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ep.FullName(), ep.Method, ep.FullPath(), schemaName, strings.Join(params, ","))
			}
			return w.Flush()
		},
	}
}
