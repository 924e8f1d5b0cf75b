package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourorg/restspec/internal/config"
	"github.com/yourorg/restspec/internal/har"
	"github.com/yourorg/restspec/internal/store"
)

func openJournal(cfg *config.Config) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.Journal.Path)
}

func journalFromFlags(flags *rootFlags) (*store.SQLiteStore, error) {
	cfg, err := config.Load(flags.cfgPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no journal at %s; enable journal.enabled and run check first", cfg.Journal.Path)
	}
	return openJournal(cfg)
}

func newRunsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List journaled check runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := journalFromFlags(flags)
			if err != nil {
				return err
			}
			defer s.Close()
			runs, err := s.ListRuns()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tEXCHANGES\tBASE URL\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Status, r.ExchangeCount, r.BaseURL, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	var runID string
	var exchanges bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the results of a journaled run",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := journalFromFlags(flags)
			if err != nil {
				return err
			}
			defer s.Close()
			run, err := s.GetRun(runID)
			if err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s  %s  %s  (%s)\n", run.ID, run.Status, run.BaseURL, run.Declarations)

			results, err := s.GetResults(run.ID)
			if err != nil {
				return err
			}
			for _, res := range results {
				fmt.Fprintf(out, "  %-6s %s  expected %d, got %d\n", res.Status, res.Endpoint, res.Expected, res.Actual)
				for _, f := range res.Failures {
					fmt.Fprintf(out, "         %s\n", f)
				}
				if res.ErrorMsg != "" {
					fmt.Fprintf(out, "         %s\n", res.ErrorMsg)
				}
			}

			if !exchanges {
				return nil
			}
			exs, err := s.GetExchanges(run.ID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEQ\tENDPOINT\tMETHOD\tURL\tSTATUS\tLATENCY")
			for _, ex := range exs {
				status := fmt.Sprint(ex.StatusCode)
				if ex.Error != "" {
					status = ex.Error
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%dms\n", ex.Seq, ex.Endpoint, ex.Method, ex.URL, status, ex.LatencyMs)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	cmd.Flags().BoolVar(&exchanges, "exchanges", false, "also list journaled exchanges")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a journaled run",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := journalFromFlags(flags)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.GetRun(runID); err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			if err := s.DeleteRun(runID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", runID)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}

func newExportCmd(flags *rootFlags) *cobra.Command {
	var runID, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the exchanges of a journaled run as a HAR file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := journalFromFlags(flags)
			if err != nil {
				return err
			}
			defer s.Close()
			run, err := s.GetRun(runID)
			if err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			exs, err := s.GetExchanges(run.ID)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = run.ID + ".har"
			}
			if err := har.Write(outPath, har.Build(run, exs, version)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d exchanges to %s\n", len(exs), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run id>.har)")
	_ = cmd.MarkFlagRequired("run")
	return cmd
}
