package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/crystaldolphin/tickerbot/internal/container"
	"github.com/crystaldolphin/tickerbot/internal/persist"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the saved ticker jobs",
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsInspectCmd)
	jobsCmd.AddCommand(jobsClearCmd)
}

// ---- list ------------------------------------------------------------------

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, records, err := loadRecords()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No saved jobs.")
			return nil
		}
		fmt.Fprintf(out, "%-10s %-14s %-20s %-10s %-20s\n", "Name", "Chat", "Schedule", "Status", "Next Run")
		fmt.Fprintln(out, strings.Repeat("-", 78))
		for _, r := range records {
			fmt.Fprintf(out, "%-10s %-14d %-20s %-10s %-20s\n",
				truncStr(r.Name, 9), r.ChatID, truncStr(r.State.Trigger.String(), 19), recordStatus(r), nextRun(r))
		}
		return nil
	},
}

// ---- inspect ---------------------------------------------------------------

var jobsInspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Show everything stored for a job and whether it can be restored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, records, err := loadRecords()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		found := false
		for _, r := range records {
			if r.Name != args[0] {
				continue
			}
			found = true
			printRecord(out, r, restorable(c, r))
		}
		if !found {
			fmt.Fprintf(out, "Job %s not found\n", args[0])
		}
		return nil
	},
}

// ---- clear -----------------------------------------------------------------

var jobsClearYes bool

var jobsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved job file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		c, err := container.New(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !jobsClearYes {
			fmt.Fprintf(out, "Refusing to delete %s without --yes\n", c.Store().Path())
			return nil
		}
		if err := c.Store().Clear(); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Removed %s\n", c.Store().Path())
		return nil
	},
}

func init() {
	jobsClearCmd.Flags().BoolVarP(&jobsClearYes, "yes", "y", false, "Confirm deletion")
}

// ---- helpers ---------------------------------------------------------------

func loadRecords() (*container.Container, []persist.Record, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config")
	}
	c, err := container.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	records, err := c.Store().Load()
	if err != nil {
		return nil, nil, err
	}
	return c, records, nil
}

// restorable reports why a record would not come back on the next run.
func restorable(c *container.Container, r persist.Record) error {
	if err := persist.Check(r); err != nil {
		return err
	}
	_, err := c.Refs().Resolve(r.Callback)
	return err
}

func printRecord(out io.Writer, r persist.Record, restoreErr error) {
	fmt.Fprintf(out, "Name:      %s\n", r.Name)
	fmt.Fprintf(out, "Kind:      %s (version %d)\n", r.Kind, r.Version)
	fmt.Fprintf(out, "Callback:  %s\n", r.Callback)
	fmt.Fprintf(out, "Chat:      %d\n", r.ChatID)
	fmt.Fprintf(out, "User:      %d\n", r.UserID)
	fmt.Fprintf(out, "Schedule:  %s\n", r.State.Trigger.String())
	fmt.Fprintf(out, "Status:    %s\n", recordStatus(r))
	fmt.Fprintf(out, "Next run:  %s\n", nextRun(r))
	fmt.Fprintf(out, "Runs:      %d\n", r.State.Runs)
	if r.Data != nil {
		fmt.Fprintf(out, "Data:      %v\n", r.Data)
	}
	if restoreErr != nil {
		fmt.Fprintf(out, "Restore:   ✗ %v\n", restoreErr)
	} else {
		fmt.Fprintln(out, "Restore:   ✓")
	}
}

func recordStatus(r persist.Record) string {
	switch {
	case r.Removed:
		return "removed"
	case !r.Enabled:
		return "disabled"
	}
	return "enabled"
}

func nextRun(r persist.Record) string {
	if r.State.NextRunTime == nil {
		return ""
	}
	return r.State.NextRunTime.Local().Format(time.DateTime)
}

func truncStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
