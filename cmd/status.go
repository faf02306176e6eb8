package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystaldolphin/tickerbot/internal/config"
	"github.com/crystaldolphin/tickerbot/internal/persist"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tickerbot status",
	RunE:  runStatus,
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	cfgPath := resolvedConfigPath()

	fmt.Fprintf(out, "%s tickerbot Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	fmt.Fprintf(out, "Config:    %s %s\n", cfgPath, mark(statErr == nil))
	fmt.Fprintf(out, "Data dir:  %s\n", config.DataDir())

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Fprintf(out, "Token:     %s\n", mark(cfg.Telegram.Token != ""))
	fmt.Fprintf(out, "Interval:  %d-%ds\n", cfg.Jobs.MinInterval, cfg.Jobs.MaxInterval)
	fmt.Fprintf(out, "Log:       %s (%s, %s)\n", cfg.Log.Output, cfg.Log.Level, cfg.Log.Format)

	jobsPath := cfg.JobsPath()
	_, jobsErr := os.Stat(jobsPath)
	fmt.Fprintf(out, "Jobs file: %s %s\n", jobsPath, mark(jobsErr == nil))
	if jobsErr == nil {
		records, err := persist.NewStore(jobsPath, nil).Load()
		if err != nil {
			fmt.Fprintf(out, "  (unreadable: %v)\n", err)
		} else {
			fmt.Fprintf(out, "  %d saved job(s)\n", len(records))
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "\nNot ready: %v\n", err)
	}
	return nil
}
