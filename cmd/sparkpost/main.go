package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	sparkpost "github.com/sparkmail/sparkmail/sdk/go"
)

var (
	configPath   string
	metricsPath  string
	historyLimit int
	listFilter   sparkpost.ListFilter
	sendFlags    sendOptions
)

var rootCmd = &cobra.Command{
	Use:           "sparkpost",
	Short:         "Send and inspect SparkPost transmissions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transmission",
	Args:  cobra.NoArgs,
	RunE:  runSend,
}

var getCmd = &cobra.Command{
	Use:   "get [transmission-id]",
	Short: "Show a scheduled transmission",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled transmissions",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sends from the local send log",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics-textfile", "", "write client metrics to this file on exit")

	registerSendFlags(sendCmd, &sendFlags)

	listCmd.Flags().StringVar(&listFilter.CampaignID, "campaign", "", "only transmissions of this campaign")
	listCmd.Flags().StringVar(&listFilter.TemplateID, "template", "", "only transmissions using this template")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of records to show")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp builds the app, runs fn and tears it down
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close connections")
		}
	}()

	runErr := fn(a)
	if err := a.writeMetrics(metricsPath); err != nil {
		a.log.Warn().Err(err).Msg("metrics not written")
	}
	return runErr
}

func runSend(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		opts := sendFlags
		opts.applyDefaults(a.cfg.Defaults, cmd.Flags().Changed)

		msg, err := buildMessage(opts)
		if err != nil {
			return err
		}

		resp, err := a.dispatch.Dispatch(cmd.Context(), msg)
		if err != nil {
			return err
		}

		switch r := resp.(type) {
		case *sparkpost.Success:
			return printJSON(cmd.OutOrStdout(), r)
		case *sparkpost.Failure:
			_ = printJSON(cmd.OutOrStdout(), r.Errors)
			return r
		}
		return nil
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		t, err := a.client.Transmission(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), t)
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		list, err := a.client.ListTransmissions(cmd.Context(), listFilter, nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	})
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		records, err := a.dispatch.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), records)
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
