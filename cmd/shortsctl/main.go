// Command shortsctl submits and tracks ShortForge video jobs from the terminal.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultAPIURL = "http://localhost:8080"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the command tree. Flags fall back to SHORTFORGE_* environment
// variables through viper.
func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SHORTFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "shortsctl",
		Short:         "Create and track short-form video jobs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("api-url", defaultAPIURL, "ShortForge API base URL (SHORTFORGE_API_URL)")
	root.PersistentFlags().String("admin-key", "", "admin API key for protected routes (SHORTFORGE_ADMIN_KEY)")
	_ = v.BindPFlag("api-url", root.PersistentFlags().Lookup("api-url"))
	_ = v.BindPFlag("admin-key", root.PersistentFlags().Lookup("admin-key"))

	newAPI := func() *client {
		return newClient(v.GetString("api-url"), v.GetString("admin-key"))
	}

	root.AddCommand(
		newCreateCommand(newAPI),
		newStatusCommand(newAPI),
		newWaitCommand(newAPI),
		newCapabilitiesCommand(newAPI),
	)
	return root
}

func newCreateCommand(newAPI func() *client) *cobra.Command {
	var (
		topic    string
		duration int
		mode     string
		wait     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new video job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api := newAPI()
			created, err := api.createJob(cmd.Context(), topic, duration, mode)
			if err != nil {
				return err
			}
			if !wait {
				return printJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "job %s submitted (%s)\n", created.JobID, created.Mode)
			return waitAndPrint(cmd, api, created.JobID, interval)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "video topic")
	cmd.Flags().IntVar(&duration, "duration", 0, "target duration in seconds (server default when 0)")
	cmd.Flags().StringVar(&mode, "mode", "", "job mode: draft or final (server default when empty)")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the job finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval with --wait")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newStatusCommand(newAPI func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show a job's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, raw, err := newAPI().status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), raw)
		},
	}
}

func newWaitCommand(newAPI func() *client) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "wait JOB_ID",
		Short: "Poll a job until it completes or fails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return waitAndPrint(cmd, newAPI(), args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval")
	return cmd
}

func newCapabilitiesCommand(newAPI func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Report which capability services are configured and reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newAPI().capabilities(cmd.Context())
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), raw)
		},
	}
}

func waitAndPrint(cmd *cobra.Command, api *client, id string, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	final, raw, err := api.wait(cmd.Context(), id, interval, func(s jobStatus) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", s.Status, s.Progress)
	})
	if err != nil {
		return err
	}
	if err := printRaw(cmd.OutOrStdout(), raw); err != nil {
		return err
	}
	if final.Status == "error" {
		msg := "unknown error"
		if final.Error != nil {
			msg = *final.Error
		}
		return fmt.Errorf("job %s failed: %s", id, msg)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRaw(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
