package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"campus-feedback/cmd/identityctl/client"
	"campus-feedback/internal/core/logger"
)

type globalOpts struct {
	addr    string
	token   string
	timeout time.Duration
	output  string
	verbose bool
}

var errMissingToken = errors.New("admin token required (--token or IDENTITYCTL_TOKEN)")

func newRootCmd() *cobra.Command {
	g := &globalOpts{}
	root := &cobra.Command{
		Use:   "identityctl",
		Short: "Operate the identity admission queue through the admin API",
		Example: `  # 替用户提交 commitment
  identityctl submit --user 4f0c... --commitment 0x1234

  # 立即准入全部 pending 用户
  identityctl force-batch

  # 查看队列
  identityctl pending -o json`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.addr, "addr", envOr("IDENTITYCTL_ADDR", "http://127.0.0.1:8081"), "admin API base URL")
	pf.StringVar(&g.token, "token", os.Getenv("IDENTITYCTL_TOKEN"), "admin JWT")
	pf.DurationVar(&g.timeout, "timeout", 10*time.Second, "request timeout")
	pf.StringVarP(&g.output, "output", "o", "table", "output format: table, json")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log HTTP exchanges")

	root.AddCommand(
		newSubmitCmd(g),
		newForceBatchCmd(g),
		newPendingCmd(g),
		newStatsCmd(g),
	)
	return root
}

func (g *globalOpts) client() (*client.Client, func(), error) {
	if g.token == "" {
		return nil, nil, errMissingToken
	}
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	l, cleanup := logger.NewStderr(level)
	return client.New(client.Options{Addr: g.addr, Token: g.token, Timeout: g.timeout, Retries: 2, Log: l}), cleanup, nil
}

func (g *globalOpts) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), g.timeout)
}

func newSubmitCmd(g *globalOpts) *cobra.Command {
	var userID, commitment string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record an identity commitment for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := g.client()
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, cancel := g.ctx(cmd)
			defer cancel()

			res, err := c.Submit(ctx, userID, commitment)
			if err != nil {
				return err
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s (pending: %d)\n", res.Commitment, res.PendingCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&commitment, "commitment", "", "identity commitment")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("commitment")
	return cmd
}

func newForceBatchCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "force-batch",
		Short: "Admit every pending user now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := g.client()
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, cancel := g.ctx(cmd)
			defer cancel()

			res, err := c.ForceBatch(ctx)
			if err != nil {
				return err
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (count: %d)\n", res.Message, res.Count)
			return nil
		},
	}
}

func newPendingCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List users waiting for admission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := g.client()
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, cancel := g.ctx(cmd)
			defer cancel()

			list, err := c.Pending(ctx)
			if err != nil {
				return err
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), list)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tCOMMITMENT\tUPDATED")
			for _, u := range list.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Commitment, u.UpdatedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(w, "\ntotal: %d\n", list.Total)
			return w.Flush()
		},
	}
}

func newStatsCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show identity status counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := g.client()
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, cancel := g.ctx(cmd)
			defer cancel()

			st, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			if g.output == "json" {
				return printJSON(cmd.OutOrStdout(), st)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "PENDING\t%d\n", st.Pending)
			fmt.Fprintf(w, "ADMITTED\t%d\n", st.Admitted)
			fmt.Fprintf(w, "UNREGISTERED\t%d\n", st.Unregistered)
			fmt.Fprintf(w, "BATCH SIZE\t%d\n", st.BatchSize)
			return w.Flush()
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
