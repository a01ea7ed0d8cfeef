package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kotae/internal/cli"
)

const defaultServerURL = "http://localhost:8000"

// clientFlags are shared by the commands that talk to a running server.
type clientFlags struct {
	server  string
	output  string
	timeout time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", defaultServerURL, "server URL")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "output format: text or json")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 2*time.Minute, "request timeout")
}

func newAskCmd() *cobra.Command {
	var (
		flags clientFlags
		appID int
	)
	cmd := &cobra.Command{
		Use:   "ask [flags] <question>",
		Short: "Ask a question to a running server",
		Example: `  kotae ask --app 1 "Comment faire une omelette ?"
  kotae ask --app 2 -o json "Que dit la sourate Al-Fatiha ?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(flags.output)
			if err != nil {
				return err
			}
			question := buildQuestion(args)
			if question == "" {
				return fmt.Errorf("question is empty")
			}
			resp, err := cli.NewClient(flags.server, flags.timeout).Ask(context.Background(), appID, question)
			if err != nil {
				return err
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), resp, format)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&appID, "app", 1, "application id")
	return cmd
}

func newAppsCmd() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "List the applications of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseFormat(flags.output)
			if err != nil {
				return err
			}
			apps, err := cli.NewClient(flags.server, flags.timeout).Applications(context.Background())
			if err != nil {
				return err
			}
			return cli.WriteApplications(cmd.OutOrStdout(), apps, format)
		},
	}
	flags.register(cmd)
	return cmd
}

// buildQuestion joins positional args so unquoted questions work.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
