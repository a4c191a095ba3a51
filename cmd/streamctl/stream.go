package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rpggio/dirstream/internal/client"
	"github.com/rpggio/dirstream/internal/domain/directory"
	"github.com/spf13/cobra"
)

const defaultHubURL = "ws://localhost:8080/hub"

type streamOptions struct {
	url    string
	asJSON bool
}

func newStreamCmd(root *rootOptions) *cobra.Command {
	opts := &streamOptions{}

	cmd := &cobra.Command{
		Use:       "stream users|projects",
		Short:     "Stream a collection record by record",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{directory.KindUsers.String(), directory.KindProjects.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := directory.ParseKind(args[0])
			if err != nil {
				return err
			}
			return runStream(cmd, root, opts, kind)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", defaultHubURL, "Stream hub websocket URL")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print one JSON record per line")

	return cmd
}

func runStream(cmd *cobra.Command, root *rootOptions, opts *streamOptions, kind directory.Kind) error {
	logger := root.logger(cmd)
	adapter := client.NewAdapter(client.NewRemoteTransport(opts.url, client.RemoteOptions{Logger: logger}), logger)
	adapter.OnConnectionState(func(state client.ConnState) {
		if state == client.StateReconnecting {
			fmt.Fprintln(cmd.ErrOrStderr(), "connection lost, reconnecting")
		}
	})

	ctx := cmd.Context()
	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	defer adapter.Disconnect()

	out := cmd.OutOrStdout()
	switch kind {
	case directory.KindUsers:
		return collect(ctx, out, kind, client.NewUserAccumulator(adapter), opts.asJSON, formatUser)
	default:
		return collect(ctx, out, kind, client.NewProjectAccumulator(adapter), opts.asJSON, formatProject)
	}
}

// collect prints every record as it lands in acc, followed by a summary.
func collect[T any](
	ctx context.Context,
	out io.Writer,
	kind directory.Kind,
	acc *client.Accumulator[T],
	asJSON bool,
	format func(T) string,
) error {
	printed := 0
	acc.OnChange(func(s client.Snapshot[T]) {
		for ; printed < len(s.Items); printed++ {
			printRecord(out, s.Items[printed], s.Progress, asJSON, format)
		}
	})

	err := acc.Collect(ctx)
	snap := acc.Snapshot()
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "stopped after %d %s\n", len(snap.Items), kind)
		return nil
	case err != nil:
		return fmt.Errorf("stream %s: %w", kind, err)
	}
	if !asJSON {
		fmt.Fprintf(out, "received %d %s\n", len(snap.Items), kind)
	}
	return nil
}

func printRecord[T any](out io.Writer, record T, p client.Progress, asJSON bool, format func(T) string) {
	if asJSON {
		data, err := json.Marshal(record)
		if err != nil {
			return
		}
		fmt.Fprintln(out, string(data))
		return
	}
	total := "?"
	if p.Total != nil {
		total = fmt.Sprint(*p.Total)
	}
	fmt.Fprintf(out, "[%d/%s] %s\n", p.Current, total, format(record))
}

func formatUser(u directory.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <%s>", u.DisplayName, u.Mail)
	if u.JobTitle != "" {
		fmt.Fprintf(&b, " %s", u.JobTitle)
	}
	if u.Department != "" {
		fmt.Fprintf(&b, ", %s", u.Department)
	}
	return b.String()
}

func formatProject(p directory.Project) string {
	return fmt.Sprintf("%s (%s) owner %s, %d members", p.Name, p.Status, p.Owner.DisplayName, p.MemberCount)
}
