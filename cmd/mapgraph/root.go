package main

import (
	"context"
	"flag"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rmax-ai/mapgraph/pkg/config"
	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/store/backend"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "mapgraph",
		Short:         "Inspect and convert map annotation graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Finalize(); err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
	}

	fs := flag.NewFlagSet("mapgraph", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.BindFlags(fs)
	root.PersistentFlags().AddGoFlagSet(fs)

	root.AddCommand(newInspectCmd(cfg))
	root.AddCommand(newConvertCmd(cfg))
	root.AddCommand(newVersionCmd())
	return root
}

// loadGraph reads the whole graph from the backend cfg names.
func loadGraph(ctx context.Context, cfg config.Config) (*graph.Snapshot, error) {
	st, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Load(ctx)
}
