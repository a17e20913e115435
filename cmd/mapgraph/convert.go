package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rmax-ai/mapgraph/pkg/config"
	"github.com/rmax-ai/mapgraph/pkg/graph"
	"github.com/rmax-ai/mapgraph/pkg/store/backend"
)

type convertTarget struct {
	backend     string
	dbPath      string
	document    string
	redisAddr   string
	redisPrefix string
}

// apply derives the target configuration from the source one.
func (t convertTarget) apply(src config.Config) (config.Config, error) {
	dst := src
	dst.Backend = t.backend
	if t.dbPath != "" {
		dst.DBPath = t.dbPath
	}
	if t.document != "" {
		dst.DocumentPath = t.document
	}
	if t.redisAddr != "" {
		dst.RedisAddr = t.redisAddr
	}
	if t.redisPrefix != "" {
		dst.RedisPrefix = t.redisPrefix
	}
	if err := dst.Finalize(); err != nil {
		return config.Config{}, fmt.Errorf("invalid target: %w", err)
	}
	if dst.Backend == src.Backend && dst.DBPath == src.DBPath &&
		dst.DocumentPath == src.DocumentPath && dst.RedisAddr == src.RedisAddr && dst.RedisPrefix == src.RedisPrefix {
		return config.Config{}, fmt.Errorf("source and target are the same %s store", dst.Backend)
	}
	return dst, nil
}

func newConvertCmd(cfg *config.Config) *cobra.Command {
	var target convertTarget

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Copy the graph into another backend and verify the copy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dstCfg, err := target.apply(*cfg)
			if err != nil {
				return err
			}

			snap, err := loadGraph(ctx, *cfg)
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}

			dst, err := backend.Open(ctx, dstCfg)
			if err != nil {
				return fmt.Errorf("failed to open target: %w", err)
			}
			defer dst.Close()

			if err := dst.SaveAll(ctx, snap); err != nil {
				return fmt.Errorf("failed to write target: %w", err)
			}
			got, err := dst.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to read back target: %w", err)
			}
			if diffs := graph.Diff(snap, got); len(diffs) > 0 {
				return fmt.Errorf("target differs after conversion:\n  %s", strings.Join(diffs, "\n  "))
			}

			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("converted %d nodes, %d edges, %d special places from %s to %s",
				len(snap.Nodes), len(snap.Edges), len(snap.Places), cfg.Backend, dstCfg.Backend))
			return nil
		},
	}

	cmd.Flags().StringVar(&target.backend, "to", "", "target backend: sqlite|document|redis")
	cmd.Flags().StringVar(&target.dbPath, "to-db", "", "target SQLite database")
	cmd.Flags().StringVar(&target.document, "to-document", "", "target JSON document")
	cmd.Flags().StringVar(&target.redisAddr, "to-redis-addr", "", "target redis address")
	cmd.Flags().StringVar(&target.redisPrefix, "to-redis-prefix", "", "target redis key prefix")
	cmd.MarkFlagRequired("to")
	return cmd
}
