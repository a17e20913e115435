package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rmax-ai/mapgraph/pkg/config"
	"github.com/rmax-ai/mapgraph/pkg/graph"
)

func newInspectCmd(cfg *config.Config) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the stored graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := loadGraph(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			fmt.Fprintln(w, color.GreenString("%s graph: %d nodes, %d edges, %d special places",
				cfg.Backend, len(snap.Nodes), len(snap.Edges), len(snap.Places)))
			for _, n := range snap.Nodes {
				fmt.Fprintf(w, "node  %-10s (%g, %g)\n", n.ID, n.Pos.X, n.Pos.Y)
			}
			for _, e := range snap.Edges {
				kind := string(e.Kind)
				if e.Kind == graph.EdgeCar {
					kind = color.MagentaString(kind)
				}
				fmt.Fprintf(w, "edge  %s -> %s  %g  %s\n", e.From, e.To, e.Weight, kind)
			}
			for _, p := range snap.Places {
				fmt.Fprintf(w, "place %-10s %q (%g, %g)\n", p.ID, p.Name, p.Pos.X, p.Pos.Y)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the graph as JSON")
	return cmd
}
