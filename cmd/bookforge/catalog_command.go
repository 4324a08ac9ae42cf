package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookforge/internal/book"
	"bookforge/internal/geometry"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Product catalog utilities",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	return catalogCmd
}

type catalogEntry struct {
	Spec     book.ProductSpec  `json:"spec"`
	DPI      float64           `json:"dpi"`
	Geometry geometry.Geometry `json:"geometry"`
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products with pixel geometry at the configured DPI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cat, err := ctx.loadCatalog()
			if err != nil {
				return err
			}
			resolver := geometry.NewResolver(cfg.Pipeline.DPI)
			entries := make([]catalogEntry, 0)
			for _, spec := range cat.List() {
				geo, err := resolver.Resolve(spec)
				if err != nil {
					return fmt.Errorf("product %s: %w", spec.ID, err)
				}
				entries = append(entries, catalogEntry{Spec: spec, DPI: resolver.DPI, Geometry: geo})
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Spec.ID,
					e.Spec.Name,
					e.Spec.SizeLabel(),
					fmt.Sprintf("%dx%d", e.Geometry.CoverWidth, e.Geometry.CoverHeight),
					fmt.Sprintf("%dx%d", e.Geometry.SpreadWidth, e.Geometry.PageHeight),
					fmt.Sprintf("%d", e.Geometry.SpineWidth),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				leftCol("ID"), leftCol("Name").capped(32), leftCol("Size"),
				rightCol("Cover px"), rightCol("Spread px"), rightCol("Spine px"),
			}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}
