package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/showroom-assistant/internal/inventory"
	"github.com/sells-group/showroom-assistant/internal/model"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Search and import vehicle inventory",
}

// -- inventory search --

var inventorySearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the inventory the assistant would answer from",
	Long:  "Ranks vehicles the same way the assistant does. With no query the first vehicles of the catalog are listed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		feeds, _ := cmd.Flags().GetStringSlice("feed")
		limit, _ := cmd.Flags().GetInt("limit")

		vehicles, err := loadVehicles(ctx, feeds)
		if err != nil {
			return err
		}

		matches := searchVehicles(vehicles, strings.Join(args, " "), limit)
		if len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "No vehicles found.")
			return nil
		}
		formatVehicles(os.Stdout, matches)
		return nil
	},
}

// -- inventory import --

var inventoryImportCmd = &cobra.Command{
	Use:   "import [feed...]",
	Short: "Load inventory feeds and upsert them into the store",
	Long:  "Feeds may be local paths, http(s):// or ftp:// URIs in JSON, CSV, XLSX or YAML. With no arguments the configured inventory.feeds are imported.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("inventory"); err != nil {
			return err
		}

		feeds := args
		if len(feeds) == 0 {
			feeds = cfg.Inventory.Feeds
		}
		if len(feeds) == 0 {
			return eris.New("inventory import: no feeds given")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := importFeeds(ctx, st, inventory.NewCatalog(newFetcher(), feeds...))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Imported %d vehicles from %d feeds.\n", n, len(feeds))
		return nil
	},
}

func init() {
	inventorySearchCmd.Flags().StringSlice("feed", nil, "feed to search instead of the configured source (repeatable)")
	inventorySearchCmd.Flags().Int("limit", inventory.DefaultLimit, "max number of vehicles to display")

	inventoryCmd.AddCommand(inventorySearchCmd)
	inventoryCmd.AddCommand(inventoryImportCmd)
	rootCmd.AddCommand(inventoryCmd)
}

// loadVehicles reads the given feeds, or the configured source when none
// are given.
func loadVehicles(ctx context.Context, feeds []string) ([]model.Vehicle, error) {
	if len(feeds) == 0 && cfg.Inventory.Source == "store" {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck
		return st.ListVehicles(ctx)
	}

	if len(feeds) == 0 {
		feeds = cfg.Inventory.Feeds
	}
	if len(feeds) == 0 {
		return nil, eris.New("inventory: no feeds configured")
	}
	catalog := inventory.NewCatalog(newFetcher(), feeds...)
	if err := catalog.Load(ctx); err != nil {
		return nil, eris.Wrap(err, "load inventory")
	}
	return catalog.List(ctx)
}

// vehicleWriter is the part of the store an import needs.
type vehicleWriter interface {
	UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) (int64, error)
}

func importFeeds(ctx context.Context, w vehicleWriter, catalog *inventory.Catalog) (int64, error) {
	if err := catalog.Load(ctx); err != nil {
		return 0, eris.Wrap(err, "inventory import")
	}
	vehicles, err := catalog.List(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "inventory import")
	}
	n, err := w.UpsertVehicles(ctx, vehicles)
	if err != nil {
		return 0, eris.Wrap(err, "inventory import: upsert")
	}
	return n, nil
}

// searchVehicles ranks vehicles against query; a blank query lists the
// catalog head.
func searchVehicles(vehicles []model.Vehicle, query string, limit int) []model.Vehicle {
	if strings.TrimSpace(query) != "" {
		return inventory.Search(vehicles, query, limit)
	}
	if limit > 0 && len(vehicles) > limit {
		return vehicles[:limit]
	}
	return vehicles
}
