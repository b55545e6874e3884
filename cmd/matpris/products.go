package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"matpris/internal/config"
	"matpris/internal/logging"
	"matpris/pkg/storage"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List stored products",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		category, _ := cmd.Flags().GetString("category")
		subcategory, _ := cmd.Flags().GetString("subcategory")
		runID, _ := cmd.Flags().GetString("run-id")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err := logging.Setup(cfg.Logging)
		if err != nil {
			return err
		}

		store, err := storage.New(cfg.Storage, logging.WithComponent(logger, "storage"))
		if err != nil {
			return err
		}
		if err := store.Init(); err != nil {
			return err
		}
		defer store.Close()

		products, err := store.Products(storage.Filter{
			Category:    category,
			Subcategory: subcategory,
			RunID:       runID,
			Limit:       limit,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			data, err := json.MarshalIndent(products, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		for _, p := range products {
			fmt.Fprintf(out, "%-32s  %8.2f kr  %s (%s)\n", p.ProductID, p.Price, p.Name, p.Subcategory)
		}
		fmt.Fprintf(out, "%d products\n", len(products))
		return nil
	},
}

func init() {
	productsCmd.Flags().String("category", "", "Filter by category")
	productsCmd.Flags().String("subcategory", "", "Filter by subcategory")
	productsCmd.Flags().String("run-id", "", "Filter by run ID")
	productsCmd.Flags().Int("limit", 0, "Maximum products to list (0 = all)")
	productsCmd.Flags().Bool("json", false, "Output as JSON")
}
