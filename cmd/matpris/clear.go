package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"matpris/internal/config"
	"matpris/internal/logging"
	"matpris/pkg/storage"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored products from the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			return fmt.Errorf("refusing to clear storage without --yes")
		}

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

		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "storage cleared")
		return nil
	},
}

func init() {
	clearCmd.Flags().Bool("yes", false, "Confirm deletion")
}
