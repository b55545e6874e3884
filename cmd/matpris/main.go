package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "matpris",
	Short: "Matpris - Norwegian grocery price scraper",
	Long: `Matpris scrapes product data from Norwegian grocery sites (Oda, Meny)
and stores it as CSV files or in a Supabase table, driven by a YAML
configuration file.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(productsCmd)

	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("debug", false, "Force DEBUG log level")
}

func main() {
	// Supabase credentials live in .env during development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
