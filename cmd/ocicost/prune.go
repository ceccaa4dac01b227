package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/thannaske/ocicost/pkg/db"
)

var (
	// Flag to confirm pruning without prompting
	confirm   bool
	olderThan int
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune old run history",
	Long: `Remove report run records older than the given number of days from the
run history database. Report files and uploaded objects are not touched.`,
	Run: func(cmd *cobra.Command, args []string) {
		if olderThan < 1 {
			fmt.Println("Error: --older-than must be at least 1 day.")
			return
		}
		cutoff := time.Now().AddDate(0, 0, -olderThan)

		// Initialize the database
		database, err := db.NewDB(config.DBPath)
		if err != nil {
			fmt.Printf("Error connecting to database: %v\n", err)
			return
		}
		defer database.Close()

		if err := database.InitDB(); err != nil {
			fmt.Printf("Error initializing database: %v\n", err)
			return
		}

		// If not confirmed, prompt the user
		if !confirm {
			fmt.Printf("This will permanently delete run records from before %s.\n"+
				"Are you sure you want to continue? (y/N): ", cutoff.Format("2006-01-02"))

			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Pruning cancelled.")
				return
			}
		}

		rowsDeleted, err := database.PruneOldRuns(cutoff)
		if err != nil {
			fmt.Printf("Error pruning run history: %v\n", err)
			os.Exit(1)
		}

		if rowsDeleted == 0 {
			fmt.Println("No run records to prune.")
		} else {
			fmt.Printf("Successfully pruned %d run records.\n", rowsDeleted)
		}
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	// Add flags to the prune command
	pruneCmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm pruning without prompting")
	pruneCmd.Flags().IntVar(&olderThan, "older-than", 90, "Delete runs older than this many days")
}
