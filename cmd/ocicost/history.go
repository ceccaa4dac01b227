package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/thannaske/ocicost/pkg/daterange"
	"github.com/thannaske/ocicost/pkg/db"
)

var limit int

// yesNo renders a flag column
func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past report runs",
	Long:  `Display the most recent report runs recorded in the run history database.`,
	Run: func(cmd *cobra.Command, args []string) {
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

		runs, err := database.GetRuns(limit)
		if err != nil {
			fmt.Printf("Error retrieving run history: %v\n", err)
			return
		}

		if len(runs) == 0 {
			fmt.Println("No report runs recorded yet")
			return
		}

		// Print the results
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
		fmt.Fprintln(w, "Run\tWindow\tRows\tSkipped\tCost\tPartial\tUploaded\tFile")
		fmt.Fprintln(w, "---\t------\t----\t-------\t----\t-------\t--------\t----")

		for _, run := range runs {
			fmt.Fprintf(w, "%s\t%s..%s\t%d\t%d\t%s\t%s\t%s\t%s\n",
				run.RunAt.Local().Format("2006-01-02 15:04:05"),
				run.WindowStart.Format(daterange.Layout),
				run.WindowEnd.Format(daterange.Layout),
				run.RowsWritten,
				run.RowsSkipped,
				run.TotalCost,
				yesNo(run.Partial),
				yesNo(run.Uploaded),
				run.FileName,
			)
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show (0 for all)")
}
