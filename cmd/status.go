package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recent consolidation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tCUSTOMERS\tCOMPANIES\tUNATTRIBUTED\tERROR")
		for _, r := range runs {
			customers, companies, unattributed := "-", "-", "-"
			if r.Summary != nil {
				customers = fmt.Sprintf("%d", r.Summary.CustomersTotal)
				companies = fmt.Sprintf("%d", r.Summary.CompaniesFormed)
				unattributed = fmt.Sprintf("%d", r.Summary.UnattributedLines)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04:05"),
				customers, companies, unattributed, r.Error)
		}
		return w.Flush()
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(statusCmd)
}
