package main

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/consolidate-cli/internal/fetcher"
	"github.com/sells-group/consolidate-cli/internal/ingest"
)

var (
	importFile    string
	importSheet   string
	importCharset string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load customer and transaction exports into the raw tables",
}

var importCustomersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Import a customer export (XLSX or CSV)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		header, rows, err := readExport(importFile)
		if err != nil {
			return err
		}
		customers, stats := ingest.ParseCustomers(header, rows)

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.UpsertCustomers(ctx, customers)
		if err != nil {
			return eris.Wrap(err, "import customers")
		}

		zap.L().Info("customers imported",
			zap.String("file", importFile),
			zap.Int("rows", stats.Rows),
			zap.Int("skipped", stats.Skipped),
			zap.Int64("upserted", n),
		)
		return nil
	},
}

var importTransactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Import a transaction export (XLSX or CSV), replacing the previous one",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		header, rows, err := readExport(importFile)
		if err != nil {
			return err
		}
		lines, stats := ingest.ParseTransactions(header, rows)

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.ReplaceTransactions(ctx, lines)
		if err != nil {
			return eris.Wrap(err, "import transactions")
		}

		zap.L().Info("transactions imported",
			zap.String("file", importFile),
			zap.Int("rows", stats.Rows),
			zap.Int("skipped", stats.Skipped),
			zap.Int64("loaded", n),
		)
		return nil
	},
}

// readExport dispatches on file extension.
func readExport(path string) ([]string, [][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: importSheet})
	case ".csv":
		return fetcher.ReadCSV(path, fetcher.CSVOptions{Charset: importCharset})
	default:
		return nil, nil, eris.Errorf("import: unsupported file type %q (want .xlsx or .csv)", filepath.Ext(path))
	}
}

func init() {
	for _, c := range []*cobra.Command{importCustomersCmd, importTransactionsCmd} {
		c.Flags().StringVar(&importFile, "file", "", "path to the export file (required)")
		c.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
		c.Flags().StringVar(&importCharset, "charset", "", "CSV charset, e.g. windows-1252 (default UTF-8)")
		_ = c.MarkFlagRequired("file")
		importCmd.AddCommand(c)
	}
	rootCmd.AddCommand(importCmd)
}
