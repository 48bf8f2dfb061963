package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-reports/internal/export"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/trialbalance"
)

var (
	flagFormat string
	flagTitle  string
	flagOutDir string
	flagOwn    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the trial balance to a file",
	Example: `  reportctl export --org 42 --from 2026-01-01 --to 2026-06-30 --format excel --expand level:2
  reportctl export --org 42 --format pdf --lang en --out ./out`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, err := export.ParseFormat(flagFormat)
		if err != nil {
			return err
		}
		filter, err := filterFromFlags(time.Now())
		if err != nil {
			return err
		}
		rt, err := openRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.Close()
		svc, err := rt.service()
		if err != nil {
			return err
		}
		exporter, err := rt.exporter()
		if err != nil {
			return err
		}

		snap, err := svc.Load(ctx, filter)
		if err != nil {
			return err
		}
		expansion, err := trialbalance.ParseExpansion(flagExpand, snap.Forest)
		if err != nil {
			return err
		}
		lang := locale.ParseLanguage(flagLang)
		art, err := exporter.Export(ctx, snap.Table(expansion, trialbalance.TableOptions{Language: lang, OwnAmounts: flagOwn}), export.Options{
			Format:      format,
			Title:       trialbalance.ExportTitle(flagTitle, lang),
			Subtitle:    snap.CompanyName,
			Language:    lang,
			Orientation: export.Landscape,
			Excel:       export.ExcelOptions{AutoFilter: true, FreezeHeader: true},
		})
		if err != nil {
			return err
		}

		dir := flagOutDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(dir, art.Filename)
		if err := os.WriteFile(path, art.Data, 0o644); err != nil {
			return err
		}
		if art.Fallback {
			fmt.Fprintln(cmd.ErrOrStderr(), "pdf renderer unavailable, wrote html instead")
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	addFilterFlags(exportCmd)
	exportCmd.Flags().StringVarP(&flagFormat, "format", "f", "excel", "Format: pdf, excel, csv, html or json")
	exportCmd.Flags().StringVar(&flagTitle, "title", "", "Document title")
	exportCmd.Flags().StringVarP(&flagOutDir, "out", "o", "", "Output directory")
	exportCmd.Flags().BoolVar(&flagOwn, "own", false, "Export own postings instead of rollups")
	rootCmd.AddCommand(exportCmd)
}
