package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-reports/internal/accounting"
	"github.com/odyssey-erp/odyssey-reports/internal/locale"
	"github.com/odyssey-erp/odyssey-reports/internal/trialbalance"
)

var (
	flagRetries int
	flagWait    time.Duration
)

var tbCmd = &cobra.Command{
	Use:   "tb",
	Short: "Print the all-levels trial balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
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
		lang := locale.ParseLanguage(flagLang)
		state, err := loadView(ctx, svc, filter, lang, rt.cfg.ReportReloadDebounce, flagRetries, flagWait)
		if err != nil {
			return err
		}
		printTrialBalance(cmd.OutOrStdout(), state, lang)
		return nil
	},
}

func init() {
	addFilterFlags(tbCmd)
	tbCmd.Flags().IntVar(&flagRetries, "retries", 1, "Retries after a failed load")
	tbCmd.Flags().DurationVar(&flagWait, "wait", time.Minute, "Give up after this long")
	rootCmd.AddCommand(tbCmd)
}

// loadView drives a View through one load, retrying failures, and applies
// the --expand flag to the result.
func loadView(ctx context.Context, loader trialbalance.Loader, f trialbalance.Filter, lang locale.Language, debounce time.Duration, retries int, wait time.Duration) (trialbalance.ViewState, error) {
	changes := make(chan trialbalance.State, 1)
	v := trialbalance.NewView(trialbalance.ViewParams{
		Loader:   loader,
		Language: lang,
		Debounce: debounce,
		OnChange: func(s trialbalance.State) {
			select {
			case changes <- s:
			default:
			}
		},
	})
	defer v.Close()

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := v.SetFilter(f); err != nil {
		return trialbalance.ViewState{}, err
	}
	for {
		select {
		case <-ctx.Done():
			return trialbalance.ViewState{}, fmt.Errorf("trial balance not loaded: %w", ctx.Err())
		case s := <-changes:
			if s == trialbalance.StateFailed {
				if retries <= 0 || trialbalance.IsInvalid(v.Current().Err) {
					return trialbalance.ViewState{}, v.Current().Err
				}
				retries--
				if err := v.Retry(); err != nil {
					return trialbalance.ViewState{}, err
				}
				continue
			}
			if err := applyExpand(v, flagExpand); err != nil {
				return trialbalance.ViewState{}, err
			}
			return v.Current(), nil
		}
	}
}

func applyExpand(v *trialbalance.View, spec string) error {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "" || spec == "none":
		v.CollapseAll()
	case spec == "all":
		v.ExpandAll()
	case strings.HasPrefix(spec, "level:"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "level:"))
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %q", trialbalance.ErrInvalidExpand, spec)
		}
		v.ExpandToLevel(n)
	case strings.HasPrefix(spec, "ids:"):
		v.CollapseAll()
		for _, id := range strings.Split(strings.TrimPrefix(spec, "ids:"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				v.Toggle(id)
			}
		}
	default:
		return fmt.Errorf("%w: %q", trialbalance.ErrInvalidExpand, spec)
	}
	return nil
}

func printTrialBalance(w io.Writer, state trialbalance.ViewState, lang locale.Language) {
	snap := state.Snapshot
	fmt.Fprintf(w, "%s\n%s\n\n", snap.CompanyName, snap.Filter.PeriodLabel(lang))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CODE\tNAME\tOPENING DR\tOPENING CR\tPERIOD DR\tPERIOD CR\tCLOSING DR\tCLOSING CR\t")
	for _, r := range state.Report.Rows {
		marker := " "
		if r.HasChildren {
			marker = "+"
			if r.Expanded {
				marker = "-"
			}
		}
		name := strings.Repeat("  ", max(r.Level-1, 0)) + marker + " " + r.Name
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", r.Code, name, amountCells(r.Amounts))
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t\n", amountCells(state.Report.Totals))
	_ = tw.Flush()

	if b := state.Report.Balance; b.Balanced {
		fmt.Fprintln(w, "\n[BALANCED]")
	} else {
		fmt.Fprintf(w, "\n[OUT OF BALANCE by %s]\n", b.Difference.StringFixed(2))
	}
	for _, warning := range snap.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func amountCells(a accounting.Amounts) string {
	vals := []string{
		a.OpeningDebit.StringFixed(2), a.OpeningCredit.StringFixed(2),
		a.PeriodDebits.StringFixed(2), a.PeriodCredits.StringFixed(2),
		a.ClosingDebit.StringFixed(2), a.ClosingCredit.StringFixed(2),
	}
	return strings.Join(vals, "\t")
}
