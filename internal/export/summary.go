package export

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"vaultScope/internal/model"
	"vaultScope/internal/num"
)

// WriteSummary prints the bundle as aligned tables: vault states, borrow rates and strategies.
func WriteSummary(w io.Writer, e model.Export) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "cluster %s (%s)\n\n", e.Cluster, e.ExportedAt)
	fmt.Fprintln(tw, "VAULT\tSCENARIO\tSUPPLY\tBORROW\tUTIL\tBORROW APY\tSUPPLY APY")
	keys := make([]string, 0, len(e.Vaults))
	for k := range e.Vaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := e.Vaults[k]
		rows := []struct {
			name string
			p    model.ScenarioPoint
		}{
			{"current", v.Current},
			{"current_at_caps", v.CurrentAtCaps},
			{"end", v.End},
			{"end_at_caps", v.EndAtCaps},
		}
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", k, r.name,
				num.FormatAmount(r.p.Supply), num.FormatAmount(r.p.Borrow),
				num.FormatPercent(r.p.UtilizationPct, 2), num.FormatPercent(r.p.BorrowApyPct, 2), num.FormatPercent(r.p.SupplyApyPct, 2))
		}
	}

	if len(e.BorrowRates) > 0 {
		fmt.Fprintln(tw, "\nBORROW\tCURRENT\tCURRENT@CAPS\tEND\tEND@CAPS")
		for _, b := range e.BorrowRates {
			fmt.Fprintf(tw, "%s\t%s\n", b.Asset, values(b.Rates))
		}
	}
	if len(e.Strategies.Leveraged)+len(e.Strategies.SingleSided) > 0 {
		fmt.Fprintln(tw, "\nSTRATEGY\tCURRENT\tCURRENT@CAPS\tEND\tEND@CAPS")
		for _, l := range e.Strategies.Leveraged {
			fmt.Fprintf(tw, "%s\t%s\n", l.Name, values(l.Yields))
		}
		for _, s := range e.Strategies.SingleSided {
			fmt.Fprintf(tw, "%s\t%s\n", s.Name, values(s.Yields))
		}
	}
	for _, sk := range e.Skipped {
		fmt.Fprintf(tw, "skipped %s: %s\n", sk.Strategy, sk.Reason)
	}
	return tw.Flush()
}

func values(v model.ScenarioValues) string {
	return fmt.Sprintf("%s\t%s\t%s\t%s",
		num.FormatPercent(v.Current, 2), num.FormatPercent(v.CurrentAtCaps, 2),
		num.FormatPercent(v.End, 2), num.FormatPercent(v.EndAtCaps, 2))
}
