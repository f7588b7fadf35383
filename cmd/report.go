package cmd

import (
	"fmt"
	"io"

	"github.com/michaelpento.lv/arbagent/audit"
	"github.com/michaelpento.lv/arbagent/types"
	"github.com/olekukonko/tablewriter"
)

func venueLabel(buyOnVenueA bool, venueA, venueB string) (buy, sell string) {
	if buyOnVenueA {
		return venueA, venueB
	}
	return venueB, venueA
}

// writeOpportunities prints scan results as a table
func writeOpportunities(w io.Writer, opps []types.Opportunity, venueA, venueB string) {
	if len(opps) == 0 {
		fmt.Fprintln(w, "no opportunities above the profit threshold")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("#", "Token0", "Token1", "Profit bps", "Buy on", "Sell on")
	for i, opp := range opps {
		buy, sell := venueLabel(opp.BuyOnVenueA, venueA, venueB)
		table.Append(
			fmt.Sprintf("%d", i+1),
			opp.Token0.Hex(),
			opp.Token1.Hex(),
			fmt.Sprintf("%d", opp.ProfitBps),
			buy,
			sell,
		)
	}
	table.Render()
}

// writeAuditRecords prints stored audit records as a table
func writeAuditRecords(w io.Writer, recs []audit.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "audit log is empty")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Time", "Kind", "ID", "Detail")
	for _, rec := range recs {
		table.Append(
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			string(rec.Kind),
			rec.ID,
			string(rec.Detail),
		)
	}
	table.Render()
}
