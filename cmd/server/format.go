package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/quotes"
)

// formatMoney renders amount in the currency's display format, e.g. "$1,234.50".
// Amounts too small for the currency's minor unit keep their full precision.
func formatMoney(amount decimal.Decimal, code string) string {
	cur := money.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return amount.String() + " " + code
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	if minor.IsZero() && !amount.IsZero() {
		return amount.String() + " " + cur.Code
	}
	return money.New(minor.IntPart(), cur.Code).Display()
}

// printQuotes writes the quotes as a table, largest market cap first
func printQuotes(w io.Writer, q domain.Quotes, tier quotes.Tier, currency string) error {
	rows := make([]domain.Quote, 0, len(q))
	for _, quote := range q {
		rows = append(rows, quote)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].MarketCap.Equal(rows[j].MarketCap) {
			return rows[i].MarketCap.GreaterThan(rows[j].MarketCap)
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	fmt.Fprintf(w, "source: %s (%d quotes)\n", tier, len(rows))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\t1H %\t24H %\t7D %\tMARKET CAP")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Symbol,
			formatMoney(r.Price, currency),
			r.PercentChange1h.StringFixed(2),
			r.PercentChange24h.StringFixed(2),
			r.PercentChange7d.StringFixed(2),
			formatMoney(r.MarketCap, currency),
		)
	}
	return tw.Flush()
}
