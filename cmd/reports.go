package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/profit"
	"github.com/etnz/profit/renderer"
	"github.com/google/subcommands"
)

// --- Dashboard Command ---

type dashboardCmd struct{}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "show balances, buckets and goals" }
func (*dashboardCmd) Usage() string {
	return `pm dashboard

  Shows the account balances, the bucket totals and the active goals.
`
}

func (*dashboardCmd) SetFlags(f *flag.FlagSet) {}

func (*dashboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		rate := s.c.State().Settings.ExchangeRate
		printMarkdown(renderer.RenderDashboard(renderer.NewDashboard(s.c.Snapshot(), rate, now())))
		return nil
	})
}

// --- Tx Command ---

type txCmd struct {
	source  string
	kind    string
	taxable bool
	head    int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions, newest first" }
func (*txCmd) Usage() string {
	return `pm tx [-source <funded|a|b>] [-kind <kind>] [-taxable] [-head <n>]

  Lists transactions from the ledger, newest first, with options for
  filtering and limiting the output.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&p.source, "source", "", "Only list transactions of this source (funded, a or b)")
	f.StringVar(&p.kind, "kind", "", "Only list transactions of this kind")
	f.BoolVar(&p.taxable, "taxable", false, "Only list taxable transactions")
	f.IntVar(&p.head, "head", 0, "Show only the N most recent transactions.")
}

func (p *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	title := "Transactions"
	var filters []func(profit.Transaction) bool
	if p.source != "" {
		source, err := profit.ParseSource(p.source)
		if err != nil {
			return usageError(f, "%v", err)
		}
		filters = append(filters, profit.BySource(source))
		title = fmt.Sprintf("Transactions of %s", source)
	}
	if p.kind != "" {
		kind, err := profit.ParseKind(p.kind)
		if err != nil {
			return usageError(f, "%v", err)
		}
		filters = append(filters, profit.ByKind(kind))
	}
	if p.taxable {
		filters = append(filters, profit.Taxable)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		l := profit.NewLedger(s.c.State().Transactions...)
		var txs []profit.Transaction
		for _, tx := range l.Transactions(filters...) {
			txs = append(txs, tx)
		}
		list := renderer.NewTransactionList(title, txs)
		if p.head > 0 && len(list.Rows) > p.head {
			list.Rows = list.Rows[:p.head]
		}
		printMarkdown(renderer.RenderTransactions(list))
		return nil
	})
}

// --- Tax Command ---

type taxCmd struct {
	brackets string
}

func (*taxCmd) Name() string     { return "tax" }
func (*taxCmd) Synopsis() string { return "estimate the income tax" }
func (*taxCmd) Usage() string {
	return `pm tax [-brackets <file.json>]

  Estimates the income tax on the taxable income of the ledger. With
  -brackets, the monthly brackets are first replaced by the ones of the file,
  a JSON array of {"min", "max", "rate"} objects in KES.
`
}

func (c *taxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.brackets, "brackets", "", "JSON file with the tax brackets to use from now on")
}

func (c *taxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var brackets []profit.TaxBracket
	if c.brackets != "" {
		data, err := os.ReadFile(c.brackets)
		if err != nil {
			return usageError(f, "%v", err)
		}
		if err := json.Unmarshal(data, &brackets); err != nil {
			return usageError(f, "brackets %s: %v", c.brackets, err)
		}
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		if brackets != nil {
			e, err := s.c.SetTaxBrackets(brackets)
			if err != nil {
				return err
			}
			s.done(e)
		}
		settings := s.c.State().Settings
		printMarkdown(renderer.RenderTax(&renderer.TaxReport{TaxSummary: s.c.Tax(), Brackets: settings.Brackets()}))
		return nil
	})
}

// --- Rate Command ---

type rateCmd struct{}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "show or set the KES per USD exchange rate" }
func (*rateCmd) Usage() string {
	return `pm rate [<kes per usd>]

  Shows the exchange rate locked into new transactions, or sets it. Existing
  transactions keep the rate they were recorded with.
`
}

func (*rateCmd) SetFlags(f *flag.FlagSet) {}

func (*rateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		return usageError(f, "expected at most one rate")
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		if f.NArg() == 0 {
			fmt.Fprintf(stdout, "1 USD = %s KES\n", s.c.State().Settings.ExchangeRate)
			return nil
		}
		rate, err := profit.ParseAmount(f.Arg(0))
		if err != nil {
			return err
		}
		e, err := s.c.SetExchangeRate(rate)
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}
