package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/profit"
	"github.com/etnz/profit/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// bucketValues collects repeated -set bucket=amount flags.
type bucketValues []bucketValue

type bucketValue struct {
	bucket profit.Bucket
	amount decimal.Decimal
}

func (v *bucketValues) String() string {
	var parts []string
	for _, b := range *v {
		parts = append(parts, b.bucket.String()+"="+b.amount.String())
	}
	return strings.Join(parts, ",")
}

func (v *bucketValues) Set(s string) error {
	name, amount, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want bucket=amount, got %q", s)
	}
	b, err := profit.ParseBucket(name)
	if err != nil {
		return err
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(amount), "$"))
	if err != nil {
		return fmt.Errorf("%s: %w", amount, profit.ErrInvalidAmount)
	}
	*v = append(*v, bucketValue{bucket: b, amount: d})
	return nil
}

// stage returns the reviewed split of amount.
func stage(c *profit.Coordinator, amount decimal.Decimal, sets bucketValues) (*profit.Staging, error) {
	s, err := c.StageFundedProfit(amount)
	if err != nil {
		return nil, err
	}
	for _, v := range sets {
		if err := s.Set(v.bucket, v.amount); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// amountArg parses the single amount argument of a command.
func amountArg(f *flag.FlagSet) (decimal.Decimal, error) {
	if f.NArg() != 1 {
		return decimal.Zero, fmt.Errorf("expected exactly one amount argument, got %d", f.NArg())
	}
	return profit.ParseAmount(f.Arg(0))
}

// --- Funded Command ---

type fundedCmd struct {
	sets bucketValues
}

func (*fundedCmd) Name() string     { return "funded" }
func (*fundedCmd) Synopsis() string { return "record a funded profit and split it across buckets" }
func (*fundedCmd) Usage() string {
	return `pm funded [-set <bucket>=<amount>]... <amount>

  Records a funded profit. The profit is split with the default shares unless
  buckets are lowered with -set, what is taken away goes to long-term.
  Use 'pm stage' to review the split first.
`
}

func (c *fundedCmd) SetFlags(f *flag.FlagSet) {
	c.sets = nil
	f.Var(&c.sets, "set", "Override the amount of a bucket, as bucket=amount. Can be repeated.")
}

func (c *fundedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := amountArg(f)
	if err != nil {
		return usageError(f, "%v", err)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		staging, err := stage(s.c, amount, c.sets)
		if err != nil {
			return err
		}
		alloc := staging.Commit()
		e, err := s.c.AddFundedProfit(amount, &alloc)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderStaging(renderer.NewStagingView(staging)))
		s.done(e)
		return nil
	})
}

// --- Stage Command ---

type stageCmd struct {
	sets bucketValues
}

func (*stageCmd) Name() string     { return "stage" }
func (*stageCmd) Synopsis() string { return "preview the split of a funded profit" }
func (*stageCmd) Usage() string {
	return `pm stage [-set <bucket>=<amount>]... <amount>

  Shows how a funded profit would be split, without recording it.
`
}

func (c *stageCmd) SetFlags(f *flag.FlagSet) {
	c.sets = nil
	f.Var(&c.sets, "set", "Override the amount of a bucket, as bucket=amount. Can be repeated.")
}

func (c *stageCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := amountArg(f)
	if err != nil {
		return usageError(f, "%v", err)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		staging, err := stage(s.c, amount, c.sets)
		if err != nil {
			return err
		}
		printMarkdown(renderer.RenderStaging(renderer.NewStagingView(staging)))
		return nil
	})
}

// --- Add Command ---

type addCmd struct {
	source string
	kind   string
	notes  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction on Account A or Account B" }
func (*addCmd) Usage() string {
	return `pm add -source <a|b> -kind <profit|loss|deposit|withdrawal> [-notes <text>] <amount>

  Records a transaction on an account. Withdrawals are checked against the
  balance, see also 'pm withdraw'.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "a", "Account of the transaction (a or b)")
	f.StringVar(&c.kind, "kind", "", "Kind of transaction (profit, loss, deposit or withdrawal)")
	f.StringVar(&c.notes, "notes", "", "Optional notes")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	source, err := profit.ParseSource(c.source)
	if err != nil {
		return usageError(f, "%v", err)
	}
	kind, err := profit.ParseKind(c.kind)
	if err != nil {
		return usageError(f, "%v", err)
	}
	amount, err := amountArg(f)
	if err != nil {
		return usageError(f, "%v", err)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.AddTransaction(source, kind, amount, c.notes)
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// --- Withdraw Command ---

type withdrawCmd struct {
	source string
}

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "withdraw from Account A or Account B" }
func (*withdrawCmd) Usage() string {
	return `pm withdraw [-source <a|b>] <amount>

  Withdraws from an account. An Account B withdrawal keeps 30% on the account
  and distributes the rest across buckets.
`
}

func (c *withdrawCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "b", "Account to withdraw from (a or b)")
}

func (c *withdrawCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	source, err := profit.ParseSource(c.source)
	if err != nil {
		return usageError(f, "%v", err)
	}
	amount, err := amountArg(f)
	if err != nil {
		return usageError(f, "%v", err)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.Withdraw(source, amount)
		if err != nil {
			return err
		}
		if source == profit.AccountB {
			printMarkdown(renderer.RenderWithdrawal(renderer.NewWithdrawalView(amount)))
		}
		s.done(e)
		return nil
	})
}

// --- Delete Command ---

type deleteCmd struct{}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction" }
func (*deleteCmd) Usage() string {
	return `pm delete <id>

  Deletes a transaction. Everything is computed again without it.
`
}

func (*deleteCmd) SetFlags(f *flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected exactly one transaction id")
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.DeleteTransaction(f.Arg(0))
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}

// --- Edit Command ---

type editCmd struct {
	amount string
	kind   string
	notes  string
	rate   string
	date   string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "edit a transaction" }
func (*editCmd) Usage() string {
	return `pm edit [-amount <amount>] [-kind <kind>] [-notes <text>] [-rate <kes per usd>] [-date <RFC 3339>] <id>

  Edits the fields of a transaction given as flags. Editing the amount of a
  funded profit computes its default split again.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "New amount in USD")
	f.StringVar(&c.kind, "kind", "", "New kind")
	f.StringVar(&c.notes, "notes", "", "New notes")
	f.StringVar(&c.rate, "rate", "", "New locked exchange rate, in KES per USD")
	f.StringVar(&c.date, "date", "", "New timestamp, as RFC 3339")
}

// patch builds the patch from the flags that were actually set.
func (c *editCmd) patch(f *flag.FlagSet) (profit.Patch, error) {
	var p profit.Patch
	var err error
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "amount":
			var d decimal.Decimal
			if d, err = profit.ParseAmount(c.amount); err == nil {
				p.Amount = &d
			}
		case "kind":
			var k profit.Kind
			if k, err = profit.ParseKind(c.kind); err == nil {
				p.Kind = &k
			}
		case "notes":
			notes := c.notes
			p.Notes = &notes
		case "rate":
			var d decimal.Decimal
			if d, err = profit.ParseAmount(c.rate); err == nil {
				p.ExchangeRate = &d
			}
		case "date":
			var t time.Time
			if t, err = time.Parse(time.RFC3339Nano, c.date); err == nil {
				p.Timestamp = &t
			}
		}
	})
	return p, err
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usageError(f, "expected exactly one transaction id")
	}
	patch, err := c.patch(f)
	if err != nil {
		return usageError(f, "%v", err)
	}
	return withSession(ctx, func(ctx context.Context, s *session) error {
		e, err := s.c.EditTransaction(f.Arg(0), patch)
		if err != nil {
			return err
		}
		s.done(e)
		return nil
	})
}
