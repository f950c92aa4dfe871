package renderer

import (
	"time"

	"github.com/etnz/profit"
	"github.com/shopspring/decimal"
)

// BucketRow is one line of a bucket table.
type BucketRow struct {
	Bucket  profit.Bucket
	Amount  decimal.Decimal
	Default decimal.Decimal // only used by the staging report
}

// Dashboard is the data of the dashboard report.
type Dashboard struct {
	Date      time.Time
	Rate      decimal.Decimal
	Snapshot  *profit.Snapshot
	Buckets   []BucketRow
	Total     decimal.Decimal
	Remaining decimal.Decimal // to the milestone, zero once reached
	Short     []profit.Goal
	Long      []profit.Goal
	Inflow    []BucketRow // split of the last funded profit
}

// NewDashboard prepares the dashboard of s. Empty buckets are skipped.
func NewDashboard(s *profit.Snapshot, rate decimal.Decimal, now time.Time) *Dashboard {
	d := &Dashboard{Date: now, Rate: rate, Snapshot: s, Total: s.Totals.Sum()}
	for _, b := range profit.Buckets() {
		if v := s.Totals.Get(b); !v.IsZero() {
			d.Buckets = append(d.Buckets, BucketRow{Bucket: b, Amount: v})
		}
	}
	if !s.AccountA.ReachedMilestone {
		d.Remaining = decimal.Max(profit.Milestone.Sub(s.AccountA.Balance), decimal.Zero)
	}
	if last := s.LastFunded; last != nil && last.Allocation != nil {
		for _, b := range profit.Buckets() {
			if v := last.Allocation.Get(b); !v.IsZero() {
				d.Inflow = append(d.Inflow, BucketRow{Bucket: b, Amount: v})
			}
		}
	}
	d.Short = activeGoals(s.ShortTermGoals)
	d.Long = activeGoals(s.LongTermGoals)
	return d
}

func activeGoals(goals []profit.Goal) []profit.Goal {
	var active []profit.Goal
	for _, g := range goals {
		if g.Active() {
			active = append(active, g)
		}
	}
	return active
}

// RenderDashboard renders the balances, bucket totals and active goals.
func RenderDashboard(d *Dashboard) string {
	return renderTemplate("dashboard", "dashboard.md", map[string]string{
		"accounts": "dashboard_accounts.md",
		"buckets":  "dashboard_buckets.md",
		"inflow":   "dashboard_inflow.md",
		"goals":    "goals_active.md",
	}, d)
}
