// Package buckets groups raw transactions into recurring and variable
// spending or income buckets.
package buckets

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

const (
	DefaultWindowMonths = 6
	DefaultSampleSize   = 5
)

// DefaultRecurringThreshold is the largest stddev/mean ratio a group may have
// and still count as recurring. It is a policy knob, not a derived value.
var DefaultRecurringThreshold = decimal.NewFromFloat(0.2)

// bucketNamespace scopes bucket IDs so the same key always yields the same ID.
var bucketNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bilancio/buckets"))

// Options tunes Derive. Zero values select the defaults; a zero Now means time.Now().
type Options struct {
	Now                time.Time
	WindowMonths       int
	RecurringThreshold decimal.Decimal
	SampleSize         int
}

func (o Options) withDefaults() Options {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	o.Now = o.Now.UTC()
	if o.WindowMonths <= 0 {
		o.WindowMonths = DefaultWindowMonths
	}
	if !o.RecurringThreshold.IsPositive() {
		o.RecurringThreshold = DefaultRecurringThreshold
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	return o
}

type entry struct {
	id     string
	date   time.Time
	amount decimal.Decimal
	seq    int
}

type group struct {
	key     string
	label   string
	entries []entry
}

// Derive recomputes buckets from scratch. Records with an unparseable date or
// amount, or dated before the window, are skipped.
func Derive(txs []core.TransactionRecord, opts Options) []core.Bucket {
	opts = opts.withDefaults()
	cutoff := core.AddMonths(opts.Now, -(opts.WindowMonths - 1))

	groups := make(map[string]*group)
	var keys []string
	for i, tx := range txs {
		date, err := core.ParseDate(tx.Date)
		if err != nil || date.Before(cutoff) {
			continue
		}
		amount, err := core.ParseAmount(tx.Amount)
		if err != nil {
			continue
		}

		key := GroupKey(tx)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, label: groupLabel(tx, key)}
			groups[key] = g
			keys = append(keys, key)
		}
		g.entries = append(g.entries, entry{id: tx.ID, date: date, amount: amount, seq: i})
	}

	out := make([]core.Bucket, 0, len(keys))
	for _, key := range keys {
		out = append(out, groups[key].bucket(opts))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.MonthlyAverage.Equal(b.MonthlyAverage) {
			return a.MonthlyAverage.GreaterThan(b.MonthlyAverage)
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.ID < b.ID
	})
	return out
}

// GroupKey is the normalized grouping key of a transaction: lower-cased,
// whitespace-collapsed description and counterparty, or a per-account
// placeholder when both are blank.
func GroupKey(tx core.TransactionRecord) string {
	key := strings.Join(strings.Fields(strings.ToLower(tx.Description+" "+tx.Counterparty)), " ")
	if key == "" {
		return "account:" + tx.AccountID
	}
	return key
}

// BucketID returns the stable ID of the bucket for a grouping key.
func BucketID(key string) string {
	return uuid.NewSHA1(bucketNamespace, []byte(key)).String()
}

func groupLabel(tx core.TransactionRecord, key string) string {
	if l := strings.Join(strings.Fields(tx.Description), " "); l != "" {
		return l
	}
	if l := strings.Join(strings.Fields(tx.Counterparty), " "); l != "" {
		return l
	}
	return key
}

func (g *group) bucket(opts Options) core.Bucket {
	// Chronological, input order on equal dates.
	sort.SliceStable(g.entries, func(i, j int) bool {
		return g.entries[i].date.Before(g.entries[j].date)
	})

	n := decimal.NewFromInt(int64(len(g.entries)))
	sumAbs := decimal.Zero
	allPositive, allNegative := true, true
	for _, e := range g.entries {
		sumAbs = sumAbs.Add(e.amount.Abs())
		if !e.amount.IsPositive() {
			allPositive = false
		}
		if !e.amount.IsNegative() {
			allNegative = false
		}
	}
	mean := sumAbs.Div(n)

	variance := decimal.Zero
	for _, e := range g.entries {
		dev := e.amount.Abs().Sub(mean)
		variance = variance.Add(dev.Mul(dev))
	}
	variance = variance.Div(n)

	// stddev <= threshold*mean, compared squared since both sides are non-negative.
	limit := opts.RecurringThreshold.Mul(mean)
	recurring := len(g.entries) >= 2 && variance.LessThanOrEqual(limit.Mul(limit))

	var typ core.BucketType
	switch {
	case allPositive:
		typ = core.BucketIncome
	case allNegative && recurring:
		typ = core.BucketFixed
	case allNegative:
		typ = core.BucketVariable
	default:
		typ = core.BucketOther
	}

	span := core.MonthsBetween(g.entries[0].date, opts.Now) + 1
	if span < 1 {
		span = 1
	}

	last := g.entries[len(g.entries)-1]
	samples := make([]string, 0, opts.SampleSize)
	for i := len(g.entries) - 1; i >= 0 && len(samples) < opts.SampleSize; i-- {
		samples = append(samples, g.entries[i].id)
	}

	return core.Bucket{
		ID:                   BucketID(g.key),
		Label:                g.label,
		Type:                 typ,
		MonthlyAverage:       sumAbs.Div(decimal.NewFromInt(int64(span))).Round(2),
		LastAmount:           last.amount.Abs(),
		Recurring:            recurring,
		SampleTransactionIDs: samples,
		TransactionCount:     len(g.entries),
	}
}
