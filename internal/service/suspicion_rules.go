package service

import (
	"fmt"
	"strings"

	"salesguard/internal/core/domain"

	"github.com/shopspring/decimal"
)

// Rule names, used as the "rule" label on findings.
const (
	RuleNegativeTotal   = "negative_total"
	RuleHighValue       = "high_value"
	RulePriceRange      = "price_range"
	RuleHighQuantity    = "high_quantity"
	RuleRapidSubmission = "rapid_submission"
	RuleLowActivity     = "low_activity"
)

var (
	half               = decimal.NewFromFloat(0.5)
	fifth              = decimal.NewFromFloat(0.2)
	quantityMultiplier = decimal.NewFromInt(5)
	quantityFloor      = decimal.NewFromInt(10)
	activityFloor      = decimal.NewFromInt(5)
)

// Facts is everything the rules may look at. A nil fact was not
// available and disables only the rules that need it.
type Facts struct {
	Sale         *domain.Sale
	PriceHistory *domain.PriceHistory
	AvgQuantity  *decimal.Decimal
	RecentSales  *int64
	// Activity is nil when the lookup failed; an empty non-nil slice means
	// there are no worker accounts.
	Activity []domain.WorkerActivity
}

// RuleConfig holds the tunable thresholds.
type RuleConfig struct {
	HighValueThreshold decimal.Decimal
	Currency           string
	RapidMaxSales      int64
}

// Rule is one independent heuristic. Evaluate returns nil when the rule
// does not fire.
type Rule struct {
	Name     string
	Evaluate func(Facts) *domain.Finding
}

// DefaultRules returns every heuristic configured with cfg.
func DefaultRules(cfg RuleConfig) []Rule {
	return []Rule{
		{Name: RuleNegativeTotal, Evaluate: negativeTotal},
		{Name: RuleHighValue, Evaluate: highValue(cfg.HighValueThreshold, cfg.Currency)},
		{Name: RulePriceRange, Evaluate: priceRange},
		{Name: RuleHighQuantity, Evaluate: highQuantity},
		{Name: RuleRapidSubmission, Evaluate: rapidSubmission(cfg.RapidMaxSales)},
		{Name: RuleLowActivity, Evaluate: lowActivity},
	}
}

// ApplyRules runs every rule against facts and collects the hits.
func ApplyRules(rules []Rule, facts Facts) []domain.Finding {
	var findings []domain.Finding
	for _, r := range rules {
		if f := r.Evaluate(facts); f != nil {
			f.Rule = r.Name
			findings = append(findings, *f)
		}
	}
	return findings
}

func negativeTotal(f Facts) *domain.Finding {
	if !f.Sale.TotalAmount.IsNegative() {
		return nil
	}
	return &domain.Finding{Reason: "Total amount is negative", Severity: domain.SeverityHigh}
}

func highValue(threshold decimal.Decimal, currency string) func(Facts) *domain.Finding {
	return func(f Facts) *domain.Finding {
		if !f.Sale.TotalAmount.GreaterThan(threshold) {
			return nil
		}
		return &domain.Finding{
			Reason:   fmt.Sprintf("High value transaction: %s %s", currency, groupThousands(f.Sale.TotalAmount)),
			Severity: domain.SeverityMedium,
		}
	}
}

// priceRange reports at most one finding: far below the minimum wins over
// a deviation from the mean.
func priceRange(f Facts) *domain.Finding {
	h := f.PriceHistory
	if h == nil {
		return nil
	}
	price := f.Sale.UnitPrice

	if price.LessThan(h.MinPrice.Mul(half)) {
		return &domain.Finding{
			Reason: fmt.Sprintf("Unit price (%s) is significantly lower than typical range (%s - %s)",
				price.String(), h.MinPrice.String(), h.MaxPrice.String()),
			Severity: domain.SeverityHigh,
		}
	}
	if price.Sub(h.AvgPrice).Abs().GreaterThan(h.AvgPrice.Mul(half)) {
		return &domain.Finding{
			Reason:   fmt.Sprintf("Unit price deviates significantly from average (%s)", h.AvgPrice.StringFixed(2)),
			Severity: domain.SeverityMedium,
		}
	}
	return nil
}

func highQuantity(f Facts) *domain.Finding {
	if f.AvgQuantity == nil || f.AvgQuantity.IsZero() {
		return nil
	}
	qty := decimal.NewFromInt(int64(f.Sale.Quantity))
	if !qty.GreaterThan(f.AvgQuantity.Mul(quantityMultiplier)) || !qty.GreaterThan(quantityFloor) {
		return nil
	}
	return &domain.Finding{
		Reason: fmt.Sprintf("Quantity (%d) is unusually high compared to average (%s)",
			f.Sale.Quantity, f.AvgQuantity.StringFixed(1)),
		Severity: domain.SeverityMedium,
	}
}

func rapidSubmission(maxSales int64) func(Facts) *domain.Finding {
	return func(f Facts) *domain.Finding {
		if f.RecentSales == nil || *f.RecentSales <= maxSales {
			return nil
		}
		return &domain.Finding{
			Reason:   "Multiple sales submitted in quick succession (possible padding)",
			Severity: domain.SeverityMedium,
		}
	}
}

// lowActivity compares the worker with the mean over all worker accounts,
// idle ones included.
func lowActivity(f Facts) *domain.Finding {
	if f.Activity == nil {
		return nil
	}

	var (
		total int64
		own   *int64
	)
	for i := range f.Activity {
		total += f.Activity[i].SaleCount
		if f.Activity[i].WorkerID == f.Sale.WorkerID {
			own = &f.Activity[i].SaleCount
		}
	}
	if own == nil {
		return nil
	}

	n := int64(len(f.Activity))
	if n < 1 {
		n = 1
	}
	avg := decimal.NewFromInt(total).Div(decimal.NewFromInt(n))
	if !avg.GreaterThan(activityFloor) || !decimal.NewFromInt(*own).LessThan(avg.Mul(fifth)) {
		return nil
	}
	return &domain.Finding{
		Reason:   "Worker has unusually low activity compared to others",
		Severity: domain.SeverityLow,
	}
}

// groupThousands renders d with comma-separated thousands, e.g. 1,250,000.5.
func groupThousands(d decimal.Decimal) string {
	s := d.String()
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + frac
}
