package invoicing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentTermCategory classifies a free-text payment term label
type PaymentTermCategory string

const (
	PaymentTermNetDays     PaymentTermCategory = "NET_DAYS"      // NET 30 DAYS BY TT
	PaymentTermAMSDays     PaymentTermCategory = "AMS_DAYS"      // After Month Start - N days
	PaymentTermAdvance     PaymentTermCategory = "ADVANCE"       // TT IN ADVANCE, COD
	PaymentTermSplit       PaymentTermCategory = "SPLIT_PAYMENT" // 50% DP, 50% NET 30
	PaymentTermSpecialDate PaymentTermCategory = "SPECIAL_DATE"  // 25th of month, EOM
	PaymentTermAfterEvent  PaymentTermCategory = "AFTER_EVENT"   // AFTER DELIVERY
	PaymentTermOther       PaymentTermCategory = "OTHER"
)

// String returns the string representation of the category
func (c PaymentTermCategory) String() string {
	return string(c)
}

// PaymentTerm is a catalogue row of the payment_terms table
type PaymentTerm struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name        string     `gorm:"type:varchar(200);not null"`
	Description string     `gorm:"type:varchar(500)"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
	DeletedAt   *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (PaymentTerm) TableName() string {
	return "payment_terms"
}

// Days derives the approximate day count for the term label
func (t PaymentTerm) Days() int {
	return DaysFromTermName(t.Name)
}

// DueDate is the outcome of parsing a payment term against an invoice date.
// Date is nil when no date could be derived at all; NeedsReview marks results
// the user must confirm or adjust before relying on them.
type DueDate struct {
	Date        *time.Time
	Category    PaymentTermCategory
	Explanation string
	NeedsReview bool
}

var (
	netDaysPattern = regexp.MustCompile(`NET\s+(\d+)\s*DAYS?`)
	amsDaysPattern = regexp.MustCompile(`AMS\s+(\d+)\s*DAYS?`)
	netAnyPattern  = regexp.MustCompile(`NET\s+(\d+)`)
	eomPattern     = regexp.MustCompile(`EOM\s*(\d+)`)
	intPattern     = regexp.MustCompile(`\d+`)
)

var advanceKeywords = []string{"ADVANCE", "COD", "CIA", "PREPAID"}
var specialDateKeywords = []string{"25TH", "EOM", "MOA", "END OF MONTH"}
var eventKeywords = []string{"AFTER", "BEFORE", "UPON"}

// termRule pairs a match predicate with the category it assigns and the
// handler computing a due date for that category. The rules form an ordered
// classifier: the first matching rule wins, which makes classification
// priority an explicit, testable contract. Percentage/colon markers must be
// checked before NET so a "50% DP, 50% NET 30" label is treated as a split
// payment rather than a plain NET term.
type termRule struct {
	category PaymentTermCategory
	matches  func(name, upper string) bool
	dueAt    func(name, upper, description string, invoiceDate time.Time) DueDate
}

var termRules = []termRule{
	{
		category: PaymentTermSplit,
		matches: func(name, upper string) bool {
			return strings.Contains(name, "%") || strings.Contains(name, ":")
		},
		dueAt: splitDueDate,
	},
	{
		category: PaymentTermNetDays,
		matches: func(name, upper string) bool {
			return strings.Contains(upper, "NET") && strings.Contains(upper, "DAYS")
		},
		dueAt: netDueDate,
	},
	{
		category: PaymentTermAMSDays,
		matches: func(name, upper string) bool {
			return strings.Contains(upper, "AMS")
		},
		dueAt: amsDueDate,
	},
	{
		category: PaymentTermAdvance,
		matches: func(name, upper string) bool {
			return containsAny(upper, advanceKeywords)
		},
		dueAt: advanceDueDate,
	},
	{
		category: PaymentTermSpecialDate,
		matches: func(name, upper string) bool {
			return containsAny(upper, specialDateKeywords)
		},
		dueAt: specialDateDueDate,
	},
	{
		category: PaymentTermAfterEvent,
		matches: func(name, upper string) bool {
			return containsAny(upper, eventKeywords)
		},
		dueAt: afterEventDueDate,
	},
}

func containsAny(upper string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// CategorizeTerm classifies a payment term label.
// An empty label falls through to OTHER.
func CategorizeTerm(name string) PaymentTermCategory {
	if strings.TrimSpace(name) == "" {
		return PaymentTermOther
	}
	upper := strings.ToUpper(name)
	for _, rule := range termRules {
		if rule.matches(name, upper) {
			return rule.category
		}
	}
	return PaymentTermOther
}

// CalculateDueDate derives a due date from a payment term label and an
// invoice date. The description participates only in split-payment parsing.
func CalculateDueDate(name string, invoiceDate time.Time, description string) DueDate {
	if strings.TrimSpace(name) == "" {
		return DueDate{
			Category:    PaymentTermOther,
			Explanation: "Payment term not specified",
			NeedsReview: true,
		}
	}
	upper := strings.ToUpper(name)
	for _, rule := range termRules {
		if rule.matches(name, upper) {
			return rule.dueAt(name, upper, description, invoiceDate)
		}
	}
	return otherDueDate(invoiceDate)
}

func netDueDate(name, upper, _ string, invoiceDate time.Time) DueDate {
	days, ok := extractInt(netDaysPattern, upper)
	if !ok {
		return DueDate{
			Category:    PaymentTermNetDays,
			Explanation: fmt.Sprintf("Could not parse NET days from: %s", name),
			NeedsReview: true,
		}
	}
	due := invoiceDate.AddDate(0, 0, days)
	return DueDate{
		Date:        &due,
		Category:    PaymentTermNetDays,
		Explanation: fmt.Sprintf("Invoice date + %d days", days),
	}
}

// amsDueDate anchors to the first day of the month following the invoice
// month: these terms track a billing-cycle boundary, not the invoice date.
func amsDueDate(name, upper, _ string, invoiceDate time.Time) DueDate {
	days, ok := extractInt(amsDaysPattern, upper)
	if !ok {
		return DueDate{
			Category:    PaymentTermAMSDays,
			Explanation: fmt.Sprintf("Could not parse AMS days from: %s", name),
			NeedsReview: true,
		}
	}
	due := firstOfNextMonth(invoiceDate).AddDate(0, 0, days)
	return DueDate{
		Date:        &due,
		Category:    PaymentTermAMSDays,
		Explanation: fmt.Sprintf("First day of next month + %d days", days),
	}
}

func advanceDueDate(_, _, _ string, invoiceDate time.Time) DueDate {
	due := invoiceDate
	return DueDate{
		Date:        &due,
		Category:    PaymentTermAdvance,
		Explanation: "Payment in advance (due immediately)",
	}
}

// splitDueDate looks for the last NET pattern across label and description:
// the final installment is the one that defines the invoice due date.
// Split terms always need review because intermediate milestones are not
// modelled.
func splitDueDate(name, upper, description string, invoiceDate time.Time) DueDate {
	text := strings.ToUpper(name + " " + description)
	matches := netAnyPattern.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		days, err := strconv.Atoi(matches[len(matches)-1][1])
		if err == nil {
			due := invoiceDate.AddDate(0, 0, days)
			return DueDate{
				Date:        &due,
				Category:    PaymentTermSplit,
				Explanation: fmt.Sprintf("Split payment term - final payment: invoice date + %d days", days),
				NeedsReview: true,
			}
		}
	}
	due := invoiceDate.AddDate(0, 0, 30)
	return DueDate{
		Date:        &due,
		Category:    PaymentTermSplit,
		Explanation: "Split payment term - please review payment milestones",
		NeedsReview: true,
	}
}

func specialDateDueDate(name, upper, _ string, invoiceDate time.Time) DueDate {
	switch {
	case strings.Contains(upper, "25TH"):
		due := twentyFifth(invoiceDate)
		return DueDate{
			Date:        &due,
			Category:    PaymentTermSpecialDate,
			Explanation: "Payment due on 25th of month",
			NeedsReview: true,
		}
	case strings.Contains(upper, "EOM"):
		if days, ok := extractInt(eomPattern, upper); ok {
			due := lastOfMonth(invoiceDate).AddDate(0, 0, days)
			return DueDate{
				Date:        &due,
				Category:    PaymentTermSpecialDate,
				Explanation: fmt.Sprintf("End of month + %d days", days),
				NeedsReview: true,
			}
		}
	case strings.Contains(upper, "MOA"):
		if days, ok := extractInt(intPattern, name); ok {
			due := invoiceDate.AddDate(0, 0, days)
			return DueDate{
				Date:        &due,
				Category:    PaymentTermSpecialDate,
				Explanation: fmt.Sprintf("MOA: invoice date + %d days", days),
				NeedsReview: true,
			}
		}
	}
	return DueDate{
		Category:    PaymentTermSpecialDate,
		Explanation: "Special date term - please specify due date",
		NeedsReview: true,
	}
}

func afterEventDueDate(name, _, _ string, invoiceDate time.Time) DueDate {
	due := invoiceDate.AddDate(0, 0, 30)
	return DueDate{
		Date:        &due,
		Category:    PaymentTermAfterEvent,
		Explanation: fmt.Sprintf("Event-based payment (%s) - please specify due date", name),
		NeedsReview: true,
	}
}

func otherDueDate(invoiceDate time.Time) DueDate {
	due := invoiceDate.AddDate(0, 0, 30)
	return DueDate{
		Date:        &due,
		Category:    PaymentTermOther,
		Explanation: "Custom payment term - please review and adjust",
		NeedsReview: true,
	}
}

// DaysFromTermName derives just a day count from a term label for call sites
// that predate true due-date calculation. It dispatches on the term category:
// NET terms yield their parsed day count, AMS terms approximate the
// month-start offset as N+15, advance terms are due immediately and split
// terms take the final NET installment. Every other category, and any term
// whose day count cannot be parsed, defaults to 30.
func DaysFromTermName(name string) int {
	upper := strings.ToUpper(name)
	switch CategorizeTerm(name) {
	case PaymentTermNetDays:
		if days, ok := extractInt(netDaysPattern, upper); ok {
			return days
		}
	case PaymentTermAMSDays:
		if days, ok := extractInt(amsDaysPattern, upper); ok {
			return days + 15
		}
	case PaymentTermAdvance:
		return 0
	case PaymentTermSplit:
		if matches := netDaysPattern.FindAllStringSubmatch(upper, -1); len(matches) > 0 {
			if days, err := strconv.Atoi(matches[len(matches)-1][1]); err == nil {
				return days
			}
		}
	}
	return 30
}

func extractInt(pattern *regexp.Regexp, text string) (int, bool) {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	group := match[0]
	if len(match) > 1 {
		group = match[1]
	}
	n, err := strconv.Atoi(group)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstOfNextMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, 1, 0)
}

func lastOfMonth(d time.Time) time.Time {
	return firstOfNextMonth(d).AddDate(0, 0, -1)
}

func twentyFifth(invoiceDate time.Time) time.Time {
	if invoiceDate.Day() <= 25 {
		return time.Date(invoiceDate.Year(), invoiceDate.Month(), 25, 0, 0, 0, 0, invoiceDate.Location())
	}
	return time.Date(invoiceDate.Year(), invoiceDate.Month(), 25, 0, 0, 0, 0, invoiceDate.Location()).AddDate(0, 1, 0)
}
