package obligations

import (
	"sort"
	"time"

	"github.com/taxdesk/taxdesk/internal/business"
)

const (
	zusDueDay       = 10
	incomeTaxDueDay = 20
	vatDueDay       = 25
	annualPITMonth  = time.April
	annualPITDay    = 30
	annualCITMonth  = time.March
	annualCITDay    = 31
	statementMonth  = time.June
	statementDueDay = 30
)

// regimeRule describes the income-tax obligations of one regime.
type regimeRule struct {
	advanceCode  Code
	advanceTitle string
	frequency    Frequency
	annualCode   Code
	annualTitle  string
}

var regimeRules = map[business.TaxRegime]regimeRule{
	business.TaxRegimeFlatRate: {
		advanceCode:  CodePITAdvanceRyczalt,
		advanceTitle: "Ryczałt od przychodów ewidencjonowanych",
		frequency:    FrequencyQuarterly,
		annualCode:   CodePIT28,
		annualTitle:  "Zeznanie roczne PIT-28",
	},
	business.TaxRegimeLinear: {
		advanceCode:  CodePITAdvanceLinear,
		advanceTitle: "Zaliczka na PIT (podatek liniowy)",
		frequency:    FrequencyMonthly,
		annualCode:   CodePIT36L,
		annualTitle:  "Zeznanie roczne PIT-36L",
	},
	business.TaxRegimeProgressive: {
		advanceCode:  CodePITAdvanceScale,
		advanceTitle: "Zaliczka na PIT (skala podatkowa)",
		frequency:    FrequencyMonthly,
		annualCode:   CodePIT36,
		annualTitle:  "Zeznanie roczne PIT-36",
	},
}

// Timeline returns every obligation of profile as of now, sorted ascending by
// due date with undated entries last. It is a pure function of its inputs.
func Timeline(profile business.Profile, now time.Time) []Obligation {
	out := make([]Obligation, 0, 6)

	if profile.IsSoleTrader() {
		out = append(out, Obligation{
			Code:         CodeZUS,
			Title:        "Składki ZUS",
			Description:  "Deklaracja i opłata składek na ubezpieczenia społeczne i zdrowotne za poprzedni miesiąc.",
			Frequency:    FrequencyMonthly,
			DueDate:      ptr(NextDueDate(now, zusDueDay)),
			Channel:      ChannelZUS,
			Applies:      true,
			ExpectedMode: ModeZeroPossible,
		})
		out = append(out, incomeTaxObligations(profile, now)...)
	}

	if profile.IsCorporate() {
		out = append(out, corporateObligations(now)...)
	}

	if vat, ok := vatObligation(profile, now); ok {
		out = append(out, vat)
	}

	sortByDueDate(out)
	return out
}

func incomeTaxObligations(profile business.Profile, now time.Time) []Obligation {
	rule, ok := regimeRules[profile.TaxRegime]
	if !ok {
		return nil
	}
	advanceDue := NextDueDate(now, incomeTaxDueDay)
	description := "Zaliczka za poprzedni miesiąc."
	if rule.frequency == FrequencyQuarterly {
		advanceDue = NextQuarterlyDueDate(now, incomeTaxDueDay)
		description = "Zaliczka za poprzedni kwartał."
	}
	return []Obligation{
		{
			Code:         rule.advanceCode,
			Title:        rule.advanceTitle,
			Description:  description,
			Frequency:    rule.frequency,
			DueDate:      ptr(advanceDue),
			Channel:      ChannelTaxPortal,
			Applies:      true,
			ExpectedMode: ModeRequiresActivity,
		},
		{
			Code:         rule.annualCode,
			Title:        rule.annualTitle,
			Description:  "Rozliczenie roczne podatku dochodowego za rok poprzedni.",
			Frequency:    FrequencyYearly,
			DueDate:      ptr(YearlyDueDate(now.Year(), annualPITMonth, annualPITDay, now.Location())),
			Channel:      ChannelTaxPortal,
			Applies:      true,
			ExpectedMode: ModeRequiresActivity,
		},
	}
}

func corporateObligations(now time.Time) []Obligation {
	return []Obligation{
		{
			Code:         CodeCITAdvance,
			Title:        "Zaliczka na CIT",
			Description:  "Miesięczna zaliczka na podatek dochodowy od osób prawnych.",
			Frequency:    FrequencyMonthly,
			DueDate:      ptr(NextDueDate(now, incomeTaxDueDay)),
			Channel:      ChannelTaxPortal,
			Applies:      true,
			ExpectedMode: ModeRequiresActivity,
		},
		{
			Code:         CodeCIT8,
			Title:        "Zeznanie roczne CIT-8",
			Description:  "Roczne zeznanie podatku dochodowego od osób prawnych.",
			Frequency:    FrequencyYearly,
			DueDate:      ptr(YearlyDueDate(now.Year(), annualCITMonth, annualCITDay, now.Location())),
			Channel:      ChannelTaxPortal,
			Applies:      true,
			ExpectedMode: ModeRequiresActivity,
		},
		{
			Code:         CodeFinancialStatement,
			Title:        "Sprawozdanie finansowe",
			Description:  "Złożenie rocznego sprawozdania finansowego do Repozytorium Dokumentów Finansowych KRS.",
			Frequency:    FrequencyYearly,
			DueDate:      ptr(YearlyDueDate(now.Year(), statementMonth, statementDueDay, now.Location())),
			Channel:      ChannelCompanyRegistry,
			Applies:      true,
			ExpectedMode: ModeZeroPossible,
		},
	}
}

// vatObligation returns the VAT filing, the exemption placeholder, or nothing
// when VAT is explicitly not applicable.
func vatObligation(profile business.Profile, now time.Time) (Obligation, bool) {
	if !profile.OwesVAT() {
		if !profile.VATDefined() {
			return Obligation{}, false
		}
		return Obligation{
			Code:         CodeVATExempt,
			Title:        "Zwolnienie z VAT",
			Description:  "Firma korzysta ze zwolnienia z VAT; deklaracje JPK_V7 nie są składane.",
			Frequency:    FrequencyOneOff,
			DueDate:      nil,
			Channel:      ChannelNone,
			Applies:      false,
			ExpectedMode: ModeInformational,
		}, true
	}
	if profile.EffectiveVATCadence() == business.VATQuarterly {
		return Obligation{
			Code:         CodeJPKV7K,
			Title:        "JPK_V7K",
			Description:  "Kwartalna deklaracja VAT z ewidencją.",
			Frequency:    FrequencyQuarterly,
			DueDate:      ptr(NextQuarterlyDueDate(now, vatDueDay)),
			Channel:      ChannelTaxPortal,
			Applies:      true,
			ExpectedMode: ModeZeroPossible,
		}, true
	}
	return Obligation{
		Code:         CodeJPKV7M,
		Title:        "JPK_V7M",
		Description:  "Miesięczna deklaracja VAT z ewidencją.",
		Frequency:    FrequencyMonthly,
		DueDate:      ptr(NextDueDate(now, vatDueDay)),
		Channel:      ChannelTaxPortal,
		Applies:      true,
		ExpectedMode: ModeZeroPossible,
	}, true
}

// sortByDueDate orders dated obligations ascending and keeps undated ones
// after them in declaration order.
func sortByDueDate(list []Obligation) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].DueDate, list[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// Upcoming keeps schedulable obligations due within the window after now.
func Upcoming(list []Obligation, now time.Time, within time.Duration) []Obligation {
	limit := now.Add(within)
	out := make([]Obligation, 0, len(list))
	for _, o := range list {
		if !o.Schedulable() {
			continue
		}
		if o.DueDate.Before(now) || o.DueDate.After(limit) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func ptr(t time.Time) *time.Time {
	return &t
}
