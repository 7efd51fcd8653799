package setup

import (
	"sort"
	"time"

	"github.com/taxdesk/taxdesk/internal/business"
	"github.com/taxdesk/taxdesk/internal/obligations"
)

// ResolveStage classifies the business. Posting activity dominates: once
// anything is posted the business is active regardless of other signals.
func ResolveStage(profile business.Profile, signals Signals) Stage {
	switch {
	case signals.PostingStarted():
		return StageActive
	case signals.HasActivity():
		return StageActivityUnposted
	case profile.MinimallyConfigured():
		return StageConfiguredNoActivity
	default:
		return StageEmpty
	}
}

// DetectMissing evaluates every missing-setup check independently.
func DetectMissing(profile business.Profile, signals Signals) []MissingCode {
	missing := make([]MissingCode, 0, 6)
	if profile.IsSoleTrader() && profile.TaxRegime == "" {
		missing = append(missing, MissingTaxType)
	}
	if !profile.VATDefined() {
		missing = append(missing, MissingVATStatus)
	}
	if profile.BusinessStart == nil {
		missing = append(missing, MissingStartDate)
	}
	if profile.TaxRegime == business.TaxRegimeFlatRate && signals.RevenueCategories == 0 {
		missing = append(missing, MissingRyczaltCategories)
	}
	// Zero ledger entries stands in for an unseeded chart of accounts.
	if profile.IsCorporate() && signals.LedgerEntries == 0 {
		missing = append(missing, MissingCOA)
	}
	if signals.AccountingPeriods == 0 {
		missing = append(missing, MissingPeriod)
	}
	return missing
}

type catalogEntry struct {
	action  Action
	missing MissingCode
	stages  []Stage
}

func (e catalogEntry) applies(stage Stage, missing map[MissingCode]bool) bool {
	if e.missing != "" {
		return missing[e.missing]
	}
	for _, s := range e.stages {
		if s == stage {
			return true
		}
	}
	return false
}

var actionCatalog = []catalogEntry{
	{action: Action{Code: ActionSetTaxType, Title: "Wybierz formę opodatkowania", Priority: 100, Href: "/settings/business#tax"}, missing: MissingTaxType},
	{action: Action{Code: ActionSetStartDate, Title: "Uzupełnij datę rozpoczęcia działalności", Priority: 95, Href: "/settings/business#start"}, missing: MissingStartDate},
	{action: Action{Code: ActionSetVATStatus, Title: "Określ status VAT", Priority: 90, Href: "/settings/business#vat"}, missing: MissingVATStatus},
	{action: Action{Code: ActionSeedChartOfAccounts, Title: "Utwórz plan kont", Priority: 85, Href: "/accounting/chart-of-accounts"}, missing: MissingCOA},
	{action: Action{Code: ActionConfigureCategories, Title: "Skonfiguruj stawki ryczałtu", Priority: 80, Href: "/settings/ryczalt"}, missing: MissingRyczaltCategories},
	{action: Action{Code: ActionOpenFirstPeriod, Title: "Otwórz pierwszy okres rozliczeniowy", Priority: 75, Href: "/accounting/periods"}, missing: MissingPeriod},
	{action: Action{Code: ActionPostDocuments, Title: "Zaksięguj oczekujące dokumenty", Priority: 70, Href: "/accounting/unposted"}, stages: []Stage{StageActivityUnposted}},
	{action: Action{Code: ActionAddFirstInvoice, Title: "Wystaw pierwszą fakturę", Priority: 60, Href: "/invoices/new"}, stages: []Stage{StageEmpty, StageConfiguredNoActivity}},
	{action: Action{Code: ActionConnectBank, Title: "Zaimportuj wyciąg bankowy", Priority: 50, Href: "/bank/import"}, stages: []Stage{StageEmpty, StageConfiguredNoActivity}},
	{action: Action{Code: ActionReviewObligations, Title: "Sprawdź nadchodzące terminy", Priority: 10, Href: "/obligations"}, stages: []Stage{StageActive}},
}

// RecommendActions selects catalog entries gated by stage or missing code and
// orders them by descending priority, ties kept in catalog order.
func RecommendActions(stage Stage, missing []MissingCode) []Action {
	set := make(map[MissingCode]bool, len(missing))
	for _, m := range missing {
		set[m] = true
	}
	out := make([]Action, 0, len(actionCatalog))
	for _, entry := range actionCatalog {
		if entry.applies(stage, set) {
			out = append(out, entry.action)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Resolve derives the full setup state. It is pure in its arguments.
func Resolve(profile business.Profile, signals Signals, now time.Time) State {
	stage := ResolveStage(profile, signals)
	missing := DetectMissing(profile, signals)
	return State{
		Stage:              stage,
		MissingSetup:       missing,
		RecommendedActions: RecommendActions(stage, missing),
		Obligations:        obligations.Timeline(profile, now),
		Signals:            signals,
	}
}
