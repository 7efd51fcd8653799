// Package setup resolves how far a business has progressed with its
// bookkeeping setup and what it should do next.
package setup

import (
	"github.com/taxdesk/taxdesk/internal/obligations"
	"github.com/taxdesk/taxdesk/internal/periods"
)

// Stage is the coarse lifecycle classification of a business.
type Stage string

const (
	StageEmpty                Stage = "empty"
	StageConfiguredNoActivity Stage = "configured_no_activity"
	StageActivityUnposted     Stage = "activity_unposted"
	StageActive               Stage = "active"
)

// MissingCode identifies a missing piece of configuration.
type MissingCode string

const (
	MissingTaxType           MissingCode = "MISSING_TAX_TYPE"
	MissingVATStatus         MissingCode = "MISSING_VAT_STATUS"
	MissingStartDate         MissingCode = "MISSING_START_DATE"
	MissingRyczaltCategories MissingCode = "MISSING_RYCZALT_CATEGORIES"
	MissingCOA               MissingCode = "MISSING_COA"
	MissingPeriod            MissingCode = "MISSING_PERIOD"
)

// ActionCode identifies a recommended next step.
type ActionCode string

const (
	ActionSetTaxType          ActionCode = "SET_TAX_TYPE"
	ActionSetStartDate        ActionCode = "SET_START_DATE"
	ActionSetVATStatus        ActionCode = "SET_VAT_STATUS"
	ActionSeedChartOfAccounts ActionCode = "SEED_CHART_OF_ACCOUNTS"
	ActionConfigureCategories ActionCode = "CONFIGURE_RYCZALT_CATEGORIES"
	ActionOpenFirstPeriod     ActionCode = "OPEN_FIRST_PERIOD"
	ActionPostDocuments       ActionCode = "POST_DOCUMENTS"
	ActionAddFirstInvoice     ActionCode = "ADD_FIRST_INVOICE"
	ActionConnectBank         ActionCode = "CONNECT_BANK"
	ActionReviewObligations   ActionCode = "REVIEW_OBLIGATIONS"
)

// Action is a recommended step. Higher priority is more urgent.
type Action struct {
	Code     ActionCode `json:"code"`
	Title    string     `json:"title"`
	Priority int        `json:"priority"`
	Href     string     `json:"href"`
}

// Signals is a read-only snapshot of activity counts for one business.
type Signals struct {
	Invoices           int                  `json:"invoices"`
	BankTransactions   int                  `json:"bank_transactions"`
	PostedLines        int                  `json:"posted_lines"`
	LedgerEntries      int                  `json:"ledger_entries"`
	FinancialEvents    int                  `json:"financial_events"`
	RevenueCategories  int                  `json:"revenue_categories"`
	AccountingPeriods  int                  `json:"accounting_periods"`
	LatestPeriodStatus periods.LatestStatus `json:"latest_period_status"`
}

// HasActivity reports whether any invoice or bank transaction exists.
func (s Signals) HasActivity() bool {
	return s.Invoices > 0 || s.BankTransactions > 0
}

// PostingStarted reports whether anything has reached the ledger.
func (s Signals) PostingStarted() bool {
	return s.PostedLines > 0 || s.LedgerEntries > 0
}

// State is the derived setup snapshot. It is never persisted.
type State struct {
	Stage              Stage                    `json:"stage"`
	MissingSetup       []MissingCode            `json:"missing_setup"`
	RecommendedActions []Action                 `json:"recommended_actions"`
	Obligations        []obligations.Obligation `json:"obligations_timeline"`
	Signals            Signals                  `json:"signals"`
}

// Missing reports whether code is part of the missing-setup set.
func (s State) Missing(code MissingCode) bool {
	for _, c := range s.MissingSetup {
		if c == code {
			return true
		}
	}
	return false
}
