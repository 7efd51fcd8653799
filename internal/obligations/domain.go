// Package obligations computes the statutory filing and payment timeline of a
// Polish small business from its profile and a reference date.
package obligations

import "time"

// Code is the stable identifier of an obligation.
type Code string

const (
	CodeZUS                Code = "ZUS"
	CodePITAdvanceRyczalt  Code = "PIT_ADVANCE_RYCZALT"
	CodePITAdvanceLinear   Code = "PIT_ADVANCE_LINEAR"
	CodePITAdvanceScale    Code = "PIT_ADVANCE_SCALE"
	CodePIT28              Code = "PIT_28"
	CodePIT36L             Code = "PIT_36L"
	CodePIT36              Code = "PIT_36"
	CodeCITAdvance         Code = "CIT_ADVANCE"
	CodeCIT8               Code = "CIT_8"
	CodeFinancialStatement Code = "FINANCIAL_STATEMENT"
	CodeJPKV7M             Code = "JPK_V7M"
	CodeJPKV7K             Code = "JPK_V7K"
	CodeVATExempt          Code = "VAT_EXEMPT"
)

// Frequency describes how often an obligation recurs.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyOneOff    Frequency = "one_off"
)

// Channel names the submission channel.
type Channel string

const (
	ChannelZUS             Channel = "zus_pue"
	ChannelTaxPortal       Channel = "e_urzad_skarbowy"
	ChannelCompanyRegistry Channel = "krs"
	ChannelNone            Channel = "none"
)

// ExpectedMode tells whether an obligation can be filed without activity.
type ExpectedMode string

const (
	ModeZeroPossible     ExpectedMode = "zero_possible"
	ModeRequiresActivity ExpectedMode = "requires_activity"
	ModeInformational    ExpectedMode = "informational"
)

// Obligation is one entry of the timeline. It has no persisted identity and
// is recomputed on every call. Entries with Applies=false are informational
// and must not be scheduled.
type Obligation struct {
	Code         Code         `json:"code"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Frequency    Frequency    `json:"frequency"`
	DueDate      *time.Time   `json:"due_date"`
	Channel      Channel      `json:"channel"`
	Applies      bool         `json:"applies"`
	ExpectedMode ExpectedMode `json:"expected_mode"`
}

// Schedulable reports whether the obligation has a concrete upcoming date.
func (o Obligation) Schedulable() bool {
	return o.Applies && o.DueDate != nil
}
