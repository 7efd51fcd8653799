package obligations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdesk/taxdesk/internal/business"
)

func byCode(list []Obligation) map[Code]Obligation {
	out := make(map[Code]Obligation, len(list))
	for _, o := range list {
		out[o.Code] = o
	}
	return out
}

func codes(list []Obligation) []Code {
	out := make([]Code, 0, len(list))
	for _, o := range list {
		out = append(out, o.Code)
	}
	return out
}

func TestTimelineSoleTraderFlatRateVATExempt(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	profile := business.Profile{
		EntityKind:    business.EntitySoleTrader,
		TaxRegime:     business.TaxRegimeFlatRate,
		VATStatus:     business.VATExempt,
		BusinessStart: &start,
	}
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	got := Timeline(profile, now)
	require.Equal(t, []Code{CodeZUS, CodePITAdvanceRyczalt, CodePIT28, CodeVATExempt}, codes(got))

	idx := byCode(got)
	assert.Equal(t, endOf(2024, time.July, 10), *idx[CodeZUS].DueDate)
	assert.Equal(t, ModeZeroPossible, idx[CodeZUS].ExpectedMode)
	assert.Equal(t, ChannelZUS, idx[CodeZUS].Channel)

	assert.Equal(t, endOf(2024, time.July, 20), *idx[CodePITAdvanceRyczalt].DueDate)
	assert.Equal(t, FrequencyQuarterly, idx[CodePITAdvanceRyczalt].Frequency)
	assert.Equal(t, ModeRequiresActivity, idx[CodePITAdvanceRyczalt].ExpectedMode)

	assert.Equal(t, endOf(2025, time.April, 30), *idx[CodePIT28].DueDate)
	assert.Equal(t, ModeRequiresActivity, idx[CodePIT28].ExpectedMode)

	exempt := idx[CodeVATExempt]
	assert.False(t, exempt.Applies)
	assert.Nil(t, exempt.DueDate)
	assert.Equal(t, ModeInformational, exempt.ExpectedMode)
	assert.False(t, exempt.Schedulable())
}

func TestTimelineCorporateVATMonthly(t *testing.T) {
	profile := business.Profile{
		EntityKind: business.EntityLLC,
		TaxRegime:  business.TaxRegimeFlatRate,
		VATStatus:  business.VATActive,
		VATCadence: business.VATMonthly,
	}
	now := time.Date(2024, 11, 5, 8, 0, 0, 0, time.UTC)

	got := Timeline(profile, now)
	require.Equal(t, []Code{CodeCITAdvance, CodeJPKV7M, CodeCIT8, CodeFinancialStatement}, codes(got))

	idx := byCode(got)
	assert.Equal(t, endOf(2024, time.December, 20), *idx[CodeCITAdvance].DueDate)
	assert.Equal(t, endOf(2024, time.December, 25), *idx[CodeJPKV7M].DueDate)
	assert.Equal(t, endOf(2025, time.March, 31), *idx[CodeCIT8].DueDate)
	assert.Equal(t, endOf(2025, time.June, 30), *idx[CodeFinancialStatement].DueDate)
	assert.Equal(t, ChannelCompanyRegistry, idx[CodeFinancialStatement].Channel)
	assert.Equal(t, ModeRequiresActivity, idx[CodeCITAdvance].ExpectedMode)
	_, hasZUS := idx[CodeZUS]
	assert.False(t, hasZUS, "corporate entities do not get the sole-trader ZUS entry")
}

func TestTimelineRegimeTable(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		regime    business.TaxRegime
		advance   Code
		frequency Frequency
		annual    Code
		due       time.Time
	}{
		{business.TaxRegimeFlatRate, CodePITAdvanceRyczalt, FrequencyQuarterly, CodePIT28, endOf(2024, time.April, 20)},
		{business.TaxRegimeLinear, CodePITAdvanceLinear, FrequencyMonthly, CodePIT36L, endOf(2024, time.April, 20)},
		{business.TaxRegimeProgressive, CodePITAdvanceScale, FrequencyMonthly, CodePIT36, endOf(2024, time.April, 20)},
	}
	for _, tc := range cases {
		idx := byCode(Timeline(business.Profile{EntityKind: business.EntitySoleTrader, TaxRegime: tc.regime, VATStatus: business.VATExempt}, now))
		advance, ok := idx[tc.advance]
		require.True(t, ok, string(tc.regime))
		assert.Equal(t, tc.frequency, advance.Frequency)
		assert.Equal(t, tc.due, *advance.DueDate)
		annual, ok := idx[tc.annual]
		require.True(t, ok, string(tc.regime))
		assert.Equal(t, endOf(2025, time.April, 30), *annual.DueDate)
	}
}

func TestTimelineWithoutRegimeHasNoIncomeTax(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, regime := range []business.TaxRegime{"", business.TaxRegimeNone} {
		got := Timeline(business.Profile{EntityKind: business.EntitySoleTrader, TaxRegime: regime, VATStatus: business.VATNotApplicable}, now)
		assert.Equal(t, []Code{CodeZUS}, codes(got))
	}
}

func TestTimelineQuarterlyVAT(t *testing.T) {
	now := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)
	idx := byCode(Timeline(business.Profile{EntityKind: business.EntityJointStock, VATStatus: business.VATActive, VATCadence: business.VATQuarterly}, now))
	vat, ok := idx[CodeJPKV7K]
	require.True(t, ok)
	assert.Equal(t, endOf(2024, time.October, 25), *vat.DueDate)
}

func TestTimelineUndecidedVATFilesMonthly(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	idx := byCode(Timeline(business.Profile{EntityKind: business.EntityLLC}, now))
	require.Contains(t, idx, CodeJPKV7M)
	assert.NotContains(t, idx, CodeVATExempt)
	assert.Equal(t, endOf(2024, time.July, 25), *idx[CodeJPKV7M].DueDate)

	idx = byCode(Timeline(business.Profile{EntityKind: business.EntityLLC, VATStatus: business.VATNotApplicable}, now))
	assert.NotContains(t, idx, CodeJPKV7M)
	assert.NotContains(t, idx, CodeVATExempt)
}

func TestTimelineIsDeterministic(t *testing.T) {
	profile := business.Profile{EntityKind: business.EntitySoleTrader, TaxRegime: business.TaxRegimeLinear, VATStatus: business.VATExempt}
	now := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	first := Timeline(profile, now)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Timeline(profile, now))
	}
}

func TestTimelineSortInvariant(t *testing.T) {
	profiles := []business.Profile{
		{EntityKind: business.EntitySoleTrader, TaxRegime: business.TaxRegimeFlatRate, VATStatus: business.VATExempt},
		{EntityKind: business.EntitySoleTrader, TaxRegime: business.TaxRegimeProgressive, VATStatus: business.VATActive, VATCadence: business.VATQuarterly},
		{EntityKind: business.EntityLLC, VATStatus: business.VATExempt},
		{EntityKind: business.EntityJointStock, VATStatus: business.VATActive},
	}
	for month := time.January; month <= time.December; month++ {
		now := time.Date(2024, month, 17, 0, 0, 0, 0, time.UTC)
		for _, p := range profiles {
			list := Timeline(p, now)
			seenUndated := false
			for i, o := range list {
				if o.DueDate == nil {
					seenUndated = true
					continue
				}
				require.False(t, seenUndated, "dated obligation after undated one")
				if i > 0 && list[i-1].DueDate != nil {
					require.False(t, o.DueDate.Before(*list[i-1].DueDate))
				}
				require.True(t, o.DueDate.After(now))
			}
		}
	}
}

func TestUpcomingSkipsInformationalEntries(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	list := Timeline(business.Profile{EntityKind: business.EntitySoleTrader, TaxRegime: business.TaxRegimeFlatRate, VATStatus: business.VATExempt}, now)
	got := Upcoming(list, now, 40*24*time.Hour)
	assert.Equal(t, []Code{CodeZUS, CodePITAdvanceRyczalt}, codes(got))
}
