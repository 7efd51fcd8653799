package posting

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPartitionsEveryDocument(t *testing.T) {
	docs := []Document{
		blockedDoc("FV/4", 4, ReasonLockedPeriod),
		readyDoc("FV/1", 1, true),
		blockedDoc("FV/2", 2, ReasonMissingCategory),
		readyDoc("FV/3", 3, false),
		blockedDoc("FV/5", 5, ReasonPendingAcceptance),
		blockedDoc("FV/6", 6, ReasonMissingPeriod),
		blockedDoc("FV/7", 7, ReasonMissingCategory),
	}

	groups := Classify(docs)

	require.Equal(t, len(docs), groups.Total())
	reasons := make([]Reason, 0, len(groups))
	seen := make(map[string]int)
	for _, g := range groups {
		reasons = append(reasons, g.Reason)
		require.Equal(t, len(g.Documents), g.Count)
		for _, d := range g.Documents {
			seen[d.Number]++
			require.Equal(t, g.Reason, d.Reason())
		}
	}
	for _, d := range docs {
		assert.Equal(t, 1, seen[d.Number], d.Number)
	}
	assert.Equal(t, []Reason{
		ReasonReadyToPost,
		ReasonMissingCategory,
		ReasonMissingPeriod,
		ReasonPendingAcceptance,
		ReasonLockedPeriod,
	}, reasons)
	assert.Equal(t, 2, groups.Counts()[ReasonReadyToPost])
	assert.Equal(t, 2, groups.Counts()[ReasonMissingCategory])

	missing := groups.Bucket(ReasonMissingCategory)
	require.Len(t, missing, 2)
	assert.Equal(t, "FV/2", missing[0].Number)
	assert.Equal(t, "FV/7", missing[1].Number)
}

func TestClassifyEmpty(t *testing.T) {
	groups := Classify(nil)
	assert.Empty(t, groups)
	assert.Zero(t, groups.Total())
	assert.Nil(t, groups.Bucket(ReasonReadyToPost))
}

func TestClassifyKeepsUnknownReasonsAfterCanonical(t *testing.T) {
	groups := Classify([]Document{
		blockedDoc("X/1", 1, Reason("awaiting_ksef")),
		readyDoc("X/2", 2, true),
	})
	require.Len(t, groups, 2)
	assert.Equal(t, ReasonReadyToPost, groups[0].Reason)
	assert.Equal(t, Reason("awaiting_ksef"), groups[1].Reason)
}

func TestParseReason(t *testing.T) {
	r, err := ParseReason(nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	empty := ""
	r, err = ParseReason(&empty)
	require.NoError(t, err)
	assert.Nil(t, r)

	locked := "locked_period"
	r, err = ParseReason(&locked)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, ReasonLockedPeriod, *r)

	bogus := "unknown"
	_, err = ParseReason(&bogus)
	require.ErrorIs(t, err, ErrUnknownReason)
}

func TestMissingAccountIDsDeduplicates(t *testing.T) {
	a, b := readyDoc("A", 1, false), readyDoc("B", 2, false)
	res := BatchResult{Failures: []Failure{
		{DocumentID: a.ID, Code: ErrorMissingAccount},
		{DocumentID: b.ID, Code: ErrorOther},
		{DocumentID: a.ID, Code: ErrorMissingAccount},
	}}
	assert.Equal(t, []uuid.UUID{a.ID}, res.MissingAccountIDs())
	assert.Equal(t, ErrorOther, ParseErrorCode("SOMETHING"))
	assert.Equal(t, ErrorMissingAccount, ParseErrorCode("MISSING_ACCOUNT"))
}
