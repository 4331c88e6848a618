package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPointsTableLookup(t *testing.T) {
	table := DefaultPointsTable()

	tests := []struct {
		et    EventType
		baseA int
		baseB int
	}{
		{EventTypeMeeting, 10, 5},
		{EventTypeCompetition, 25, 15},
		{EventTypeConference, 20, 10},
		{EventTypeShow, 30, 20},
		{EventTypeCommunityService, 15, 25},
		{EventTypeInternship, 20, 30},
		{EventTypeWorkshop, 15, 10},
		{EventTypeFieldTrip, 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.et.String(), func(t *testing.T) {
			a, b, err := table.Lookup(tc.et)
			assert.NoError(t, err)
			assert.Equal(t, tc.baseA, a)
			assert.Equal(t, tc.baseB, b)
		})
	}
}

func TestLookupUnknownEventType(t *testing.T) {
	table := DefaultPointsTable()

	_, _, err := table.Lookup(EventType("karaoke"))
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestCreditsForReturnsCopy(t *testing.T) {
	table := DefaultPointsTable()

	first := table.CreditsFor(EventTypeCompetition)
	assert.Len(t, first, 2)

	first[0].PointsEarned = 999

	second := table.CreditsFor(EventTypeCompetition)
	assert.Equal(t, 2, second[0].PointsEarned)
}

func TestCreditsForUnknownType(t *testing.T) {
	table := DefaultPointsTable()
	assert.Nil(t, table.CreditsFor(EventType("karaoke")))
}

func TestKnownTypesCoversScoringTable(t *testing.T) {
	table := DefaultPointsTable()

	types := table.KnownTypes()
	assert.Len(t, types, 8)
	for _, et := range types {
		assert.True(t, et.IsValid())
	}
}
