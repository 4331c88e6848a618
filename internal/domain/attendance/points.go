package attendance

// PointsTable is the static lookup of per-event-type award values on the two
// independent scales (AET and SAE) and the degree-credit fragments each event
// type contributes. Values are policy constants, not derived data.
type PointsTable struct {
	rows    map[EventType]pointsRow
	credits map[EventType][]DegreeCredit
}

type pointsRow struct {
	baseA int // AET points
	baseB int // SAE points
}

// DefaultPointsTable returns the chapter-wide scoring table.
func DefaultPointsTable() *PointsTable {
	return &PointsTable{
		rows: map[EventType]pointsRow{
			EventTypeMeeting:          {baseA: 10, baseB: 5},
			EventTypeCompetition:      {baseA: 25, baseB: 15},
			EventTypeConference:       {baseA: 20, baseB: 10},
			EventTypeShow:             {baseA: 30, baseB: 20},
			EventTypeCommunityService: {baseA: 15, baseB: 25},
			EventTypeInternship:       {baseA: 20, baseB: 30},
			EventTypeWorkshop:         {baseA: 15, baseB: 10},
			EventTypeFieldTrip:        {baseA: 10, baseB: 10},
		},
		credits: map[EventType][]DegreeCredit{
			EventTypeMeeting: {
				{Tier: TierGreenhand, Category: CategoryActivities, PointsEarned: 1, CompletionPercent: 5},
			},
			EventTypeCompetition: {
				{Tier: TierChapter, Category: CategoryActivities, PointsEarned: 2, CompletionPercent: 10},
				{Tier: TierState, Category: CategoryLeadership, PointsEarned: 1, CompletionPercent: 4},
			},
			EventTypeConference: {
				{Tier: TierChapter, Category: CategoryLeadership, PointsEarned: 2, CompletionPercent: 8},
				{Tier: TierState, Category: CategoryLeadership, PointsEarned: 1, CompletionPercent: 5},
			},
			EventTypeShow: {
				{Tier: TierChapter, Category: CategoryActivities, PointsEarned: 3, CompletionPercent: 12},
				{Tier: TierState, Category: CategorySupervisedHours, PointsEarned: 2, CompletionPercent: 6},
			},
			EventTypeCommunityService: {
				{Tier: TierGreenhand, Category: CategoryCommunityService, PointsEarned: 2, CompletionPercent: 10},
				{Tier: TierChapter, Category: CategoryCommunityService, PointsEarned: 1, CompletionPercent: 5},
			},
			EventTypeInternship: {
				{Tier: TierState, Category: CategorySupervisedHours, PointsEarned: 3, CompletionPercent: 8},
				{Tier: TierAmerican, Category: CategorySupervisedHours, PointsEarned: 1, CompletionPercent: 2},
			},
			EventTypeWorkshop: {
				{Tier: TierGreenhand, Category: CategoryActivities, PointsEarned: 1, CompletionPercent: 4},
			},
			EventTypeFieldTrip: {
				{Tier: TierDiscovery, Category: CategoryActivities, PointsEarned: 1, CompletionPercent: 5},
			},
		},
	}
}

// Lookup returns the base award values for an event type on both scales.
func (t *PointsTable) Lookup(eventType EventType) (baseA, baseB int, err error) {
	row, ok := t.rows[eventType]
	if !ok {
		return 0, 0, ErrUnknownEventType
	}
	return row.baseA, row.baseB, nil
}

// CreditsFor returns a copy of the degree-credit fragments for an event type.
// The copy keeps callers from mutating the shared table.
func (t *PointsTable) CreditsFor(eventType EventType) []DegreeCredit {
	fragments, ok := t.credits[eventType]
	if !ok {
		return nil
	}
	out := make([]DegreeCredit, len(fragments))
	copy(out, fragments)
	return out
}

// KnownTypes returns every event type present in the scoring table.
func (t *PointsTable) KnownTypes() []EventType {
	types := make([]EventType, 0, len(t.rows))
	for et := range t.rows {
		types = append(types, et)
	}
	return types
}
