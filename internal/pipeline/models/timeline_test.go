package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "passage/pkg/domain"
)

func stageEvent(t EventType, stage Stage) TimelineEvent {
	return TimelineEvent{ID: id.NewEventID(), Type: t, Stage: stage}
}

func TestPrependDoesNotMutateReceiver(t *testing.T) {
	original := Timeline{stageEvent(EventSystem, StageRegistered)}

	grown := original.Prepend(stageEvent(EventStageTransition, StageVerified))
	require.Len(t, grown, 2)
	assert.Equal(t, StageVerified, grown[0].Stage)

	require.Len(t, original, 1)
	assert.Equal(t, StageRegistered, original[0].Stage)
}

func TestIsStageRecord(t *testing.T) {
	assert.True(t, stageEvent(EventStageTransition, StageVerified).IsStageRecord())
	assert.True(t, stageEvent(EventSystem, StageVerified).IsStageRecord())
	assert.True(t, stageEvent(EventManualOverride, StageVerified).IsStageRecord())
	assert.False(t, stageEvent(EventNote, StageVerified).IsStageRecord())
	assert.False(t, stageEvent(EventAlert, StageVerified).IsStageRecord())
	assert.False(t, stageEvent(EventDocument, StageVerified).IsStageRecord())
}

func TestStageRecords_FiltersAnnotations(t *testing.T) {
	timeline := Timeline{
		stageEvent(EventNote, StageVerified),
		stageEvent(EventStageTransition, StageVerified),
		stageEvent(EventDocument, StageRegistered),
		stageEvent(EventSystem, StageRegistered),
	}

	records := timeline.StageRecords()
	require.Len(t, records, 2)
	assert.Equal(t, StageVerified, records[0].Stage)
	assert.Equal(t, StageRegistered, records[1].Stage)
}

func TestStageRecords_CollapsesSameStageRuns(t *testing.T) {
	// Hold and resume annotations repeat the current stage; they must not
	// count as extra positions.
	timeline := Timeline{
		stageEvent(EventSystem, StageVerified),
		stageEvent(EventSystem, StageVerified),
		stageEvent(EventStageTransition, StageVerified),
		stageEvent(EventSystem, StageRegistered),
	}

	records := timeline.StageRecords()
	require.Len(t, records, 2)
	assert.Equal(t, StageVerified, records[0].Stage)
	assert.Equal(t, StageRegistered, records[1].Stage)
}

func TestStageRecords_CompensatingEntryCancelsForwardRecord(t *testing.T) {
	compensating := stageEvent(EventManualOverride, StageVerified)
	compensating.Compensating = true

	timeline := Timeline{
		compensating,
		stageEvent(EventStageTransition, StageApplied),
		stageEvent(EventStageTransition, StageVerified),
		stageEvent(EventSystem, StageRegistered),
	}

	// The rollback and the transition it undid both vanish from the
	// effective history.
	records := timeline.StageRecords()
	require.Len(t, records, 2)
	assert.Equal(t, StageVerified, records[0].Stage)
	assert.Equal(t, StageRegistered, records[1].Stage)
}

func TestStageRecords_ConsecutiveRollbacks(t *testing.T) {
	second := stageEvent(EventManualOverride, StageRegistered)
	second.Compensating = true
	first := stageEvent(EventManualOverride, StageVerified)
	first.Compensating = true

	timeline := Timeline{
		second,
		first,
		stageEvent(EventStageTransition, StageApplied),
		stageEvent(EventStageTransition, StageVerified),
		stageEvent(EventSystem, StageRegistered),
	}

	records := timeline.StageRecords()
	require.Len(t, records, 1)
	assert.Equal(t, StageRegistered, records[0].Stage)
}

func TestStageRecords_HoldAfterRollbackStaysBackward(t *testing.T) {
	compensating := stageEvent(EventManualOverride, StageVerified)
	compensating.Compensating = true

	// Advance twice, roll back, then hold and resume. The hold and resume
	// entries sit on the restored position; the next rollback target must
	// still be registered, not the current stage.
	timeline := Timeline{
		stageEvent(EventSystem, StageVerified),
		stageEvent(EventSystem, StageVerified),
		compensating,
		stageEvent(EventStageTransition, StageApplied),
		stageEvent(EventStageTransition, StageVerified),
		stageEvent(EventSystem, StageRegistered),
	}

	records := timeline.StageRecords()
	require.Len(t, records, 2)
	assert.Equal(t, StageVerified, records[0].Stage)
	assert.Equal(t, StageRegistered, records[1].Stage)
}

func TestStageRecords_RollbackAfterHoldClosesWholePosition(t *testing.T) {
	compensating := stageEvent(EventManualOverride, StageRegistered)
	compensating.Compensating = true

	// Advance once, hold, then roll back. The hold annotation and the
	// transition that opened the position vanish together.
	timeline := Timeline{
		compensating,
		stageEvent(EventSystem, StageVerified),
		stageEvent(EventStageTransition, StageVerified),
		stageEvent(EventSystem, StageRegistered),
	}

	records := timeline.StageRecords()
	require.Len(t, records, 1)
	assert.Equal(t, StageRegistered, records[0].Stage)
}

func TestStageRecords_GenuineOverrideCounts(t *testing.T) {
	timeline := Timeline{
		stageEvent(EventManualOverride, StageVisaProcessing),
		stageEvent(EventSystem, StageRegistered),
	}

	records := timeline.StageRecords()
	require.Len(t, records, 2)
	assert.Equal(t, StageVisaProcessing, records[0].Stage)
}
