package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

func TestOutcomeMetadataEmptyIsZeroValue(t *testing.T) {
	o := &Outcome{Result: RunResult{}}
	md, err := o.Metadata()
	require.NoError(t, err)
	assert.Equal(t, WorkflowMetadata{}, md)
}

func TestOutcomeMetadataParsesCronTrigger(t *testing.T) {
	o := &Outcome{Result: RunResult{Metadata: []byte(`{
		"name": "nightly-report",
		"entry": "/w/terminator.ts",
		"trigger": {"type": "cron", "schedule": "0 2 * * *", "timezone": "UTC", "enabled": true}
	}`)}}

	md, err := o.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "nightly-report", md.Name)
	require.NotNil(t, md.Trigger)
	assert.Equal(t, TriggerCron, md.Trigger.Type)
	assert.Equal(t, "0 2 * * *", md.Trigger.Schedule)
	assert.Equal(t, "UTC", md.Trigger.Timezone)
	assert.True(t, md.Trigger.Enabled)
}

func TestOutcomeMetadataRejectsCronWithoutSchedule(t *testing.T) {
	o := &Outcome{Result: RunResult{Metadata: []byte(`{"trigger":{"type":"cron","enabled":true}}`)}}
	_, err := o.Metadata()
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindInvalidArgument, coreerrors.KindOf(err))
}

func TestOutcomeMetadataRejectsUnknownTriggerType(t *testing.T) {
	o := &Outcome{Result: RunResult{Metadata: []byte(`{"trigger":{"type":"poll","enabled":true}}`)}}
	_, err := o.Metadata()
	require.Error(t, err)
}

func TestValidateTriggerAcceptsManualAndWebhook(t *testing.T) {
	assert.NoError(t, ValidateTrigger(&Trigger{Type: TriggerManual, Enabled: true}))
	assert.NoError(t, ValidateTrigger(&Trigger{Type: TriggerWebhook, Path: "/hooks/run", Enabled: true}))
}
