package workflow

import (
	"encoding/json"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
)

// Metadata parses the Outcome's raw metadata JSON into a WorkflowMetadata,
// validating any declared trigger. A workflow that declares no metadata
// object at all parses to a zero-value WorkflowMetadata, not an error.
func (o *Outcome) Metadata() (WorkflowMetadata, error) {
	return parseMetadata(o.Result.Metadata)
}

func parseMetadata(raw json.RawMessage) (WorkflowMetadata, error) {
	var md WorkflowMetadata
	if len(raw) == 0 {
		return md, nil
	}
	if err := json.Unmarshal(raw, &md); err != nil {
		return WorkflowMetadata{}, coreerrors.SerializationError("failed to parse workflow metadata", err)
	}
	if md.Trigger != nil {
		if err := ValidateTrigger(md.Trigger); err != nil {
			return WorkflowMetadata{}, err
		}
	}
	return md, nil
}

// ValidateTrigger checks a declared trigger's shape-specific required
// fields: Cron needs a non-empty schedule, Webhook and Manual carry only an
// enabled flag.
func ValidateTrigger(t *Trigger) error {
	switch t.Type {
	case TriggerCron:
		if t.Schedule == "" {
			return coreerrors.InvalidArgument("cron trigger requires a non-empty schedule", map[string]any{"type": string(t.Type)})
		}
	case TriggerManual, TriggerWebhook:
		// no required fields beyond Enabled
	case "":
		return coreerrors.InvalidArgument("trigger is missing a type", nil)
	default:
		return coreerrors.InvalidArgument("unknown trigger type", map[string]any{"type": string(t.Type)})
	}
	return nil
}
