package followup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/followup/internal/routing"
	"github.com/JaimeStill/followup/pkg/storage"
)

type transcript struct {
	PatientID  string            `json:"patient_id"`
	SessionID  string            `json:"session_id"`
	Transcript string            `json:"transcript,omitempty"`
	Evidence   routing.Evidence  `json:"evidence"`
	Advisory   *routing.Advisory `json:"advisory,omitempty"`
	Decision   routing.Decision  `json:"decision"`
}

// TranscriptKey is the blob key an interaction is archived under. Ids are
// not cleaned, so traversal attempts fail storage key validation.
func TranscriptKey(patientID, sessionID string) string {
	return "transcripts/" + patientID + "/" + sessionID + ".json"
}

func archive(ctx context.Context, store storage.System, t transcript) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	key := TranscriptKey(t.PatientID, t.SessionID)
	if err := store.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}
	return nil
}
