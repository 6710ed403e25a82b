package consultation

import (
	"time"

	"clinical-scribe/internal/notegen"
)

// The six encounter types offered on the recording form.
const (
	EncounterInitial    = "Initial Consultation"
	EncounterFollowUp   = "Follow-up"
	EncounterAnnual     = "Annual Check-up"
	EncounterEmergency  = "Emergency"
	EncounterSpecialist = "Specialist Consultation"
	EncounterProcedure  = "Procedure"
)

var encounterTypes = map[string]bool{
	EncounterInitial:    true,
	EncounterFollowUp:   true,
	EncounterAnnual:     true,
	EncounterEmergency:  true,
	EncounterSpecialist: true,
	EncounterProcedure:  true,
}

func ValidEncounterType(t string) bool {
	return encounterTypes[t]
}

// Record is one processed consultation. Records are appended to the log
// and never mutated; the generated note is absent when note generation
// failed after a successful transcription.
type Record struct {
	ID            int64                  `json:"id"` // monotonic unix-milli timestamp
	PatientName   string                 `json:"patientName"`
	EncounterType string                 `json:"encounterType"`
	Date          string                 `json:"date"` // ISO-8601
	Transcription string                 `json:"transcription"`
	Notes         string                 `json:"notes,omitempty"`
	GeneratedNote *notegen.GeneratedNote `json:"generatedNote,omitempty"`
}

func newRecordID(now time.Time) int64 {
	return now.UnixMilli()
}
