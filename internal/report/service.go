package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"

	"clinical-scribe/internal/consultation"
)

type Service struct {
	logger *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	return &Service{logger: logger}
}

// Render produces a printable PDF of a consultation: patient header, the
// SOAP sections when a note was generated, and the raw transcript.
func (s *Service) Render(rec consultation.Record) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	// Try multiple common paths for DejaVuSans across distros.
	fontPaths := []string{
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	}

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF. Please ensure ttf-dejavu is installed. Last error: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 18); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Consultation Report")
	pdf.Br(28)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Patient: %s", rec.PatientName))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Date: %s", rec.Date))
	pdf.Br(15)
	if rec.EncounterType != "" {
		pdf.Cell(nil, fmt.Sprintf("Encounter: %s", rec.EncounterType))
		pdf.Br(15)
	}
	pdf.Br(10)

	writeText := func(text string) {
		if text == "" {
			return
		}
		lines, _ := pdf.SplitText(text, 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
		pdf.Br(3)
	}
	writeLabeled := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		writeText(label + ": " + value)
	}
	writeSection := func(title string) error {
		pdf.Br(8)
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return err
		}
		pdf.Cell(nil, title)
		pdf.Br(16)
		return pdf.SetFont("DejaVu", "", 10)
	}

	if note := rec.GeneratedNote; note != nil {
		soap := note.Result.SoapNote

		if err := writeSection("Subjective"); err != nil {
			return nil, err
		}
		writeLabeled("Chief Complaint", soap.Subjective.ChiefComplaint)
		writeLabeled("History of Present Illness", soap.Subjective.HistoryOfPresentIllness)
		writeLabeled("Past Medical History", soap.Subjective.PastMedicalHistory)
		writeLabeled("Medications", strings.Join(soap.Subjective.Medications, ", "))
		writeLabeled("Allergies", strings.Join(soap.Subjective.Allergies, ", "))
		writeLabeled("Social History", soap.Subjective.SocialHistory)
		writeLabeled("Family History", soap.Subjective.FamilyHistory)

		if err := writeSection("Objective"); err != nil {
			return nil, err
		}
		vitalKeys := make([]string, 0, len(soap.Objective.VitalSigns))
		for k := range soap.Objective.VitalSigns {
			vitalKeys = append(vitalKeys, k)
		}
		sort.Strings(vitalKeys)
		for _, k := range vitalKeys {
			writeLabeled(k, soap.Objective.VitalSigns[k])
		}
		writeText(soap.Objective.PhysicalExamination)

		if err := writeSection("Assessment"); err != nil {
			return nil, err
		}
		for _, d := range soap.Assessment.Diagnoses {
			writeText(fmt.Sprintf("- %s (%s): %s", d.DiagnosisName, d.ICDCode, d.Reasoning))
		}
		writeLabeled("Differential", strings.Join(soap.Assessment.DifferentialDiagnoses, ", "))

		if err := writeSection("Plan"); err != nil {
			return nil, err
		}
		for _, item := range soap.Plan.DiagnosticTests {
			writeText("- Test: " + item)
		}
		for _, item := range soap.Plan.Treatments {
			writeText("- Treatment: " + item)
		}
		for _, item := range soap.Plan.Medications {
			writeText("- Medication: " + item)
		}
		writeLabeled("Patient Education", soap.Plan.PatientEducation)
		writeLabeled("Follow-up", soap.Plan.FollowUp)

		if note.Result.Confidence.OverallConfidence != "" {
			if err := writeSection("Confidence"); err != nil {
				return nil, err
			}
			writeLabeled("Overall", note.Result.Confidence.OverallConfidence)
			writeLabeled("Areas of uncertainty", strings.Join(note.Result.Confidence.AreasOfUncertainty, ", "))
		}
	}

	if err := writeSection("Transcript"); err != nil {
		return nil, err
	}
	writeText(rec.Transcription)

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	s.logger.Debug("rendered consultation report",
		zap.Int64("record_id", rec.ID),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
