package notegen

// PatientInfo is the patient header block of a generated note.
type PatientInfo struct {
	Name      string `json:"name"`
	ID        string `json:"id,omitempty"`
	Age       string `json:"age"`
	Gender    string `json:"gender"`
	DOB       string `json:"dob,omitempty"`
	Contact   string `json:"contact,omitempty"`
	Insurance string `json:"insurance,omitempty"`
	PCP       string `json:"pcp,omitempty"`
	VisitDate string `json:"visitDate"`
}

type Diagnosis struct {
	DiagnosisName   string `json:"diagnosisName"`
	ICDCode         string `json:"icdCode"`
	CodeDescription string `json:"codeDescription"`
	Reasoning       string `json:"reasoning"`
}

type Subjective struct {
	ChiefComplaint          string   `json:"chiefComplaint"`
	HistoryOfPresentIllness string   `json:"historyOfPresentIllness"`
	PastMedicalHistory      string   `json:"pastMedicalHistory"`
	Medications             []string `json:"medications"`
	Allergies               []string `json:"allergies"`
	SocialHistory           string   `json:"socialHistory"`
	FamilyHistory           string   `json:"familyHistory"`
}

type Objective struct {
	VitalSigns          map[string]string `json:"vitalSigns"`
	PhysicalExamination string            `json:"physicalExamination"`
}

type Assessment struct {
	Diagnoses             []Diagnosis `json:"diagnoses"`
	DifferentialDiagnoses []string    `json:"differentialDiagnoses"`
}

type Plan struct {
	DiagnosticTests  []string `json:"diagnosticTests"`
	Treatments       []string `json:"treatments"`
	Medications      []string `json:"medications"`
	PatientEducation string   `json:"patientEducation"`
	FollowUp         string   `json:"followUp"`
}

type SoapNote struct {
	Subjective Subjective `json:"subjective"`
	Objective  Objective  `json:"objective"`
	Assessment Assessment `json:"assessment"`
	Plan       Plan       `json:"plan"`
}

type Confidence struct {
	OverallConfidence  string   `json:"overallConfidence"`
	AreasOfUncertainty []string `json:"areasOfUncertainty"`
}

type NoteResult struct {
	PatientInfo PatientInfo `json:"patientInfo"`
	SoapNote    SoapNote    `json:"soapNote"`
	Confidence  Confidence  `json:"confidence"`
}

// GeneratedNote is the note-generation service's response. Immutable once
// stored alongside a consultation.
type GeneratedNote struct {
	ID     int64      `json:"id"`
	Result NoteResult `json:"result"`
}

// RequestPatient is the patient context sent with a generation request.
// Unlike PatientInfo, allergies and medications are free text here because
// they come straight from the encounter form.
type RequestPatient struct {
	Name           string            `json:"name"`
	DOB            string            `json:"dob"`
	Gender         string            `json:"gender"`
	ID             string            `json:"id"`
	Contact        string            `json:"contact"`
	Insurance      string            `json:"insurance"`
	PCP            string            `json:"pcp"`
	Allergies      string            `json:"allergies"`
	Medications    string            `json:"medications"`
	ChiefComplaint string            `json:"chiefComplaint"`
	VitalSigns     map[string]string `json:"vitalSigns"`
}
