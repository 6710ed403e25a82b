package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Metadata carries the patient/encounter context attached to a
// transcription request. Every field is optional; empty values are
// omitted from the request rather than sent as nulls.
type Metadata struct {
	PatientName        string
	PatientDOB         string
	PatientGender      string
	PatientID          string
	PatientContact     string
	PatientInsurance   string
	PatientPCP         string
	PatientAllergies   string
	PatientMedications string
	ChiefComplaint     string
	EncounterType      string
	Notes              string
	VitalSigns         map[string]string
}

// fields returns the non-empty form fields in a stable order.
func (m Metadata) fields() [][2]string {
	pairs := [][2]string{
		{"patientName", m.PatientName},
		{"patientDOB", m.PatientDOB},
		{"patientGender", m.PatientGender},
		{"patientID", m.PatientID},
		{"patientContact", m.PatientContact},
		{"patientInsurance", m.PatientInsurance},
		{"patientPCP", m.PatientPCP},
		{"patientAllergies", m.PatientAllergies},
		{"patientMedications", m.PatientMedications},
		{"chiefComplaint", m.ChiefComplaint},
		{"encounterType", m.EncounterType},
		{"notes", m.Notes},
	}
	out := pairs[:0]
	for _, p := range pairs {
		if p[1] != "" {
			out = append(out, p)
		}
	}

	keys := make([]string, 0, len(m.VitalSigns))
	for k := range m.VitalSigns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := m.VitalSigns[k]; v != "" {
			out = append(out, [2]string{"vitalSigns." + k, v})
		}
	}
	return out
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(endpoint string, logger *zap.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

type transcriptionResponse struct {
	Transcription struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Transcribe sends the finalized audio plus metadata as one multipart
// request and returns the transcript text. Any non-2xx response or
// network failure is returned as an error; nothing is stored on failure.
func (c *Client) Transcribe(ctx context.Context, audio []byte, meta Metadata) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}

	for _, f := range meta.fields() {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return "", err
		}
	}

	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		respBody, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return "", fmt.Errorf("transcription failed: %s", errResp.Error)
		}
		return "", fmt.Errorf("transcription API error: %s - %s", resp.Status, string(respBody))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	c.logger.Debug("audio transcribed", zap.Int("audio_bytes", len(audio)), zap.Int("text_len", len(result.Transcription.Text)))
	return result.Transcription.Text, nil
}
