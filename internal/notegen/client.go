package notegen

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(endpoint, apiKey string, logger *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(120 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		c.SetAuthToken(apiKey)
	}
	return &Client{httpClient: c, logger: logger}
}

type generateRequest struct {
	Message     string         `json:"message"`
	PatientInfo RequestPatient `json:"patientInfo"`
}

// Generate turns a transcript plus patient context into a structured SOAP
// note. The caller decides what to do when this fails; the transcript
// itself is never at risk here.
func (c *Client) Generate(ctx context.Context, message string, patient RequestPatient) (*GeneratedNote, error) {
	var note GeneratedNote
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(generateRequest{Message: message, PatientInfo: patient}).
		SetResult(&note).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("note generation request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("note generation API error: %s - %s", resp.Status(), resp.String())
	}

	c.logger.Debug("note generated",
		zap.Int64("note_id", note.ID),
		zap.Int("diagnoses", len(note.Result.SoapNote.Assessment.Diagnoses)))
	return &note, nil
}
