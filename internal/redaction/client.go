package redaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/config"
	"github.com/Planning-Inspectorate/crown-developments-sub002/internal/system/constants"
)

const (
	taskKindPII        = "PiiEntityRecognition"
	stringIndexType    = "UnicodeCodePoint"
	subscriptionHeader = "Ocp-Apim-Subscription-Key"
)

// Client calls a text analytics PII recognition endpoint
type Client struct {
	httpClient *http.Client
	config     *config.RedactionConfig
	logger     logrus.FieldLogger
}

type analyzeRequest struct {
	Kind          string        `json:"kind"`
	Parameters    analyzeParams `json:"parameters"`
	AnalysisInput analysisInput `json:"analysisInput"`
}

type analyzeParams struct {
	ModelVersion    string   `json:"modelVersion"`
	PiiCategories   []string `json:"piiCategories,omitempty"`
	StringIndexType string   `json:"stringIndexType"`
}

type analysisInput struct {
	Documents []inputDocument `json:"documents"`
}

type inputDocument struct {
	ID       string `json:"id"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

type analyzeResponse struct {
	Kind    string         `json:"kind"`
	Results analyzeResults `json:"results"`
}

type analyzeResults struct {
	Documents []resultDocument `json:"documents"`
	Errors    []resultError    `json:"errors"`
}

type resultDocument struct {
	ID       string   `json:"id"`
	Entities []Entity `json:"entities"`
}

type resultError struct {
	ID    string        `json:"id"`
	Error DocumentError `json:"error"`
}

type serviceErrorResponse struct {
	Error DocumentError `json:"error"`
}

// NewClient creates a new PII detection client
func NewClient(cfg *config.RedactionConfig, logger logrus.FieldLogger) *Client {
	timeout := DefaultTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: cfg,
		logger: logger,
	}
}

// Detect sends one batch of documents and returns their results in request order
func (c *Client) Detect(ctx context.Context, docs []Document, opts DetectOptions) ([]DocumentResult, error) {
	request := analyzeRequest{
		Kind: taskKindPII,
		Parameters: analyzeParams{
			ModelVersion:    "latest",
			PiiCategories:   opts.Categories,
			StringIndexType: stringIndexType,
		},
	}
	for _, doc := range docs {
		request.AnalysisInput.Documents = append(request.AnalysisInput.Documents, inputDocument{
			ID:       doc.ID,
			Language: opts.Language,
			Text:     doc.Text,
		})
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.GetAnalyzeURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	req.Header.Set("Accept", constants.ContentTypeJSON)
	req.Header.Set(subscriptionHeader, c.config.APIKey)

	c.logger.WithFields(logrus.Fields{
		"url":       url,
		"documents": len(docs),
	}).Debug("Calling PII detection service")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("PII detection call failed after %s: %w", duration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("PII detection response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp serviceErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
			return nil, fmt.Errorf("PII detection service returned status %d: %w", resp.StatusCode, &errResp.Error)
		}
		return nil, fmt.Errorf("PII detection service returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return mapResults(docs, parsed.Results), nil
}

// mapResults orders service results by the request's document order
func mapResults(docs []Document, results analyzeResults) []DocumentResult {
	byID := make(map[string]DocumentResult, len(docs))
	for _, doc := range results.Documents {
		byID[doc.ID] = DocumentResult{ID: doc.ID, Entities: doc.Entities}
	}
	for _, docErr := range results.Errors {
		byID[docErr.ID] = DocumentResult{ID: docErr.ID, Err: &docErr.Error}
	}

	mapped := make([]DocumentResult, len(docs))
	for i, doc := range docs {
		result, ok := byID[doc.ID]
		if !ok {
			result = DocumentResult{
				ID:  doc.ID,
				Err: &DocumentError{Code: "MissingResult", Message: "no result returned for document"},
			}
		}
		mapped[i] = result
	}
	return mapped
}
