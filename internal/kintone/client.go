// Package kintone is a small REST client for the Kintone CRM: file upload,
// record creation and customer lookup.
package kintone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/visit-report-ai/internal/masterdata"
	"github.com/wolfman30/visit-report-ai/internal/submission"
	"github.com/wolfman30/visit-report-ai/pkg/logging"
)

const (
	defaultTimeout = 30 * time.Second
	tokenHeader    = "X-Cybozu-API-Token"
	maxLoggedBody  = 300
)

var kintoneTracer = otel.Tracer("visitreport/kintone")

// Config configures a Client.
type Config struct {
	BaseURL string
	// APIToken authorizes the activity record app.
	APIToken string
	// ClientAPIToken authorizes the customer app. When set it is appended to
	// APIToken on record submission so lookup fields can resolve.
	ClientAPIToken string
	AppID          int
	ClientAppID    int
	Fields         masterdata.FieldCodes
	Lookup         masterdata.ClientLookup
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// ClientSummary is one customer returned by SearchClients.
type ClientSummary struct {
	ID       string `json:"id"`
	RecordID string `json:"record_id"`
	Name     string `json:"name"`
}

// AddRecordResult is the response of a record creation.
type AddRecordResult struct {
	ID       string `json:"id"`
	Revision string `json:"revision"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	cfg        Config
	logger     *logging.Logger
}

func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIToken) == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.Lookup.Limit <= 0 {
		cfg.Lookup.Limit = 20
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func (c *Client) submitToken() string {
	if c.cfg.ClientAPIToken != "" {
		return c.cfg.APIToken + "," + c.cfg.ClientAPIToken
	}
	return c.cfg.APIToken
}

func (c *Client) lookupToken() string {
	if c.cfg.ClientAPIToken != "" {
		return c.cfg.ClientAPIToken
	}
	return c.cfg.APIToken
}

// UploadFile stores r as a temporary file and returns its fileKey.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("kintone: file reader required")
	}
	ctx, span := kintoneTracer.Start(ctx, "kintone.upload_file")
	defer span.End()
	span.SetAttributes(attribute.String("kintone.file_name", name))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("kintone: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("kintone: copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("kintone: close multipart writer: %w", err)
	}

	var out struct {
		FileKey string `json:"fileKey"`
	}
	if err := c.do(ctx, span, http.MethodPost, "/k/v1/file.json", c.cfg.APIToken, buf.Bytes(), writer.FormDataContentType(), &out); err != nil {
		return "", err
	}
	if out.FileKey == "" {
		return "", errors.New("kintone: upload response has no fileKey")
	}
	return out.FileKey, nil
}

// AddRecord creates one record in app. It is not retried.
func (c *Client) AddRecord(ctx context.Context, app int, record Record) (AddRecordResult, error) {
	if app <= 0 {
		return AddRecordResult{}, errors.New("kintone: app id required")
	}
	ctx, span := kintoneTracer.Start(ctx, "kintone.add_record")
	defer span.End()
	span.SetAttributes(attribute.Int("kintone.app", app), attribute.Int("kintone.fields", len(record)))

	payload, err := json.Marshal(map[string]any{"app": app, "record": record})
	if err != nil {
		return AddRecordResult{}, fmt.Errorf("kintone: marshal record: %w", err)
	}
	var out AddRecordResult
	if err := c.do(ctx, span, http.MethodPost, "/k/v1/record.json", c.submitToken(), payload, "application/json; charset=utf-8", &out); err != nil {
		return AddRecordResult{}, err
	}
	span.SetAttributes(attribute.String("kintone.record_id", out.ID))
	return out, nil
}

// Submit builds the envelope for rec with the configured field codes and
// creates it in the activity app.
func (c *Client) Submit(ctx context.Context, rec submission.Record) (submission.Receipt, error) {
	res, err := c.AddRecord(ctx, c.cfg.AppID, BuildRecord(rec, c.cfg.Fields))
	if err != nil {
		return submission.Receipt{}, err
	}
	return submission.Receipt{ID: res.ID, Revision: res.Revision}, nil
}

// SearchClients finds customers whose name contains keyword. An empty
// keyword returns no results without calling the API.
func (c *Client) SearchClients(ctx context.Context, keyword string) ([]ClientSummary, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []ClientSummary{}, nil
	}
	if c.cfg.ClientAppID <= 0 {
		return nil, errors.New("kintone: client app id required")
	}
	ctx, span := kintoneTracer.Start(ctx, "kintone.search_clients")
	defer span.End()
	span.SetAttributes(attribute.Int("kintone.app", c.cfg.ClientAppID))

	lookup := c.cfg.Lookup
	q := url.Values{}
	q.Set("app", strconv.Itoa(c.cfg.ClientAppID))
	q.Set("query", SearchQuery(lookup.NameField, keyword, lookup.Limit))
	q.Set("fields[0]", "$id")
	q.Set("fields[1]", lookup.IDField)
	q.Set("fields[2]", lookup.NameField)

	var out struct {
		Records []map[string]Field `json:"records"`
	}
	if err := c.do(ctx, span, http.MethodGet, "/k/v1/records.json?"+q.Encode(), c.lookupToken(), nil, "", &out); err != nil {
		return nil, err
	}

	results := make([]ClientSummary, 0, len(out.Records))
	for _, r := range out.Records {
		results = append(results, ClientSummary{
			ID:       fieldString(r[lookup.IDField]),
			RecordID: fieldString(r["$id"]),
			Name:     fieldString(r[lookup.NameField]),
		})
	}
	span.SetAttributes(attribute.Int("kintone.results", len(results)))
	return results, nil
}

// SearchQuery builds a Kintone query matching nameField against keyword.
func SearchQuery(nameField, keyword string, limit int) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(keyword)
	return fmt.Sprintf(`%s like "%s" order by $id desc limit %d`, nameField, escaped, limit)
}

func fieldString(f Field) string {
	switch v := f.Value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (c *Client) do(ctx context.Context, span trace.Span, method, path, token string, body []byte, contentType string, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("kintone: build request: %w", err)
	}
	req.Header.Set(tokenHeader, token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "http error")
		return fmt.Errorf("kintone: http request: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kintone: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp.StatusCode, respBody)
		msg := apiErr.Body
		if len(msg) > maxLoggedBody {
			msg = msg[:maxLoggedBody]
		}
		c.logger.Warn("kintone API non-2xx response", "status", resp.StatusCode, "path", strings.SplitN(path, "?", 2)[0], "code", apiErr.Code, "body", msg)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, apiErr.Code)
		return apiErr
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("kintone: decode response: %w", err)
	}
	return nil
}
