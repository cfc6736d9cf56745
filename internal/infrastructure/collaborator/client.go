// Package collaborator calls the line backend REST surface. Responses are
// returned verbatim; only /status is decoded because the dashboard shows it.
package collaborator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"floorview/internal/core/domain"
	apperrors "floorview/pkg/errors"
	"floorview/pkg/tracing"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Status fetches GET /status. Any failure is reported as an error so the
// caller can show the "no service" state.
func (c *Client) Status(ctx context.Context) (domain.ServiceStatus, error) {
	body, err := c.get(ctx, "/status")
	if err != nil {
		return domain.ServiceStatus{}, err
	}

	var resp domain.StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ServiceStatus{}, apperrors.WrapError(err, apperrors.ErrCodeBadGateway, "invalid /status body", http.StatusBadGateway)
	}

	st := domain.ServiceStatus{
		Available:     true,
		Status:        resp.Status,
		Camera:        resp.Camera,
		CameraBackend: resp.CameraBackend,
		WSClients:     resp.WSClients,
		PartCounter:   resp.PartCounter,
		CheckedAt:     time.Now(),
	}
	if resp.ActivePolicy != nil {
		st.ActivePolicy = *resp.ActivePolicy
	}
	return st, nil
}

func (c *Client) StatusRaw(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/status")
}

func (c *Client) Health(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/health")
}

func (c *Client) ActivePolicy(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/policies/active")
}

// UploadDocument posts the document as the multipart field "file".
func (c *Client) UploadDocument(ctx context.Context, filename string, r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, "/documents/upload", mw.FormDataContentType(), &buf)
}

func (c *Client) CompilePolicy(ctx context.Context, documentID string) ([]byte, error) {
	return c.post(ctx, "/policies/compile/"+url.PathEscape(documentID), nil)
}

func (c *Client) ApprovePolicy(ctx context.Context, policyID, operatorID string) ([]byte, error) {
	return c.post(ctx, "/policies/"+url.PathEscape(policyID)+"/approve", domain.PolicyApprovalRequest{OperatorID: operatorID})
}

func (c *Client) RejectPolicy(ctx context.Context, policyID string) ([]byte, error) {
	return c.post(ctx, "/policies/"+url.PathEscape(policyID)+"/reject", nil)
}

func (c *Client) Inspect(ctx context.Context, req domain.InspectRequest) ([]byte, error) {
	return c.post(ctx, "/inspect", req)
}

func (c *Client) AskQA(ctx context.Context, question string) ([]byte, error) {
	return c.post(ctx, "/qa", domain.QARequest{Question: question})
}

func (c *Client) Events(ctx context.Context, limit int) ([]byte, error) {
	path := "/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return c.get(ctx, path)
}

func (c *Client) Stats(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/stats")
}

func (c *Client) Override(ctx context.Context, req domain.OverrideRequest) ([]byte, error) {
	return c.post(ctx, "/operator/override", req)
}

// Helper methods
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	if body == nil {
		return c.do(ctx, http.MethodPost, path, "", nil)
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(jsonData))
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	ctx, span := tracing.TraceCollaboratorCall(ctx, method, path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		appErr := apperrors.WrapError(err, apperrors.ErrCodeServiceUnavailable, "line backend unreachable", http.StatusServiceUnavailable)
		tracing.RecordError(ctx, appErr)
		return nil, appErr
	}
	defer resp.Body.Close()

	tracing.AddSpanAttributes(ctx, tracing.StatusCodeKey.Int(resp.StatusCode))
	c.logger.Debugw("collaborator call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		appErr := apperrors.WrapError(err, apperrors.ErrCodeBadGateway, "failed to read response", http.StatusBadGateway)
		tracing.RecordError(ctx, appErr)
		return nil, appErr
	}

	if resp.StatusCode >= 400 {
		appErr := apperrors.FromStatus(resp.StatusCode, string(data))
		tracing.RecordError(ctx, appErr)
		return nil, appErr
	}
	return data, nil
}
