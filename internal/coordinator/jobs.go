package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/manash/vidgen/pkg/models"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type jobResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Model     string    `json:"model"`
	Seconds   int       `json:"seconds,omitempty"`
	CreatedAt int64     `json:"created_at"`
	Error     *apiError `json:"error,omitempty"`
}

// Generate runs the full job lifecycle: create, poll to completion, download.
func (c *Client) Generate(ctx context.Context, req *models.VideoRequest) (*models.Response, error) {
	job, err := c.createJob(ctx, req)
	if err != nil {
		return nil, err
	}

	completed, err := c.pollJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	data, err := c.downloadVideo(ctx, completed.ID)
	if err != nil {
		return nil, err
	}

	seconds := completed.Seconds
	if seconds == 0 {
		seconds = req.Seconds
	}

	return &models.Response{
		JobID: completed.ID,
		Videos: []models.GeneratedVideo{
			{
				Data:     data,
				Filename: completed.ID + ".mp4",
				Seconds:  seconds,
			},
		},
	}, nil
}

// Dispatch starts the job lifecycle in the background and reports the result
// through the callback. The context governs the whole lifecycle.
func (c *Client) Dispatch(ctx context.Context, req *models.VideoRequest, done func(*models.Response, error)) {
	go func() {
		resp, err := c.Generate(ctx, req)
		done(resp, err)
	}()
}

func (c *Client) createJob(ctx context.Context, req *models.VideoRequest) (*jobResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"prompt":       req.Prompt,
		"model":        req.Model,
		"aspect_ratio": req.AspectRatio,
		"resolution":   req.Resolution,
		"mode":         string(req.Mode),
	}
	if req.Seconds > 0 {
		fields["seconds"] = strconv.Itoa(req.Seconds)
	}
	if req.Audio {
		fields["audio"] = "true"
	}
	if req.Tier != "" {
		fields["tier"] = req.Tier
	}
	if req.ReferenceSeconds > 0 {
		fields["reference_seconds"] = strconv.Itoa(req.ReferenceSeconds)
	}

	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", name, err)
		}
	}

	attachments := []struct {
		field string
		name  string
		data  []byte
	}{
		{"reference_image", "reference.png", req.ReferenceImage},
		{"first_frame", "first.png", req.FirstFrame},
		{"last_frame", "last.png", req.LastFrame},
		{"reference_video", "reference.mp4", req.ReferenceVideo},
	}
	for _, a := range attachments {
		if len(a.data) == 0 {
			continue
		}
		part, err := writer.CreateFormFile(a.field, a.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s part: %w", a.field, err)
		}
		if _, err := part.Write(a.data); err != nil {
			return nil, fmt.Errorf("failed to write %s part: %w", a.field, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to create form: %w", err)
	}

	url := c.cfg.BaseURL + "/jobs"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var job jobResponse
	if err := json.Unmarshal(respBody, &job); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if job.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, job.Error.Message)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: status %d", ErrGenerationFailed, resp.StatusCode)
	}

	return &job, nil
}

func (c *Client) pollJob(ctx context.Context, jobID string) (*jobResponse, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	consecutiveErrs := 0
	for attempt := 0; attempt < c.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			job, err := c.getJob(ctx, jobID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				consecutiveErrs++
				if consecutiveErrs >= 3 {
					return nil, err
				}
				fmt.Fprintf(c.errOut, "poll failed (attempt %d): %v\n", attempt+1, err)
				continue
			}
			consecutiveErrs = 0

			switch job.Status {
			case "completed":
				return job, nil
			case "failed":
				errMsg := "generation failed"
				if job.Error != nil {
					errMsg = job.Error.Message
				}
				return nil, fmt.Errorf("%w: %s", ErrGenerationFailed, errMsg)
			case "queued", "in_progress":
				continue
			default:
				return nil, fmt.Errorf("unknown job status: %s", job.Status)
			}
		}
	}

	return nil, fmt.Errorf("%w: exceeded maximum poll attempts", ErrVideoNotReady)
}

func (c *Client) getJob(ctx context.Context, jobID string) (*jobResponse, error) {
	url := c.cfg.BaseURL + "/jobs/" + jobID
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var job jobResponse
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &job, nil
}

func (c *Client) downloadVideo(ctx context.Context, jobID string) ([]byte, error) {
	url := c.cfg.BaseURL + "/jobs/" + jobID + "/content"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrVideoDownloadFailed, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
