package analysisd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/calibration-core/pkg/logger"
)

// NotificationPayload is the JSON body posted to a callback URL when an
// analysis reaches a terminal state.
type NotificationPayload struct {
	Analysis  Analysis `json:"analysis"`
	Selected  int      `json:"selected_runs,omitempty"`
	K         int      `json:"k,omitempty"`
	Timestamp int64    `json:"timestamp"` // when the notification was sent
}

// Notifier posts completion callbacks with retries.
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		baseDelay:  1 * time.Second,
	}
}

// Notify sends the callback in the background and returns immediately.
// A "{analysis_id}" placeholder in callbackURL is substituted.
func (n *Notifier) Notify(callbackURL, callbackSecret string, rec Record) {
	if callbackURL == "" {
		return
	}

	finalURL := strings.ReplaceAll(callbackURL, "{analysis_id}", rec.Analysis.ID)
	payload := NotificationPayload{
		Analysis:  rec.Analysis,
		Timestamp: time.Now().UTC().UnixMilli(),
	}
	if rec.Bundle != nil {
		payload.Selected = rec.Bundle.Selected
		payload.K = rec.Bundle.K
	}

	go n.send(finalURL, callbackSecret, payload)
}

func (n *Notifier) send(callbackURL, callbackSecret string, payload NotificationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"analysis_id", payload.Analysis.ID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.baseDelay * time.Duration(1<<uint(attempt-1))
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"analysis_id", payload.Analysis.ID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(body))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "calibration-core/1.0")
		if callbackSecret != "" {
			req.Header.Set("X-Calibration-Callback-Secret", callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"analysis_id", payload.Analysis.ID,
				"attempt", attempt+1,
				"error", err)
			continue
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent",
				"analysis_id", payload.Analysis.ID,
				"status", payload.Analysis.Status,
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"analysis_id", payload.Analysis.ID,
			"status_code", resp.StatusCode,
			"response_body", string(respBody),
			"attempt", attempt+1)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"analysis_id", payload.Analysis.ID,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}
