package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tabletap-be/internal/errs"
	"tabletap-be/internal/logger"

	"go.uber.org/zap"
)

const apiVersion = "2025-03-01"

// Gateway is the outbound surface to the payment processor. Transient
// failures (network, 429, 5xx) are retried with bounded exponential backoff;
// definitive rejections are returned immediately.
type Gateway interface {
	RetrieveSession(ctx context.Context, sessionRef string) (*Session, error)
	CreateRefund(ctx context.Context, paymentRef string, amountMinor *int64, reason string) (string, error)
}

type httpGateway struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPGateway(baseURL, apiKey string) Gateway {
	if apiKey == "" {
		logger.L().Warn("payment processor API key is empty")
	}

	return &httpGateway{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		maxAttempts: 4,
		baseBackoff: 200 * time.Millisecond,
	}
}

func (g *httpGateway) RetrieveSession(ctx context.Context, sessionRef string) (*Session, error) {
	log := logger.L().With(zap.String("session_ref", sessionRef))

	body, status, err := g.doWithRetry(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/checkout/sessions/%s", g.baseURL, sessionRef), nil)
	if err != nil {
		log.Error("session retrieval failed", zap.Error(err))
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, ErrSessionNotFound
	}
	if status != http.StatusOK {
		log.Error("processor returned non-success status",
			zap.Int("status", status),
			zap.ByteString("response", body),
		)
		return nil, definitiveErr(status, body)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		log.Error("failed decoding session response", zap.Error(err))
		return nil, errs.Wrap(errs.KindExternalProcessor, "malformed session response", err)
	}
	return &session, nil
}

func (g *httpGateway) CreateRefund(ctx context.Context, paymentRef string, amountMinor *int64, reason string) (string, error) {
	log := logger.L().With(zap.String("payment_ref", paymentRef))

	payload := map[string]any{
		"payment_ref": paymentRef,
		"reason":      reason,
	}
	if amountMinor != nil {
		payload["amount"] = *amountMinor
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", errs.Internal(err)
	}

	log.Info("sending refund request to processor")

	body, status, err := g.doWithRetry(ctx, http.MethodPost,
		g.baseURL+"/v1/refunds", jsonBody)
	if err != nil {
		log.Error("refund request failed", zap.Error(err))
		return "", err
	}

	if status != http.StatusOK && status != http.StatusCreated {
		if isAlreadyRefunded(body) {
			log.Warn("processor reports payment already refunded")
			return "", ErrAlreadyRefunded
		}
		log.Error("processor rejected refund",
			zap.Int("status", status),
			zap.ByteString("response", body),
		)
		return "", definitiveErr(status, body)
	}

	var res struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		log.Error("failed decoding refund response", zap.Error(err))
		return "", errs.Wrap(errs.KindExternalProcessor, "malformed refund response", err)
	}

	log.Info("refund created", zap.String("refund_ref", res.ID))
	return res.ID, nil
}

// doWithRetry executes the request, retrying transient failures with
// exponential backoff up to maxAttempts. Definitive 4xx responses come back
// to the caller on the first attempt.
func (g *httpGateway) doWithRetry(ctx context.Context, method, url string, jsonBody []byte) ([]byte, int, error) {
	var lastErr error
	backoff := g.baseBackoff

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		var reqBody io.Reader
		if jsonBody != nil {
			reqBody = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, 0, errs.Internal(err)
		}
		req.SetBasicAuth(g.apiKey, "")
		req.Header.Add("api-version", apiVersion)
		if jsonBody != nil {
			req.Header.Add("Content-Type", "application/json")
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if !retryableStatus(resp.StatusCode) {
				return body, resp.StatusCode, nil
			} else {
				lastErr = fmt.Errorf("processor returned %d: %s", resp.StatusCode, body)
			}
		}

		if attempt == g.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, 0, &errs.Error{Kind: errs.KindExternalProcessor, Message: "processor call cancelled", Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, 0, &errs.Error{
		Kind:      errs.KindExternalProcessor,
		Message:   fmt.Sprintf("processor unreachable after %d attempts", g.maxAttempts),
		Err:       lastErr,
		Retryable: true,
	}
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func definitiveErr(status int, body []byte) error {
	return errs.Newf(errs.KindExternalProcessor, "processor rejected request (%d): %s", status, body)
}

func isAlreadyRefunded(body []byte) bool {
	var res struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return false
	}
	return res.Error.Code == "already_refunded"
}
