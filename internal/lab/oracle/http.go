package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/smartlab/internal/platform/errors"
)

// maxResponseBytes bounds a provider envelope.
const maxResponseBytes = 1 << 20

// postJSON sends body and returns the raw 2xx response. Every failure to get
// there is ORACLE_TRANSPORT_FAILURE.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal oracle request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeOracleTransportFailure, "build oracle request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credentials travel only in headers and are never echoed in errors.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeOracleTransportFailure, "oracle request failed", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		errBody, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeOracleTransportFailure, "read oracle error body", err)
		}
		return nil, apperrors.Wrap(apperrors.CodeOracleTransportFailure,
			fmt.Sprintf("oracle request status %d", res.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(errBody))))
	}
	payload, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeOracleTransportFailure, "read oracle response", err)
	}
	return payload, nil
}
