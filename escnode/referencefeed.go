// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package escnode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// ReferenceFeed serves the authoritative per-L1-block event feed the
// validation engine compares against. The payload is opaque JSON; only the
// block validator interprets it.
type ReferenceFeed interface {
	BlockEvents(ctx context.Context, l1Block uint64) (json.RawMessage, error)
}

type httpReferenceFeed struct {
	baseURL string
	client  *http.Client
}

const referenceFeedTimeout = 30 * time.Second

func NewReferenceFeed(baseURL string) ReferenceFeed {
	return &httpReferenceFeed{
		baseURL: baseURL,
		client:  &http.Client{Timeout: referenceFeedTimeout},
	}
}

func (f *httpReferenceFeed) BlockEvents(ctx context.Context, l1Block uint64) (json.RawMessage, error) {
	var payload json.RawMessage
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/blocks/%d", f.baseURL, l1Block), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(errors.Errorf("reference feed has no data for block %d", l1Block))
		}
		if resp.StatusCode != http.StatusOK {
			return errors.Errorf("reference feed returned status %d for block %d", resp.StatusCode, l1Block)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if !json.Valid(body) {
			return backoff.Permanent(errors.Errorf("reference feed returned invalid JSON for block %d", l1Block))
		}
		payload = body
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, errors.WithStack(err)
	}
	return payload, nil
}
