package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// download fetches url into a temp file inside the cache directory and
// returns its path. HTTP status >= 400 counts as retryable; retries use
// exponential backoff bounded by the config.
func (p *Pool) download(ctx context.Context, url, title string) (string, error) {
	backoff := time.Duration(p.cfg.BackoffMs) * time.Millisecond
	maxBackoff := time.Duration(p.cfg.BackoffMaxMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		tmpPath, err := p.fetchOnce(ctx, url)
		if err == nil {
			return tmpPath, nil
		}
		lastErr = err
		p.log.WithError(err).WithField("title", title).
			WithField("attempt", attempt+1).Debug("download attempt failed")
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("download %q: %w", title, lastErr)
}

func (p *Pool) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(p.cache.Dir(), "download*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
