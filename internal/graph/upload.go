package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/osacfin/reclass-cc14/internal/httpx"
)

// lockRetries bounds the inline retry loop on a locked SharePoint file,
// before falling back to a renamed upload.
const lockRetries = 4

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Uploader pushes a file into a SharePoint drive folder via the Graph API.
// A concurrently open file answers 423 Locked; the uploader retries with
// jittered backoff and finally retries once under a de-conflicted name.
type Uploader struct {
	http        *httpx.Client
	baseURL     string
	siteID      string
	driveItemID string
	simulate    bool
	log         zerolog.Logger
	// lockWait is overridable for tests; zero means the default 2s.
	lockWait time.Duration
}

func NewUploader(http *httpx.Client, siteID, driveItemID string, simulate bool, log zerolog.Logger) *Uploader {
	return &Uploader{
		http:        http,
		baseURL:     "https://graph.microsoft.com/v1.0",
		siteID:      siteID,
		driveItemID: driveItemID,
		simulate:    simulate,
		log:         log,
	}
}

type driveItemResponse struct {
	WebURL string `json:"webUrl"`
}

// Upload stores content under filename and returns the item's web URL.
func (u *Uploader) Upload(ctx context.Context, content []byte, filename, token string) (string, error) {
	if u.simulate {
		u.log.Info().
			Str("filename", filename).
			Int("bytes", len(content)).
			Msg("[DRY_RUN] Simulating SharePoint upload")
		return "", nil
	}

	webURL, err := u.putWithLockRetry(ctx, content, filename, token)
	if err == nil {
		return webURL, nil
	}
	if !isLocked(err) {
		return "", err
	}

	// Rename-and-retry fallback: someone has the target open; a fresh name
	// cannot be locked.
	renamed := deconflict(filename, time.Now())
	u.log.Warn().
		Str("filename", filename).
		Str("renamed", renamed).
		Msg("Target file locked after retries; uploading under a new name")
	return u.putWithLockRetry(ctx, content, renamed, token)
}

func (u *Uploader) putWithLockRetry(ctx context.Context, content []byte, filename, token string) (string, error) {
	wait := u.lockWait
	if wait == 0 {
		wait = 2 * time.Second
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = wait
	bo.RandomizationFactor = 0.5

	var webURL string
	operation := func() error {
		url := fmt.Sprintf(
			"%s/sites/%s/drive/items/%s:/%s:/content",
			u.baseURL, u.siteID, u.driveItemID, filename)
		headers := map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  contentTypeXLSX,
		}

		body, _, err := u.http.Do(ctx, http.MethodPut, url, headers, content)
		if err != nil {
			if isLocked(err) {
				u.log.Warn().Str("filename", filename).Msg("SharePoint file locked; backing off")
				return err
			}
			return backoff.Permanent(err)
		}

		var item driveItemResponse
		if err := json.Unmarshal(body, &item); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding drive item: %w", err))
		}
		webURL = item.WebURL
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, lockRetries), ctx))
	if err != nil {
		return "", fmt.Errorf("putWithLockRetry: uploading %q: %w", filename, err)
	}

	u.log.Info().Str("filename", filename).Str("web_url", webURL).Msg("Report uploaded to SharePoint")
	return webURL, nil
}

func isLocked(err error) bool {
	var statusErr *httpx.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusLocked
}

// deconflict inserts a time suffix before the extension.
func deconflict(filename string, now time.Time) string {
	suffix := now.Format("150405")
	if idx := strings.LastIndexByte(filename, '.'); idx >= 0 {
		return filename[:idx] + " " + suffix + filename[idx:]
	}
	return filename + " " + suffix
}
