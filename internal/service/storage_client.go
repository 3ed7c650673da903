package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"storybook-server/internal/config"
	"storybook-server/internal/model"
	"storybook-server/pkg/retry"
)

// StorageClient uploads generated assets to the object store and returns
// their public URLs.
type StorageClient interface {
	Upload(ctx context.Context, data []byte, contentType, ownerID, storyID, fileName string) (string, error)
}

type storageClient struct {
	httpClient *http.Client
	logger     *zap.Logger
	baseURL    string
	bucket     string
	serviceKey string
}

// NewStorageClient builds the production storage client for a path-addressed
// object store (Supabase-compatible storage API).
func NewStorageClient(cfg *config.Config, logger *zap.Logger) StorageClient {
	return &storageClient{
		httpClient: &http.Client{Timeout: cfg.StorageUploadTimeout},
		logger:     logger.Named("StorageClient"),
		baseURL:    strings.TrimRight(cfg.StorageBaseURL, "/"),
		bucket:     cfg.StorageBucket,
		serviceKey: cfg.StorageServiceKey,
	}
}

// Upload stores the asset under {ownerID}/{storyID}/{fileName} with upsert
// enabled, so a retried or resumed upload of the same path overwrites rather
// than conflicts. The returned URL is the public retrieval URL for the path.
func (c *storageClient) Upload(ctx context.Context, data []byte, contentType, ownerID, storyID, fileName string) (string, error) {
	objectPath := fmt.Sprintf("%s/%s/%s", ownerID, storyID, fileName)
	uploadURL := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, objectPath)

	start := time.Now()
	err := retry.Storage.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		req.Header.Set("x-upsert", "true")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return classifyTransportErr(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			return nil
		}

		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return retry.Permission(fmt.Errorf("%w: upload of %s returned status %d: %s",
				model.ErrStoragePermission, objectPath, resp.StatusCode, strings.TrimSpace(string(msg))))
		}
		err = fmt.Errorf("upload of %s returned status %d: %s", objectPath, resp.StatusCode, strings.TrimSpace(string(msg)))
		return retry.Classify(classifyHTTPStatus(resp.StatusCode), err)
	})
	storageUploadDuration.Observe(time.Since(start).Seconds())
	storageUploadsTotal.WithLabelValues(outcomeLabel(err)).Inc()

	if err != nil {
		c.logger.Error("Asset upload failed",
			zap.String("path", objectPath),
			zap.Error(err))
		return "", err
	}

	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, objectPath), nil
}
