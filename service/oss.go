package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

const presignExpiry = 72 * time.Hour

// Uploader re-hosts generated images on MinIO so drafts reference stable
// URLs instead of short-lived provider links or multi-megabyte data URLs.
type Uploader struct {
	client *minio.Client
	bucket string
}

func NewUploader(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Uploader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio init failed: %w", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// UploadImage accepts either a data URL (base64 payload from a provider)
// or a remote http(s) URL, stores the bytes under objectName and returns a
// presigned GET URL.
func (u *Uploader) UploadImage(ctx context.Context, source, objectName string) (string, error) {
	var reader io.Reader
	var size int64 = -1

	switch {
	case strings.HasPrefix(source, "data:"):
		idx := strings.Index(source, "base64,")
		if idx == -1 {
			return "", fmt.Errorf("unsupported data url encoding")
		}
		decoded, err := base64.StdEncoding.DecodeString(source[idx+len("base64,"):])
		if err != nil {
			return "", fmt.Errorf("decode image payload failed: %w", err)
		}
		reader = bytes.NewReader(decoded)
		size = int64(len(decoded))

	default:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return "", err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("download image failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("download image status: %d", resp.StatusCode)
		}
		reader = resp.Body
		size = resp.ContentLength
	}

	return u.put(ctx, reader, objectName, size)
}

func (u *Uploader) put(ctx context.Context, reader io.Reader, objectName string, size int64) (string, error) {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return "", fmt.Errorf("check bucket failed: %w", err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("create bucket failed: %w", err)
		}
		log.Printf("[oss] bucket %q created", u.bucket)
	}

	contentType := "application/octet-stream"
	switch filepath.Ext(objectName) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".webp":
		contentType = "image/webp"
	}

	_, err = u.client.PutObject(ctx, u.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload to minio failed: %w", err)
	}

	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, objectName, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign url failed: %w", err)
	}

	log.Printf("[oss] uploaded %s", objectName)
	return presigned.String(), nil
}
