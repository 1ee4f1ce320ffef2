package blob

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"

	"github.com/Zeta-Naidi/Muallim-1-sub002/core"
	"github.com/Zeta-Naidi/Muallim-1-sub002/core/material"
)

const defaultURLExpiry = 15 * time.Minute

// OSSStore keeps the blobs in an Aliyun OSS bucket.
type OSSStore struct {
	bucket    *oss.Bucket
	urlExpiry time.Duration
}

var (
	_ material.Store     = (*OSSStore)(nil) // interface compliance check
	_ material.URLSigner = (*OSSStore)(nil)
)

func NewOSSStore(conf core.BlobConfig) (*OSSStore, error) {
	if conf.OSSEndpoint == "" || conf.OSSBucket == "" {
		return nil, errors.New("oss endpoint and bucket are required")
	}
	client, err := oss.New(conf.OSSEndpoint, conf.OSSAccessKey, conf.OSSSecretKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating oss client")
	}
	bucket, err := client.Bucket(conf.OSSBucket)
	if err != nil {
		return nil, errors.Wrapf(err, "opening oss bucket %s", conf.OSSBucket)
	}

	expiry := conf.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}
	return &OSSStore{bucket: bucket, urlExpiry: expiry}, nil
}

func isNoSuchKey(err error) bool {
	se, ok := errors.Cause(err).(oss.ServiceError)
	return ok && (se.StatusCode == http.StatusNotFound || se.Code == "NoSuchKey")
}

func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentDisposition("attachment"),
	}
	if size >= 0 {
		opts = append(opts, oss.ContentLength(size))
	}
	return errors.Wrapf(s.bucket.PutObject(key, r, opts...), "uploading %s", key)
}

func (s *OSSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if isNoSuchKey(err) {
		return nil, material.ErrBlobNotFound
	} else if err != nil {
		return nil, errors.Wrapf(err, "downloading %s", key)
	}
	return body, nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	err := s.bucket.DeleteObject(key, oss.WithContext(ctx))
	if isNoSuchKey(err) {
		return nil
	}
	return errors.Wrapf(err, "deleting %s", key)
}

func (s *OSSStore) SignURL(_ context.Context, key string) (string, error) {
	url, err := s.bucket.SignURL(key, oss.HTTPGet, int64(s.urlExpiry/time.Second))
	return url, errors.Wrapf(err, "signing %s", key)
}
