// Package loader supplies one concrete realization of blockcache.Loader:
// a caller-supplied asynchronous computation that fetches one SST block
// range from S3, a small struct wrapping a concrete SDK client behind a
// uniform interface.
package loader

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/cascadedb/cascade/blockcache"
	"github.com/cascadedb/cascade/cmn/nlog"
)

// BlockLocator maps a blockcache.Key to the S3 object and byte range
// holding that block. SST layout (which object, which offset) is left to
// callers to supply.
type BlockLocator func(key blockcache.Key) (bucket, objectKey string, offset, length int64)

// S3 is an S3-backed blockcache.Loader factory: one concrete backend is
// enough to exercise the loader contract, so there's no multi-backend
// interface here.
type S3 struct {
	client   *s3.Client
	locate   BlockLocator
	provider string
}

// NewS3 constructs an S3 loader over an already-configured client. Callers
// typically build client via config.LoadDefaultConfig then s3.NewFromConfig;
// NewS3 takes the pre-built SDK client rather than owning credential
// resolution itself.
func NewS3(client *s3.Client, locate BlockLocator) *S3 {
	return &S3{client: client, locate: locate, provider: "s3"}
}

// Loader returns a blockcache.Loader bound to this backend, ready to pass
// to BlockCache.GetOrInsertWith.
func (s *S3) Loader() blockcache.Loader {
	return func(ctx context.Context, key blockcache.Key) (*blockcache.Block, int64, error) {
		bucket, objKey, offset, length := s.locate(key)
		rng := fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)

		nlog.Infof("loader: fetching s3://%s/%s range %s for %+v", bucket, objKey, rng, key)
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(objKey),
			Range:  aws.String(rng),
		})
		if err != nil {
			return nil, 0, errors.Wrapf(err, "loader: get s3://%s/%s", bucket, objKey)
		}
		defer out.Body.Close()

		buf := make([]byte, length)
		n, err := io.ReadFull(out.Body, buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, 0, errors.Wrapf(err, "loader: read s3://%s/%s", bucket, objKey)
		}
		block := &blockcache.Block{Data: buf[:n]}
		return block, int64(n), nil
	}
}
