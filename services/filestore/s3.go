package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
)

type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

var _ core.FileStore = (*S3Store)(nil)

// NewS3Store loads the AWS credentials from the environment (AWS_ACCESS_KEY_ID, ...).
func NewS3Store(ctx context.Context, conf *core.Config) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.S3.Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	publicURL := strings.TrimSuffix(conf.S3.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.S3.Bucket, conf.S3.Region)
	}
	return &S3Store{
		client:    s3.NewFromConfig(cfg),
		bucket:    conf.S3.Bucket,
		publicURL: publicURL,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	// request signing needs a seekable body
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s to S3", key)
	}
	return s.publicURL + "/" + key, nil
}

// New returns an S3Store when a bucket is configured, a MemoryStore otherwise.
func New(ctx context.Context, conf *core.Config) (core.FileStore, error) {
	if conf.S3.Bucket == "" {
		return NewMemoryStore(conf.FrontendBaseURL + "/files"), nil
	}
	return NewS3Store(ctx, conf)
}
