package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// S3Storage archives generated analytics reports.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

type StoredObject struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func NewS3Storage(region, bucket, accessKeyID, secretAccessKey, prefix string) *S3Storage {
	var cfg aws.Config
	var err error

	// static keys when configured, otherwise the default credential chain
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region: region,
			Credentials: credentials.NewStaticCredentialsProvider(
				accessKeyID,
				secretAccessKey,
				"",
			),
		}
	} else {
		cfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(region),
		)
		if err != nil {
			cfg = aws.Config{
				Region: region,
			}
		}
	}

	if prefix == "" {
		prefix = "reports"
	}

	return &S3Storage{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
	}
}

// ReportKey builds reports/<yyyy-mm-dd>/<name>-<uuid>.xlsx; the uuid keeps reruns from overwriting each other.
func ReportKey(prefix, name string, day time.Time) string {
	return path.Join(prefix, day.Format("2006-01-02"), fmt.Sprintf("%s-%s.xlsx", name, uuid.New().String()))
}

// PutReport uploads an XLSX workbook under a fresh key.
func (s *S3Storage) PutReport(ctx context.Context, name string, day time.Time, body []byte) (*StoredObject, error) {
	key := ReportKey(s.prefix, name, day)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(XLSXContentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	return &StoredObject{
		Key: key,
		URL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.client.Options().Region, key),
	}, nil
}
