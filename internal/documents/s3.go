/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/chat-engine/internal/chat"
)

const (
	DefaultMaxObjectSize int64 = 1 << 20
	MetadataSource             = "source"
	MetadataModTime            = "mod_time"
)

var ErrObjectTooLarge = errors.New("object size exceeds limit")

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config locates the objects loaded as documents.
type S3Config struct {
	Bucket          string `json:"bucket" yaml:"bucket"`
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	Prefix          string `json:"prefix" yaml:"prefix"`
	UsePathStyle    bool   `json:"use_path_style" yaml:"use_path_style"`
	// MaxObjectSize skips larger objects. Zero uses DefaultMaxObjectSize.
	MaxObjectSize int64 `json:"max_object_size" yaml:"max_object_size"`
}

// S3Loader reads every object under a prefix as one document.
type S3Loader struct {
	s3Client      s3API
	bucket        string
	prefix        string
	maxObjectSize int64
}

func NewS3Loader(ctx context.Context, cfg S3Config) (*S3Loader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is empty")
	}
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return newS3Loader(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

func newS3Loader(client s3API, cfg S3Config) *S3Loader {
	maxSize := cfg.MaxObjectSize
	if maxSize <= 0 {
		maxSize = DefaultMaxObjectSize
	}
	return &S3Loader{
		s3Client:      client,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		maxObjectSize: maxSize,
	}
}

// Load lists the prefix page by page and reads every object. Directory markers and
// objects larger than the size limit are skipped.
func (l *S3Loader) Load(ctx context.Context) ([]chat.Document, error) {
	logger := klog.FromContext(ctx).WithValues("bucket", l.bucket, "prefix", l.prefix)

	var docs []chat.Document
	var continuationToken *string
	for {
		out, err := l.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(l.bucket),
			Prefix:            aws.String(l.prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			if aws.ToInt64(obj.Size) > l.maxObjectSize {
				logger.Info("Load: skipping large object", "key", key, "size", aws.ToInt64(obj.Size))
				continue
			}
			doc, err := l.read(ctx, key)
			if err != nil {
				return nil, err
			}
			if obj.LastModified != nil {
				doc.Metadata[MetadataModTime] = obj.LastModified.UTC().Format(time.RFC3339)
			}
			docs = append(docs, doc)
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	logger.Info("Load: succeeded", "documents", len(docs))
	return docs, nil
}

func (l *S3Loader) read(ctx context.Context, key string) (chat.Document, error) {
	out, err := l.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return chat.Document{}, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(io.LimitReader(out.Body, l.maxObjectSize+1))
	if err != nil {
		return chat.Document{}, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	if int64(len(data)) > l.maxObjectSize {
		return chat.Document{}, fmt.Errorf("%w: %s", ErrObjectTooLarge, key)
	}
	return chat.Document{
		ID:       key,
		Content:  string(data),
		Metadata: map[string]any{MetadataSource: "s3://" + l.bucket + "/" + key},
	}, nil
}
