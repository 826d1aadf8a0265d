// Copyright (c) 2025 The centralised-logging Authors
//
// This file is part of centralised-logging.
//
// centralised-logging is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the centralised-logging maintainers for commercial licensing options.

// Package minio implements the object store interface for MinIO and other
// S3-compatible servers using the AWS SDK for Go v1.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"

	"github.com/aws/aws-sdk-go/aws"                 //nolint:staticcheck // Using v1 SDK for S3-compatible servers
	"github.com/aws/aws-sdk-go/aws/awserr"          //nolint:staticcheck // Using v1 SDK for S3-compatible servers
	"github.com/aws/aws-sdk-go/aws/credentials"    //nolint:staticcheck // Using v1 SDK for S3-compatible servers
	"github.com/aws/aws-sdk-go/aws/session"        //nolint:staticcheck // Using v1 SDK for S3-compatible servers
	"github.com/aws/aws-sdk-go/service/s3"         //nolint:staticcheck // Using v1 SDK for S3-compatible servers
	"github.com/aws/aws-sdk-go/service/s3/s3iface" //nolint:staticcheck // Using v1 SDK for S3-compatible servers
)

// MinIO is an object store backed by a MinIO server or another
// S3-compatible endpoint that needs path-style addressing.
type MinIO struct {
	svc s3iface.S3API
}

// New creates a new MinIO storage backend.
func New() common.ObjectStore {
	return &MinIO{}
}

// Configure sets up the backend with the necessary settings.
// Required settings:
//   - endpoint: MinIO server endpoint (e.g., "http://localhost:9000")
//   - accessKey: MinIO access key
//   - secretKey: MinIO secret key
//
// Optional settings:
//   - region: AWS region (defaults to "us-east-1")
func (m *MinIO) Configure(settings map[string]string) error {
	endpoint := settings["endpoint"]
	if endpoint == "" {
		return common.ErrEndpointNotSet
	}

	accessKey := settings["accessKey"]
	if accessKey == "" {
		return common.ErrAccessKeyNotSet
	}

	secretKey := settings["secretKey"]
	if secretKey == "" {
		return common.ErrSecretKeyNotSet
	}

	region := settings["region"]
	if region == "" {
		region = "us-east-1"
	}

	cfg := &aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(endpoint),
		S3ForcePathStyle: aws.Bool(true), // MinIO requires path-style addressing
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return err
	}

	m.svc = s3.New(sess)
	return nil
}

func (m *MinIO) client() (s3iface.S3API, error) {
	if m.svc == nil {
		return nil, common.ErrNotConfigured
	}
	return m.svc, nil
}

// PutObject stores an object with associated metadata.
func (m *MinIO) PutObject(ctx context.Context, bucket, key string, data io.Reader, metadata *common.Metadata) error {
	svc, err := m.client()
	if err != nil {
		return err
	}
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf),
	}
	if metadata != nil {
		if metadata.ContentType != "" {
			input.ContentType = aws.String(metadata.ContentType)
		}
		if metadata.ContentEncoding != "" {
			input.ContentEncoding = aws.String(metadata.ContentEncoding)
		}
		input.Metadata = toAWSMetadata(metadata.Custom)
	}

	_, err = svc.PutObjectWithContext(ctx, input)
	return translateError(err, bucket, key)
}

// GetObject retrieves an object from the backend.
func (m *MinIO) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	svc, err := m.client()
	if err != nil {
		return nil, err
	}
	result, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(err, bucket, key)
	}
	return result.Body, nil
}

// HeadObject retrieves only the metadata for an object.
func (m *MinIO) HeadObject(ctx context.Context, bucket, key string) (*common.Metadata, error) {
	svc, err := m.client()
	if err != nil {
		return nil, err
	}
	result, err := svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(err, bucket, key)
	}

	metadata := &common.Metadata{
		ContentType:     aws.StringValue(result.ContentType),
		ContentEncoding: aws.StringValue(result.ContentEncoding),
		Size:            aws.Int64Value(result.ContentLength),
		LastModified:    aws.TimeValue(result.LastModified),
		ETag:            strings.Trim(aws.StringValue(result.ETag), `"`),
	}
	if len(result.Metadata) > 0 {
		metadata.Custom = make(map[string]string, len(result.Metadata))
		for k, v := range result.Metadata {
			// v1 returns canonical header casing; user metadata keys are lower-case
			metadata.Custom[strings.ToLower(k)] = aws.StringValue(v)
		}
	}
	return metadata, nil
}

// CopyObject performs a server-side copy.
func (m *MinIO) CopyObject(ctx context.Context, in *common.CopyInput) error {
	if in == nil {
		return common.ErrCopyInputNil
	}
	svc, err := m.client()
	if err != nil {
		return err
	}

	directive := in.MetadataDirective
	if directive == "" {
		directive = common.MetadataCopy
	}
	if !directive.Valid() {
		return fmt.Errorf("%w: %s", common.ErrInvalidMetadataDirective, directive)
	}

	input := &s3.CopyObjectInput{
		Bucket:            aws.String(in.DestBucket),
		Key:               aws.String(in.DestKey),
		CopySource:        aws.String(common.EncodeCopySource(in.SourceBucket, in.SourceKey)),
		MetadataDirective: aws.String(string(directive)),
	}
	if directive == common.MetadataReplace && in.Metadata != nil {
		if in.Metadata.ContentType != "" {
			input.ContentType = aws.String(in.Metadata.ContentType)
		}
		if in.Metadata.ContentEncoding != "" {
			input.ContentEncoding = aws.String(in.Metadata.ContentEncoding)
		}
		input.Metadata = toAWSMetadata(in.Metadata.Custom)
	}
	if in.ACL != "" {
		input.ACL = aws.String(in.ACL)
	}

	_, err = svc.CopyObjectWithContext(ctx, input)
	return translateError(err, in.SourceBucket, in.SourceKey)
}

// DeleteObject removes an object. Missing keys are not an error.
func (m *MinIO) DeleteObject(ctx context.Context, bucket, key string) error {
	svc, err := m.client()
	if err != nil {
		return err
	}
	_, err = svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	err = translateError(err, bucket, key)
	if common.IsNotFound(err) {
		return nil
	}
	return err
}

// ListObjects returns one page of objects under a prefix.
func (m *MinIO) ListObjects(ctx context.Context, bucket string, opts *common.ListOptions) (*common.ListResult, error) {
	svc, err := m.client()
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(opts.Prefix),
	}
	if opts.MaxResults > 0 {
		input.MaxKeys = aws.Int64(int64(opts.MaxResults))
	}
	if opts.ContinueFrom != "" {
		input.ContinuationToken = aws.String(opts.ContinueFrom)
	}

	result, err := svc.ListObjectsV2WithContext(ctx, input)
	if err != nil {
		return nil, translateError(err, bucket, opts.Prefix)
	}

	// Pre-allocate with reasonable capacity to reduce allocations
	list := &common.ListResult{
		Objects:   make([]*common.ObjectInfo, 0, len(result.Contents)),
		Truncated: aws.BoolValue(result.IsTruncated),
		NextToken: aws.StringValue(result.NextContinuationToken),
	}
	for _, obj := range result.Contents {
		if obj.Key == nil {
			continue
		}
		list.Objects = append(list.Objects, &common.ObjectInfo{
			Key: *obj.Key,
			Metadata: &common.Metadata{
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
				ETag:         strings.Trim(aws.StringValue(obj.ETag), `"`),
			},
		})
	}
	return list, nil
}

func toAWSMetadata(custom map[string]string) map[string]*string {
	if len(custom) == 0 {
		return nil
	}
	out := make(map[string]*string, len(custom))
	for k, v := range custom {
		out[k] = aws.String(v)
	}
	return out
}

// translateError maps v1 SDK error codes onto the common sentinels.
func translateError(err error, bucket, key string) error {
	if err == nil {
		return nil
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return fmt.Errorf("%w: %s: %w", common.ErrKeyNotFound, key, err)
		case s3.ErrCodeNoSuchBucket:
			return fmt.Errorf("%w: %s: %w", common.ErrBucketNotFound, bucket, err)
		}
	}
	return err
}
