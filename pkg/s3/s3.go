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

// Package s3 implements the object store interface on Amazon S3 using the
// AWS SDK for Go v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
)

// API is the subset of *s3.Client used by this backend.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 is an object store backed by Amazon S3 or an S3-compatible endpoint.
type S3 struct {
	svc API
}

// New creates a new, unconfigured S3 backend.
func New() common.ObjectStore {
	return &S3{}
}

// NewWithClient creates an S3 backend around an existing client.
func NewWithClient(client API) *S3 {
	return &S3{svc: client}
}

// Configure sets up the backend with the necessary settings.
// All settings are optional; the SDK default chain fills in anything missing:
//   - region: AWS region
//   - endpoint: custom endpoint URL (enables path-style addressing)
//   - accessKey / secretKey / sessionToken: static credentials
//   - roleArn: role to assume, for writing into another account's bucket
//   - externalId: external id for the assume-role call
//   - usePathStyle: "true" to force path-style addressing
func (s *S3) Configure(settings map[string]string) error {
	ctx := context.TODO()
	var opts []func(*config.LoadOptions) error

	if region := settings["region"]; region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	accessKey, secretKey := settings["accessKey"], settings["secretKey"]
	switch {
	case accessKey != "" && secretKey == "":
		return common.ErrSecretKeyNotSet
	case accessKey == "" && secretKey != "":
		return common.ErrAccessKeyNotSet
	case accessKey != "":
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, settings["sessionToken"])))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return err
	}
	if cfg.Region == "" {
		return common.ErrRegionNotSet
	}

	if roleArn := settings["roleArn"]; roleArn != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleArn,
			func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = "centralised-logging"
				if externalID := settings["externalId"]; externalID != "" {
					o.ExternalID = aws.String(externalID)
				}
			})
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}

	endpoint := settings["endpoint"]
	pathStyle, _ := strconv.ParseBool(settings["usePathStyle"]) //nolint:errcheck // defaults to false
	s.svc = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
		if pathStyle {
			o.UsePathStyle = true
		}
	})
	return nil
}

func (s *S3) client() (API, error) {
	if s.svc == nil {
		return nil, common.ErrNotConfigured
	}
	return s.svc, nil
}

// PutObject stores an object. The body is buffered because the SDK needs a
// seekable body to sign the payload.
func (s *S3) PutObject(ctx context.Context, bucket, key string, data io.Reader, metadata *common.Metadata) error {
	svc, err := s.client()
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
		if len(metadata.Custom) > 0 {
			input.Metadata = metadata.Custom
		}
	}

	_, err = svc.PutObject(ctx, input)
	return translateError(err, bucket, key)
}

// GetObject retrieves an object's content.
func (s *S3) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	svc, err := s.client()
	if err != nil {
		return nil, err
	}
	out, err := svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(err, bucket, key)
	}
	return out.Body, nil
}

// HeadObject retrieves only the metadata for an object.
func (s *S3) HeadObject(ctx context.Context, bucket, key string) (*common.Metadata, error) {
	svc, err := s.client()
	if err != nil {
		return nil, err
	}
	out, err := svc.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(err, bucket, key)
	}

	return &common.Metadata{
		ContentType:     aws.ToString(out.ContentType),
		ContentEncoding: aws.ToString(out.ContentEncoding),
		Size:            aws.ToInt64(out.ContentLength),
		LastModified:    aws.ToTime(out.LastModified),
		ETag:            strings.Trim(aws.ToString(out.ETag), `"`),
		Custom:          out.Metadata,
	}, nil
}

// CopyObject performs a server-side copy. S3 returns only after the
// destination object is durably stored.
func (s *S3) CopyObject(ctx context.Context, in *common.CopyInput) error {
	if in == nil {
		return common.ErrCopyInputNil
	}
	svc, err := s.client()
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
		MetadataDirective: types.MetadataDirective(directive),
	}
	if directive == common.MetadataReplace && in.Metadata != nil {
		if in.Metadata.ContentType != "" {
			input.ContentType = aws.String(in.Metadata.ContentType)
		}
		if in.Metadata.ContentEncoding != "" {
			input.ContentEncoding = aws.String(in.Metadata.ContentEncoding)
		}
		if len(in.Metadata.Custom) > 0 {
			input.Metadata = in.Metadata.Custom
		}
	}
	if in.ACL != "" {
		input.ACL = types.ObjectCannedACL(in.ACL)
	}

	_, err = svc.CopyObject(ctx, input)
	return translateError(err, in.SourceBucket, in.SourceKey)
}

// DeleteObject removes an object. S3 reports success for missing keys; some
// S3-compatible stores return NoSuchKey instead, which is also treated as success.
func (s *S3) DeleteObject(ctx context.Context, bucket, key string) error {
	svc, err := s.client()
	if err != nil {
		return err
	}
	_, err = svc.DeleteObject(ctx, &s3.DeleteObjectInput{
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
func (s *S3) ListObjects(ctx context.Context, bucket string, opts *common.ListOptions) (*common.ListResult, error) {
	svc, err := s.client()
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.MaxResults > 0 {
		input.MaxKeys = aws.Int32(int32(opts.MaxResults)) //nolint:gosec // bounded by caller
	}
	if opts.ContinueFrom != "" {
		input.ContinuationToken = aws.String(opts.ContinueFrom)
	}

	out, err := svc.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, translateError(err, bucket, opts.Prefix)
	}

	result := &common.ListResult{
		Objects:   make([]*common.ObjectInfo, 0, len(out.Contents)),
		Truncated: aws.ToBool(out.IsTruncated),
		NextToken: aws.ToString(out.NextContinuationToken),
	}
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		result.Objects = append(result.Objects, &common.ObjectInfo{
			Key: *obj.Key,
			Metadata: &common.Metadata{
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
			},
		})
	}
	return result, nil
}

// translateError maps SDK not-found errors onto the common sentinels.
func translateError(err error, bucket, key string) error {
	if err == nil {
		return nil
	}

	var (
		noSuchKey    *types.NoSuchKey
		notFound     *types.NotFound
		noSuchBucket *types.NoSuchBucket
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return fmt.Errorf("%w: %s: %w", common.ErrKeyNotFound, key, err)
	case errors.As(err, &noSuchBucket):
		return fmt.Errorf("%w: %s: %w", common.ErrBucketNotFound, bucket, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s: %w", common.ErrKeyNotFound, key, err)
		case "NoSuchBucket":
			return fmt.Errorf("%w: %s: %w", common.ErrBucketNotFound, bucket, err)
		}
	}
	return err
}
