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

package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtp-saini-harmit/centralised-logging/pkg/common"
)

type mockS3Client struct {
	putObjectInput    *s3.PutObjectInput
	copyObjectInput   *s3.CopyObjectInput
	deleteObjectInput *s3.DeleteObjectInput
	listInput         *s3.ListObjectsV2Input

	getObjectOutput     *s3.GetObjectOutput
	headObjectOutput    *s3.HeadObjectOutput
	listObjectsV2Output *s3.ListObjectsV2Output

	putObjectError     error
	getObjectError     error
	headObjectError    error
	copyObjectError    error
	deleteObjectError  error
	listObjectsV2Error error
}

func (m *mockS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.putObjectInput = in
	if m.putObjectError != nil {
		return nil, m.putObjectError
	}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getObjectError != nil {
		return nil, m.getObjectError
	}
	return m.getObjectOutput, nil
}

func (m *mockS3Client) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.headObjectError != nil {
		return nil, m.headObjectError
	}
	return m.headObjectOutput, nil
}

func (m *mockS3Client) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	m.copyObjectInput = in
	if m.copyObjectError != nil {
		return nil, m.copyObjectError
	}
	return &s3.CopyObjectOutput{}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.deleteObjectInput = in
	if m.deleteObjectError != nil {
		return nil, m.deleteObjectError
	}
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.listInput = in
	if m.listObjectsV2Error != nil {
		return nil, m.listObjectsV2Error
	}
	return m.listObjectsV2Output, nil
}

func TestCopyObjectReplace(t *testing.T) {
	mock := &mockS3Client{}
	store := NewWithClient(mock)

	err := store.CopyObject(context.Background(), &common.CopyInput{
		SourceBucket:      "targetlogsbucket",
		SourceKey:         "2024/01/02/a b+c.gz",
		DestBucket:        "archivebucket",
		DestKey:           "renamed-logs/renamed-x.gz",
		MetadataDirective: common.MetadataReplace,
		Metadata: &common.Metadata{
			ContentType: "application/gzip",
			Custom:      map[string]string{"source-key": "2024/01/02/a b+c.gz"},
		},
		ACL: "bucket-owner-full-control",
	})
	require.NoError(t, err)

	in := mock.copyObjectInput
	require.NotNil(t, in)
	assert.Equal(t, "archivebucket", aws.ToString(in.Bucket))
	assert.Equal(t, "renamed-logs/renamed-x.gz", aws.ToString(in.Key))
	assert.Equal(t, "targetlogsbucket/2024/01/02/a%20b%2Bc.gz", aws.ToString(in.CopySource))
	assert.Equal(t, types.MetadataDirectiveReplace, in.MetadataDirective)
	assert.Equal(t, "application/gzip", aws.ToString(in.ContentType))
	assert.Equal(t, "2024/01/02/a b+c.gz", in.Metadata["source-key"])
	assert.Equal(t, types.ObjectCannedACLBucketOwnerFullControl, in.ACL)
}

func TestCopyObjectDefaultsToCopyDirective(t *testing.T) {
	mock := &mockS3Client{}
	store := NewWithClient(mock)

	err := store.CopyObject(context.Background(), &common.CopyInput{
		SourceBucket: "b", SourceKey: "k", DestBucket: "b", DestKey: "k2",
		Metadata: &common.Metadata{ContentType: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.MetadataDirectiveCopy, mock.copyObjectInput.MetadataDirective)
	assert.Nil(t, mock.copyObjectInput.ContentType)

	err = store.CopyObject(context.Background(), &common.CopyInput{MetadataDirective: "MERGE"})
	assert.ErrorIs(t, err, common.ErrInvalidMetadataDirective)
	assert.ErrorIs(t, store.CopyObject(context.Background(), nil), common.ErrCopyInputNil)
}

func TestCopyObjectNotFound(t *testing.T) {
	mock := &mockS3Client{copyObjectError: &types.NoSuchKey{}}
	store := NewWithClient(mock)

	err := store.CopyObject(context.Background(), &common.CopyInput{
		SourceBucket: "b", SourceKey: "gone.gz", DestBucket: "b", DestKey: "dst.gz",
	})
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
	assert.Contains(t, err.Error(), "gone.gz")
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKey    bool
		wantBucket bool
	}{
		{name: "nil", err: nil},
		{name: "typed NoSuchKey", err: &types.NoSuchKey{}, wantKey: true},
		{name: "typed NotFound", err: &types.NotFound{}, wantKey: true},
		{name: "typed NoSuchBucket", err: &types.NoSuchBucket{}, wantBucket: true},
		{name: "generic NoSuchKey", err: &smithy.GenericAPIError{Code: "NoSuchKey"}, wantKey: true},
		{name: "generic NoSuchBucket", err: &smithy.GenericAPIError{Code: "NoSuchBucket"}, wantBucket: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}},
		{name: "plain error", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err, "bucket", "key")
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.wantKey, errors.Is(got, common.ErrKeyNotFound))
			assert.Equal(t, tt.wantBucket, errors.Is(got, common.ErrBucketNotFound))
			assert.True(t, errors.Is(got, tt.err))
		})
	}
}

func TestDeleteObject(t *testing.T) {
	mock := &mockS3Client{}
	store := NewWithClient(mock)

	require.NoError(t, store.DeleteObject(context.Background(), "b", "k"))
	assert.Equal(t, "k", aws.ToString(mock.deleteObjectInput.Key))

	mock.deleteObjectError = &smithy.GenericAPIError{Code: "NoSuchKey"}
	assert.NoError(t, store.DeleteObject(context.Background(), "b", "k"))

	mock.deleteObjectError = &smithy.GenericAPIError{Code: "AccessDenied"}
	assert.Error(t, store.DeleteObject(context.Background(), "b", "k"))
}

func TestHeadObject(t *testing.T) {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock := &mockS3Client{headObjectOutput: &s3.HeadObjectOutput{
		ContentType:   aws.String("application/gzip"),
		ContentLength: aws.Int64(42),
		LastModified:  aws.Time(modified),
		ETag:          aws.String(`"abc123"`),
		Metadata:      map[string]string{"source-key": "k"},
	}}
	store := NewWithClient(mock)

	meta, err := store.HeadObject(context.Background(), "b", "k")
	require.NoError(t, err)
	assert.Equal(t, "application/gzip", meta.ContentType)
	assert.Equal(t, int64(42), meta.Size)
	assert.Equal(t, modified, meta.LastModified)
	assert.Equal(t, "abc123", meta.ETag)
	assert.Equal(t, "k", meta.Custom["source-key"])

	mock.headObjectError = &types.NotFound{}
	_, err = store.HeadObject(context.Background(), "b", "k")
	assert.True(t, common.IsNotFound(err))
}

func TestPutAndGetObject(t *testing.T) {
	mock := &mockS3Client{getObjectOutput: &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("body"))}}
	store := NewWithClient(mock)

	err := store.PutObject(context.Background(), "b", "dead-letter/x.json", strings.NewReader("{}"),
		&common.Metadata{ContentType: "application/json", Custom: map[string]string{"reason": "decode"}})
	require.NoError(t, err)
	assert.Equal(t, "application/json", aws.ToString(mock.putObjectInput.ContentType))
	assert.Equal(t, "decode", mock.putObjectInput.Metadata["reason"])

	rc, err := store.GetObject(context.Background(), "b", "k")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))
}

func TestListObjects(t *testing.T) {
	mock := &mockS3Client{listObjectsV2Output: &s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("a/1.gz"), Size: aws.Int64(10), ETag: aws.String(`"e1"`)},
			{Key: nil},
			{Key: aws.String("a/2.gz"), Size: aws.Int64(20)},
		},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}}
	store := NewWithClient(mock)

	res, err := store.ListObjects(context.Background(), "b", &common.ListOptions{Prefix: "a/", MaxResults: 2, ContinueFrom: "tok"})
	require.NoError(t, err)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "e1", res.Objects[0].Metadata.ETag)
	assert.True(t, res.Truncated)
	assert.Equal(t, "next", res.NextToken)
	assert.Equal(t, int32(2), aws.ToInt32(mock.listInput.MaxKeys))
	assert.Equal(t, "tok", aws.ToString(mock.listInput.ContinuationToken))
}

func TestNotConfigured(t *testing.T) {
	store := New()
	_, err := store.HeadObject(context.Background(), "b", "k")
	assert.ErrorIs(t, err, common.ErrNotConfigured)
	assert.ErrorIs(t, store.DeleteObject(context.Background(), "b", "k"), common.ErrNotConfigured)
}

func TestConfigure(t *testing.T) {
	store := New()

	err := store.Configure(map[string]string{"region": "eu-west-1", "accessKey": "AKIA"})
	assert.ErrorIs(t, err, common.ErrSecretKeyNotSet)

	err = store.Configure(map[string]string{"region": "eu-west-1", "secretKey": "s"})
	assert.ErrorIs(t, err, common.ErrAccessKeyNotSet)

	err = store.Configure(map[string]string{
		"region":    "eu-west-1",
		"accessKey": "AKIA",
		"secretKey": "secret",
		"endpoint":  "http://localhost:9000",
		"roleArn":   "arn:aws:iam::123456789012:role/LogWriter",
	})
	require.NoError(t, err)
	assert.NotNil(t, store.(*S3).svc)
}
