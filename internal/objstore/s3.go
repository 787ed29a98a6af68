// Copyright 2025 The Pubflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package objstore

import (
	"context"
	"errors"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store implements Store on Amazon S3.
type S3Store struct {
	client S3API
}

// NewS3Store creates a store backed by the given S3 client.
func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client}
}

// List returns keys under the address key prefix in lexicographic order,
// following continuation tokens until the listing is exhausted.
func (s *S3Store) List(ctx context.Context, addr Address) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(addr.Bucket),
			Prefix:            aws.String(addr.Key),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, &IoError{Address: addr, Op: "list", Err: err}
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(keys)
	return keys, nil
}

// Get copies the object body into w.
func (s *S3Store) Get(ctx context.Context, addr Address, w io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(addr.Bucket),
		Key:    aws.String(addr.Key),
	})
	if err != nil {
		return &IoError{Address: addr, Op: "get", Err: err}
	}
	defer out.Body.Close()
	if _, err := io.Copy(w, out.Body); err != nil {
		return &IoError{Address: addr, Op: "get", Err: err}
	}
	return nil
}

// Put writes r as the object body.
func (s *S3Store) Put(ctx context.Context, addr Address, r io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(addr.Bucket),
		Key:    aws.String(addr.Key),
		Body:   r,
	})
	if err != nil {
		return &IoError{Address: addr, Op: "put", Err: err}
	}
	return nil
}

// Copy duplicates src to dst.
func (s *S3Store) Copy(ctx context.Context, src, dst Address) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dst.Bucket),
		Key:        aws.String(dst.Key),
		CopySource: aws.String(src.Bucket + "/" + src.Key),
	})
	if err != nil {
		return &IoError{Address: src, Op: "copy", Err: err}
	}
	return nil
}

// Delete removes the object.
func (s *S3Store) Delete(ctx context.Context, addr Address) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(addr.Bucket),
		Key:    aws.String(addr.Key),
	})
	if err != nil {
		return &IoError{Address: addr, Op: "delete", Err: err}
	}
	return nil
}

// Exists reports whether the object is present. A missing key is not an
// error.
func (s *S3Store) Exists(ctx context.Context, addr Address) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(addr.Bucket),
		Key:    aws.String(addr.Key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, &IoError{Address: addr, Op: "head", Err: err}
	}
	return true, nil
}
