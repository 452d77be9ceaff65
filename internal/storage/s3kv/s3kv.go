/*******************************************************************************
* Copyright (C) 2025 the BasicDB Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package s3kv stores data in S3-compatible object storage. A master
// bucket holds one owners/<owner> JSON object mapping domain names to
// bucket names; each domain gets its own basicdb-<uuid> bucket whose
// objects are keyed by item name and contain the item's attributes as
// JSON lists.
//
// Item writes are whole-object read-modify-write with the last writer
// winning. There is no server-side filtering, so Select fetches the
// domain and evaluates locally. Works against MinIO with a custom
// endpoint and path-style addressing.
package s3kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
	"github.com/basicdb/basicdb-go/internal/storage"
)

const (
	ownerKeyPrefix     = "owners/"
	domainBucketPrefix = "basicdb-"
)

// Config selects the deployment to talk to. Leaving AccessKeyID empty
// falls back to the SDK's default credential chain; Endpoint and
// UsePathStyle point the client at MinIO or another S3 clone.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	MasterBucket    string
}

type Backend struct {
	client       *s3.Client
	masterBucket string
	region       string
}

// New builds the client and makes sure the master bucket exists.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	b := &Backend{client: client, masterBucket: cfg.MasterBucket, region: cfg.Region}
	if err := b.createBucket(ctx, cfg.MasterBucket); err != nil {
		return nil, fmt.Errorf("ensure master bucket: %w", err)
	}
	return b, nil
}

func (b *Backend) createBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if b.region != "" && b.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.region),
		}
	}
	_, err := b.client.CreateBucket(ctx, input)
	if err == nil || isBucketExists(err) {
		return nil
	}
	return err
}

// readOwner returns the owner's domain-to-bucket map; a missing object
// means the owner has no domains.
func (b *Backend) readOwner(ctx context.Context, owner string) (map[string]string, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.masterBucket),
		Key:    aws.String(ownerKeyPrefix + owner),
	})
	if isNoSuchKey(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read owner object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read owner object: %w", err)
	}
	domains := map[string]string{}
	if err := json.Unmarshal(raw, &domains); err != nil {
		return nil, fmt.Errorf("decode owner object: %w", err)
	}
	return domains, nil
}

func (b *Backend) writeOwner(ctx context.Context, owner string, domains map[string]string) error {
	raw, err := json.Marshal(domains)
	if err != nil {
		return fmt.Errorf("encode owner object: %w", err)
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.masterBucket),
		Key:    aws.String(ownerKeyPrefix + owner),
		Body:   bytes.NewReader(raw),
	})
	if err != nil {
		return fmt.Errorf("write owner object: %w", err)
	}
	return nil
}

// ensureDomain returns the domain's bucket, creating bucket and
// mapping when the domain does not exist yet.
func (b *Backend) ensureDomain(ctx context.Context, owner, domain string) (string, error) {
	domains, err := b.readOwner(ctx, owner)
	if err != nil {
		return "", err
	}
	if bucket, ok := domains[domain]; ok {
		return bucket, nil
	}
	bucket := domainBucketPrefix + uuid.NewString()
	if err := b.createBucket(ctx, bucket); err != nil {
		return "", fmt.Errorf("create domain bucket: %w", err)
	}
	domains[domain] = bucket
	if err := b.writeOwner(ctx, owner, domains); err != nil {
		return "", err
	}
	return bucket, nil
}

func (b *Backend) CreateDomain(ctx context.Context, owner, domain string) error {
	_, err := b.ensureDomain(ctx, owner, domain)
	return err
}

func (b *Backend) DeleteDomain(ctx context.Context, owner, domain string) error {
	domains, err := b.readOwner(ctx, owner)
	if err != nil {
		return err
	}
	bucket, ok := domains[domain]
	if !ok {
		return nil
	}
	if err := b.emptyBucket(ctx, bucket); err != nil {
		return err
	}
	if _, err := b.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("delete domain bucket: %w", err)
	}
	delete(domains, domain)
	return b.writeOwner(ctx, owner, domains)
}

func (b *Backend) emptyBucket(ctx context.Context, bucket string) error {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list domain bucket: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids},
		})
		if err != nil {
			return fmt.Errorf("empty domain bucket: %w", err)
		}
	}
	return nil
}

func (b *Backend) ListDomains(ctx context.Context, owner string) ([]string, error) {
	domains, err := b.readOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(domains))
	for name := range domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Backend) DomainMetadata(ctx context.Context, owner, domain string) (model.DomainMetadata, error) {
	var md model.DomainMetadata
	domains, err := b.readOwner(ctx, owner)
	if err != nil {
		return model.DomainMetadata{}, err
	}
	if bucket, ok := domains[domain]; ok {
		items, err := b.readDomainItems(ctx, bucket)
		if err != nil {
			return model.DomainMetadata{}, err
		}
		byName := make(map[string]model.Attributes, len(items))
		for _, it := range items {
			byName[it.Name] = it.Attrs
		}
		md = model.MeasureDomain(byName)
	}
	md.Timestamp = time.Now().Unix()
	return md, nil
}

func (b *Backend) GetAttributes(ctx context.Context, owner, domain, item string) (model.Attributes, error) {
	domains, err := b.readOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	bucket, ok := domains[domain]
	if !ok {
		return model.Attributes{}, nil
	}
	return b.readItem(ctx, bucket, item)
}

func (b *Backend) readItem(ctx context.Context, bucket, item string) (model.Attributes, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(item),
	})
	if isNoSuchKey(err) {
		return model.Attributes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read item object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read item object: %w", err)
	}
	lists := map[string][]string{}
	if err := json.Unmarshal(raw, &lists); err != nil {
		return nil, fmt.Errorf("decode item object: %w", err)
	}
	return model.AttributesFromLists(lists), nil
}

func (b *Backend) writeItem(ctx context.Context, bucket, item string, attrs model.Attributes) error {
	if attrs.Empty() {
		_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(item),
		})
		if err != nil {
			return fmt.Errorf("delete item object: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(attrs.Lists())
	if err != nil {
		return fmt.Errorf("encode item object: %w", err)
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(item),
		Body:   bytes.NewReader(raw),
	})
	if err != nil {
		return fmt.Errorf("write item object: %w", err)
	}
	return nil
}

func (b *Backend) AddAttributeValue(ctx context.Context, owner, domain, item, attr, value string) error {
	bucket, err := b.ensureDomain(ctx, owner, domain)
	if err != nil {
		return err
	}
	attrs, err := b.readItem(ctx, bucket, item)
	if err != nil {
		return err
	}
	attrs.Add(attr, value)
	return b.writeItem(ctx, bucket, item, attrs)
}

func (b *Backend) DeleteAttributeAll(ctx context.Context, owner, domain, item, attr string) error {
	return b.updateItem(ctx, owner, domain, item, func(attrs model.Attributes) {
		delete(attrs, attr)
	})
}

func (b *Backend) DeleteAttributeValue(ctx context.Context, owner, domain, item, attr, value string) error {
	return b.updateItem(ctx, owner, domain, item, func(attrs model.Attributes) {
		set, ok := attrs[attr]
		if !ok {
			return
		}
		set.Remove(value)
		if set.Len() == 0 {
			delete(attrs, attr)
		}
	})
}

func (b *Backend) updateItem(ctx context.Context, owner, domain, item string, mutate func(model.Attributes)) error {
	domains, err := b.readOwner(ctx, owner)
	if err != nil {
		return err
	}
	bucket, ok := domains[domain]
	if !ok {
		return nil
	}
	attrs, err := b.readItem(ctx, bucket, item)
	if err != nil {
		return err
	}
	if attrs.Empty() {
		return nil
	}
	mutate(attrs)
	return b.writeItem(ctx, bucket, item, attrs)
}

func (b *Backend) Select(ctx context.Context, owner string, q *query.Query) (query.Results, error) {
	domains, err := b.readOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	bucket, ok := domains[q.Domain]
	if !ok {
		return query.Execute(q, nil)
	}
	items, err := b.readDomainItems(ctx, bucket)
	if err != nil {
		return nil, err
	}
	return query.Execute(q, items)
}

// readDomainItems fetches every item object in the bucket. List
// results come back in key order, so items are already sorted by name.
func (b *Backend) readDomainItems(ctx context.Context, bucket string) ([]query.Item, error) {
	var items []query.Item
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list domain bucket: %w", err)
		}
		for _, obj := range page.Contents {
			name := aws.ToString(obj.Key)
			attrs, err := b.readItem(ctx, bucket, name)
			if err != nil {
				return nil, err
			}
			if attrs.Empty() {
				continue
			}
			items = append(items, query.Item{Name: name, Attrs: attrs})
		}
	}
	return items, nil
}

func (b *Backend) CheckExpectation(ctx context.Context, owner, domain, item string, exp model.Expectation) error {
	attrs, err := b.GetAttributes(ctx, owner, domain, item)
	if err != nil {
		return err
	}
	return storage.EvaluateExpectation(attrs, exp)
}

// Reset deletes every owner's domains and owner objects from the
// master bucket. Test hook.
func (b *Backend) Reset(ctx context.Context) error {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.masterBucket),
		Prefix: aws.String(ownerKeyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list owners: %w", err)
		}
		for _, obj := range page.Contents {
			owner := strings.TrimPrefix(aws.ToString(obj.Key), ownerKeyPrefix)
			domains, err := b.readOwner(ctx, owner)
			if err != nil {
				return err
			}
			for domain := range domains {
				if err := b.DeleteDomain(ctx, owner, domain); err != nil {
					return err
				}
			}
			_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(b.masterBucket),
				Key:    aws.String(ownerKeyPrefix + owner),
			})
			if err != nil {
				return fmt.Errorf("delete owner object: %w", err)
			}
		}
	}
	return nil
}

// isNoSuchKey matches both the typed error AWS returns and the bare
// API code some S3 clones send.
func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}

func isBucketExists(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var exists *types.BucketAlreadyExists
	if errors.As(err, &exists) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "BucketAlreadyOwnedByYou" || apiErr.ErrorCode() == "BucketAlreadyExists")
}
