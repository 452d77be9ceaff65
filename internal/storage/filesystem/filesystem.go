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

// Package filesystem stores data as a directory tree:
//
//	<base>/<owner>/<domain>/<item>/<attribute>/<md5 of value>
//
// Each value is one file named by the hex MD5 digest of the value and
// containing the raw value bytes, which makes adds naturally
// idempotent and keeps arbitrary values out of file names. Directories
// are pruned as their last entry goes, so the on-disk tree mirrors the
// empty-set erasure rule.
package filesystem

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
	"github.com/basicdb/basicdb-go/internal/storage"
)

type Backend struct {
	base string
}

func New(baseDir string) (*Backend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &Backend{base: baseDir}, nil
}

func (b *Backend) CreateDomain(_ context.Context, owner, domain string) error {
	if err := os.MkdirAll(b.domainDir(owner, domain), 0o755); err != nil {
		return fmt.Errorf("create domain: %w", err)
	}
	return nil
}

func (b *Backend) DeleteDomain(_ context.Context, owner, domain string) error {
	if err := os.RemoveAll(b.domainDir(owner, domain)); err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	return nil
}

func (b *Backend) ListDomains(_ context.Context, owner string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(b.base, owner))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	domains := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			domains = append(domains, e.Name())
		}
	}
	return domains, nil
}

func (b *Backend) DomainMetadata(_ context.Context, owner, domain string) (model.DomainMetadata, error) {
	items, err := b.readDomain(owner, domain)
	if err != nil {
		return model.DomainMetadata{}, err
	}
	md := model.MeasureDomain(items)
	md.Timestamp = time.Now().Unix()
	return md, nil
}

func (b *Backend) GetAttributes(_ context.Context, owner, domain, item string) (model.Attributes, error) {
	return b.readItem(b.itemDir(owner, domain, item))
}

func (b *Backend) AddAttributeValue(_ context.Context, owner, domain, item, attr, value string) error {
	dir := b.attrDir(owner, domain, item, attr)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create attribute directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, digest(value)), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write value: %w", err)
	}
	return nil
}

func (b *Backend) DeleteAttributeAll(_ context.Context, owner, domain, item, attr string) error {
	if err := os.RemoveAll(b.attrDir(owner, domain, item, attr)); err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	pruneEmptyDir(b.itemDir(owner, domain, item))
	return nil
}

func (b *Backend) DeleteAttributeValue(_ context.Context, owner, domain, item, attr, value string) error {
	path := filepath.Join(b.attrDir(owner, domain, item, attr), digest(value))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete value: %w", err)
	}
	pruneEmptyDir(b.attrDir(owner, domain, item, attr))
	pruneEmptyDir(b.itemDir(owner, domain, item))
	return nil
}

func (b *Backend) Select(_ context.Context, owner string, q *query.Query) (query.Results, error) {
	domainDir := b.domainDir(owner, q.Domain)
	entries, err := os.ReadDir(domainDir)
	if os.IsNotExist(err) {
		return query.Execute(q, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]query.Item, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		attrs, err := b.readItem(filepath.Join(domainDir, e.Name()))
		if err != nil {
			return nil, err
		}
		if !attrs.Empty() {
			items = append(items, query.Item{Name: e.Name(), Attrs: attrs})
		}
	}
	return query.Execute(q, items)
}

func (b *Backend) CheckExpectation(ctx context.Context, owner, domain, item string, exp model.Expectation) error {
	attrs, err := b.GetAttributes(ctx, owner, domain, item)
	if err != nil {
		return err
	}
	return storage.EvaluateExpectation(attrs, exp)
}

// Reset wipes the whole tree. Test hook.
func (b *Backend) Reset(context.Context) error {
	if err := os.RemoveAll(b.base); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return os.MkdirAll(b.base, 0o755)
}

func (b *Backend) readDomain(owner, domain string) (map[string]model.Attributes, error) {
	domainDir := b.domainDir(owner, domain)
	entries, err := os.ReadDir(domainDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make(map[string]model.Attributes, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		attrs, err := b.readItem(filepath.Join(domainDir, e.Name()))
		if err != nil {
			return nil, err
		}
		items[e.Name()] = attrs
	}
	return items, nil
}

func (b *Backend) readItem(itemDir string) (model.Attributes, error) {
	attrs := model.Attributes{}
	attrEntries, err := os.ReadDir(itemDir)
	if os.IsNotExist(err) {
		return attrs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read item: %w", err)
	}
	for _, attrEntry := range attrEntries {
		if !attrEntry.IsDir() {
			continue
		}
		attrDir := filepath.Join(itemDir, attrEntry.Name())
		valueEntries, err := os.ReadDir(attrDir)
		if err != nil {
			return nil, fmt.Errorf("read attribute: %w", err)
		}
		set := model.NewValueSet()
		for _, valueEntry := range valueEntries {
			raw, err := os.ReadFile(filepath.Join(attrDir, valueEntry.Name()))
			if err != nil {
				return nil, fmt.Errorf("read value: %w", err)
			}
			set.Add(string(raw))
		}
		if set.Len() > 0 {
			attrs[attrEntry.Name()] = set
		}
	}
	return attrs, nil
}

func (b *Backend) domainDir(owner, domain string) string {
	return filepath.Join(b.base, owner, domain)
}

func (b *Backend) itemDir(owner, domain, item string) string {
	return filepath.Join(b.base, owner, domain, item)
}

func (b *Backend) attrDir(owner, domain, item, attr string) string {
	return filepath.Join(b.base, owner, domain, item, attr)
}

func digest(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}

// pruneEmptyDir removes a directory if it has no entries left, so
// empty attributes and items disappear from the tree.
func pruneEmptyDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(dir)
}
