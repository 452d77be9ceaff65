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

// Package memory holds everything in process memory behind one
// read-write lock. It is the default backend and the reference for the
// storage semantics the other backends must reproduce.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
	"github.com/basicdb/basicdb-go/internal/storage"
)

// Backend keeps owner -> domain -> item -> attributes in nested maps.
// Reads hand out clones, never views into the live maps.
type Backend struct {
	mu     sync.RWMutex
	owners map[string]map[string]map[string]model.Attributes
}

func New() *Backend {
	return &Backend{owners: make(map[string]map[string]map[string]model.Attributes)}
}

func (b *Backend) CreateDomain(_ context.Context, owner, domain string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ensureDomain(owner, domain)
	return nil
}

func (b *Backend) DeleteDomain(_ context.Context, owner, domain string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.owners[owner], domain)
	return nil
}

func (b *Backend) ListDomains(_ context.Context, owner string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	domains := make([]string, 0, len(b.owners[owner]))
	for name := range b.owners[owner] {
		domains = append(domains, name)
	}
	sort.Strings(domains)
	return domains, nil
}

func (b *Backend) DomainMetadata(_ context.Context, owner, domain string) (model.DomainMetadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	md := model.MeasureDomain(b.owners[owner][domain])
	md.Timestamp = time.Now().Unix()
	return md, nil
}

func (b *Backend) GetAttributes(_ context.Context, owner, domain, item string) (model.Attributes, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	attrs := b.owners[owner][domain][item]
	if attrs == nil {
		return model.Attributes{}, nil
	}
	return attrs.Clone(), nil
}

func (b *Backend) AddAttributeValue(_ context.Context, owner, domain, item, attr, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.ensureDomain(owner, domain)
	attrs, ok := items[item]
	if !ok {
		attrs = model.Attributes{}
		items[item] = attrs
	}
	set, ok := attrs[attr]
	if !ok {
		set = model.NewValueSet()
		attrs[attr] = set
	}
	set.Add(value)
	return nil
}

func (b *Backend) DeleteAttributeAll(_ context.Context, owner, domain, item, attr string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	attrs := b.owners[owner][domain][item]
	if attrs == nil {
		return nil
	}
	delete(attrs, attr)
	if attrs.Empty() {
		delete(b.owners[owner][domain], item)
	}
	return nil
}

func (b *Backend) DeleteAttributeValue(_ context.Context, owner, domain, item, attr, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	attrs := b.owners[owner][domain][item]
	if attrs == nil {
		return nil
	}
	set, ok := attrs[attr]
	if !ok {
		return nil
	}
	set.Remove(value)
	if set.Len() == 0 {
		delete(attrs, attr)
	}
	if attrs.Empty() {
		delete(b.owners[owner][domain], item)
	}
	return nil
}

func (b *Backend) Select(_ context.Context, owner string, q *query.Query) (query.Results, error) {
	items := b.snapshot(owner, q.Domain)
	return query.Execute(q, items)
}

func (b *Backend) CheckExpectation(ctx context.Context, owner, domain, item string, exp model.Expectation) error {
	attrs, err := b.GetAttributes(ctx, owner, domain, item)
	if err != nil {
		return err
	}
	return storage.EvaluateExpectation(attrs, exp)
}

// Reset drops all data of all owners. Test hook.
func (b *Backend) Reset(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owners = make(map[string]map[string]map[string]model.Attributes)
	return nil
}

// snapshot clones a domain's items in natural (sorted name) order.
func (b *Backend) snapshot(owner, domain string) []query.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	stored := b.owners[owner][domain]
	items := make([]query.Item, 0, len(stored))
	for name, attrs := range stored {
		items = append(items, query.Item{Name: name, Attrs: attrs.Clone()})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func (b *Backend) ensureDomain(owner, domain string) map[string]model.Attributes {
	domains, ok := b.owners[owner]
	if !ok {
		domains = make(map[string]map[string]model.Attributes)
		b.owners[owner] = domains
	}
	items, ok := domains[domain]
	if !ok {
		items = make(map[string]model.Attributes)
		domains[domain] = items
	}
	return items
}
