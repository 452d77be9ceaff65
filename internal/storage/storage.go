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

// Package storage defines the contract between the API layer and the
// concrete backends. A backend implements only the leaf primitives of
// the Driver interface; every compound operation (whole-attribute
// writes, conditional puts, batches) is derived from those primitives
// by Store, so all backends share one semantics by construction.
package storage

import (
	"context"
	"sort"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
)

// Driver is the minimal operation set a backend implements. All data
// is scoped by owner first: two owners never see each other's domains.
//
// Reads of nonexistent domains, items or attributes return empty
// results, never errors. Writes to a nonexistent domain bring the
// domain into existence. Deletes of things already gone are no-ops.
type Driver interface {
	// CreateDomain makes the domain exist; creating an existing domain
	// is a no-op.
	CreateDomain(ctx context.Context, owner, domain string) error

	// DeleteDomain removes the domain and everything in it.
	DeleteDomain(ctx context.Context, owner, domain string) error

	// ListDomains returns the owner's domain names in sorted order.
	ListDomains(ctx context.Context, owner string) ([]string, error)

	// DomainMetadata counts items, attribute names and values and
	// their byte sizes.
	DomainMetadata(ctx context.Context, owner, domain string) (model.DomainMetadata, error)

	// GetAttributes returns all attributes of an item; empty when the
	// item does not exist.
	GetAttributes(ctx context.Context, owner, domain, item string) (model.Attributes, error)

	// AddAttributeValue adds one value to an attribute's set.
	AddAttributeValue(ctx context.Context, owner, domain, item, attr, value string) error

	// DeleteAttributeAll removes an attribute with all its values.
	DeleteAttributeAll(ctx context.Context, owner, domain, item, attr string) error

	// DeleteAttributeValue removes one value from an attribute's set.
	// Removing the last value removes the attribute; removing the last
	// attribute removes the item.
	DeleteAttributeValue(ctx context.Context, owner, domain, item, attr, value string) error

	// Select runs a parsed query against the domain it names.
	Select(ctx context.Context, owner string, q *query.Query) (query.Results, error)

	// CheckExpectation verifies one conditional-put expectation against
	// the item's current state and returns a typed API error when it
	// does not hold.
	CheckExpectation(ctx context.Context, owner, domain, item string, exp model.Expectation) error
}

// Store layers the compound operations over a Driver. Map iteration is
// in sorted key order so partial failures and backend write order are
// deterministic.
type Store struct {
	Driver
}

func NewStore(d Driver) *Store {
	return &Store{Driver: d}
}

// AddAttribute adds every value of the set to the attribute.
func (s *Store) AddAttribute(ctx context.Context, owner, domain, item, attr string, values model.ValueSet) error {
	for _, v := range values.Values() {
		if err := s.AddAttributeValue(ctx, owner, domain, item, attr, v); err != nil {
			return err
		}
	}
	return nil
}

// AddAttributes applies a set of additions to one item.
func (s *Store) AddAttributes(ctx context.Context, owner, domain, item string, additions model.Updates) error {
	for _, attr := range sortedKeys(additions) {
		if err := s.AddAttribute(ctx, owner, domain, item, attr, additions[attr]); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAttribute swaps the attribute's whole value set for the given
// one.
func (s *Store) ReplaceAttribute(ctx context.Context, owner, domain, item, attr string, values model.ValueSet) error {
	if err := s.DeleteAttributeAll(ctx, owner, domain, item, attr); err != nil {
		return err
	}
	return s.AddAttribute(ctx, owner, domain, item, attr, values)
}

// ReplaceAttributes applies a set of replacements to one item.
func (s *Store) ReplaceAttributes(ctx context.Context, owner, domain, item string, replacements model.Updates) error {
	for _, attr := range sortedKeys(replacements) {
		if err := s.ReplaceAttribute(ctx, owner, domain, item, attr, replacements[attr]); err != nil {
			return err
		}
	}
	return nil
}

// PutAttributes is the conditional write: every expectation must hold
// before anything is written, then additions apply, then replacements.
func (s *Store) PutAttributes(ctx context.Context, owner, domain, item string, additions, replacements model.Updates, expectations []model.Expectation) error {
	if err := s.CheckExpectations(ctx, owner, domain, item, expectations); err != nil {
		return err
	}
	if err := s.AddAttributes(ctx, owner, domain, item, additions); err != nil {
		return err
	}
	return s.ReplaceAttributes(ctx, owner, domain, item, replacements)
}

// DeleteAttribute removes either the attribute's whole value set or
// the listed values.
func (s *Store) DeleteAttribute(ctx context.Context, owner, domain, item, attr string, del model.Deletion) error {
	if del.All {
		return s.DeleteAttributeAll(ctx, owner, domain, item, attr)
	}
	for _, v := range del.Values.Values() {
		if err := s.DeleteAttributeValue(ctx, owner, domain, item, attr, v); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAttributes applies a set of deletions to one item. An empty
// deletions map deletes the whole item: every attribute it currently
// has.
func (s *Store) DeleteAttributes(ctx context.Context, owner, domain, item string, deletions model.Deletions) error {
	if len(deletions) == 0 {
		attrs, err := s.GetAttributes(ctx, owner, domain, item)
		if err != nil {
			return err
		}
		for _, attr := range attrs.Names() {
			if err := s.DeleteAttributeAll(ctx, owner, domain, item, attr); err != nil {
				return err
			}
		}
		return nil
	}
	for _, attr := range sortedKeys(deletions) {
		if err := s.DeleteAttribute(ctx, owner, domain, item, attr, deletions[attr]); err != nil {
			return err
		}
	}
	return nil
}

// BatchPutAttributes puts additions and replacements for many items,
// in sorted item order. Batch writes carry no expectations.
func (s *Store) BatchPutAttributes(ctx context.Context, owner, domain string, additions, replacements model.BatchUpdates) error {
	items := make(map[string]struct{}, len(additions)+len(replacements))
	for item := range additions {
		items[item] = struct{}{}
	}
	for item := range replacements {
		items[item] = struct{}{}
	}
	for _, item := range sortedKeys(items) {
		if err := s.PutAttributes(ctx, owner, domain, item, additions[item], replacements[item], nil); err != nil {
			return err
		}
	}
	return nil
}

// BatchDeleteAttributes applies per-item deletions in sorted item
// order; an item mapped to an empty deletions set is deleted whole.
func (s *Store) BatchDeleteAttributes(ctx context.Context, owner, domain string, deletions model.BatchDeletions) error {
	for _, item := range sortedKeys(deletions) {
		if err := s.DeleteAttributes(ctx, owner, domain, item, deletions[item]); err != nil {
			return err
		}
	}
	return nil
}

// CheckExpectations verifies all expectations in order, stopping at
// the first failure.
func (s *Store) CheckExpectations(ctx context.Context, owner, domain, item string, expectations []model.Expectation) error {
	for _, exp := range expectations {
		if err := s.CheckExpectation(ctx, owner, domain, item, exp); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
