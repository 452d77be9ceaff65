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

// Package mongokv stores data in MongoDB using a key-value layout: an
// owners collection with one document per owner mapping domain names
// to bucket ids, and one collection per bucket holding item documents.
// Attribute names go into array entries, not document keys, so names
// containing '$' or '.' survive the trip.
//
// Item writes are plain read-modify-write with the last writer
// winning. Select pushes the where expression to the server as a
// $where program when it has a JavaScript rendering and falls back to
// fetching the whole domain otherwise.
package mongokv

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
	"github.com/basicdb/basicdb-go/internal/storage"
)

const ownersCollection = "owners"

// whereProgram runs per item document. It rebuilds the val/vals
// bindings the rendered where expression is written against: val maps
// each attribute to its full value array, then an odometer walks every
// combination of one value per attribute and binds it as vals. The
// item matches as soon as one combination satisfies the expression.
const whereProgram = `function() {
	var itemName = this._id;
	var attrs = this.attrs || [];
	var val = {};
	for (var i = 0; i < attrs.length; i++) {
		val[attrs[i].name] = attrs[i].values;
	}
	var sets = [];
	for (var k in val) {
		var pairs = [];
		for (var j = 0; j < val[k].length; j++) {
			pairs.push([k, val[k][j]]);
		}
		sets.push(pairs);
	}
	var n = sets.length;
	var carets = [];
	var args = [];
	for (var i = 0; i < n; i++) {
		carets[i] = 0;
		args[i] = sets[i][0];
	}
	while (true) {
		var vals = {};
		for (var i = 0; i < n; i++) {
			vals[args[i][0]] = args[i][1];
		}
		if (__WHERE__) {
			return true;
		}
		if (n === 0) {
			return false;
		}
		var i = n - 1;
		carets[i]++;
		while (carets[i] >= sets[i].length) {
			if (i === 0) {
				return false;
			}
			carets[i] = 0;
			args[i] = sets[i][0];
			carets[--i]++;
		}
		args[i] = sets[i][carets[i]];
	}
}`

type ownerDoc struct {
	ID      string        `bson:"_id"`
	Domains []domainEntry `bson:"domains"`
}

type domainEntry struct {
	Name   string `bson:"name"`
	Bucket string `bson:"bucket"`
}

func (d ownerDoc) bucketFor(domain string) (string, bool) {
	for _, e := range d.Domains {
		if e.Name == domain {
			return e.Bucket, true
		}
	}
	return "", false
}

type itemDoc struct {
	ID    string      `bson:"_id"`
	Attrs []attrEntry `bson:"attrs"`
}

type attrEntry struct {
	Name   string   `bson:"name"`
	Values []string `bson:"values"`
}

func newItemDoc(item string, attrs model.Attributes) itemDoc {
	doc := itemDoc{ID: item, Attrs: make([]attrEntry, 0, len(attrs))}
	for _, name := range attrs.Names() {
		doc.Attrs = append(doc.Attrs, attrEntry{Name: name, Values: attrs[name].Values()})
	}
	return doc
}

func (d itemDoc) attributes() model.Attributes {
	attrs := model.Attributes{}
	for _, e := range d.Attrs {
		for _, v := range e.Values {
			attrs.Add(e.Name, v)
		}
	}
	return attrs
}

type Backend struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and verifies the deployment is reachable.
func New(ctx context.Context, uri, database string) (*Backend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Backend{client: client, db: client.Database(database)}, nil
}

func (b *Backend) Close(ctx context.Context) error {
	return b.client.Disconnect(ctx)
}

func (b *Backend) owners() *mongo.Collection {
	return b.db.Collection(ownersCollection)
}

func (b *Backend) readOwner(ctx context.Context, owner string) (ownerDoc, error) {
	var doc ownerDoc
	err := b.owners().FindOne(ctx, bson.M{"_id": owner}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return ownerDoc{ID: owner}, nil
	}
	if err != nil {
		return ownerDoc{}, fmt.Errorf("read owner document: %w", err)
	}
	return doc, nil
}

func (b *Backend) writeOwner(ctx context.Context, doc ownerDoc) error {
	_, err := b.owners().ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write owner document: %w", err)
	}
	return nil
}

// ensureDomain returns the domain's bucket, minting one when the
// domain does not exist yet.
func (b *Backend) ensureDomain(ctx context.Context, owner, domain string) (string, error) {
	doc, err := b.readOwner(ctx, owner)
	if err != nil {
		return "", err
	}
	if bucket, ok := doc.bucketFor(domain); ok {
		return bucket, nil
	}
	bucket := uuid.NewString()
	doc.Domains = append(doc.Domains, domainEntry{Name: domain, Bucket: bucket})
	if err := b.writeOwner(ctx, doc); err != nil {
		return "", err
	}
	return bucket, nil
}

// domainCollection resolves the domain's bucket collection; ok is
// false when the domain does not exist.
func (b *Backend) domainCollection(ctx context.Context, owner, domain string) (*mongo.Collection, bool, error) {
	doc, err := b.readOwner(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	bucket, ok := doc.bucketFor(domain)
	if !ok {
		return nil, false, nil
	}
	return b.db.Collection(bucket), true, nil
}

func (b *Backend) CreateDomain(ctx context.Context, owner, domain string) error {
	_, err := b.ensureDomain(ctx, owner, domain)
	return err
}

func (b *Backend) DeleteDomain(ctx context.Context, owner, domain string) error {
	doc, err := b.readOwner(ctx, owner)
	if err != nil {
		return err
	}
	kept := doc.Domains[:0]
	var bucket string
	for _, e := range doc.Domains {
		if e.Name == domain {
			bucket = e.Bucket
			continue
		}
		kept = append(kept, e)
	}
	if bucket == "" {
		return nil
	}
	if err := b.db.Collection(bucket).Drop(ctx); err != nil {
		return fmt.Errorf("drop domain bucket: %w", err)
	}
	doc.Domains = kept
	return b.writeOwner(ctx, doc)
}

func (b *Backend) ListDomains(ctx context.Context, owner string) ([]string, error) {
	doc, err := b.readOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(doc.Domains))
	for _, e := range doc.Domains {
		domains = append(domains, e.Name)
	}
	sort.Strings(domains)
	return domains, nil
}

func (b *Backend) DomainMetadata(ctx context.Context, owner, domain string) (model.DomainMetadata, error) {
	var md model.DomainMetadata
	coll, ok, err := b.domainCollection(ctx, owner, domain)
	if err != nil {
		return model.DomainMetadata{}, err
	}
	if ok {
		items, err := fetchItems(ctx, coll, bson.M{})
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
	coll, ok, err := b.domainCollection(ctx, owner, domain)
	if err != nil {
		return nil, err
	}
	if !ok {
		return model.Attributes{}, nil
	}
	var doc itemDoc
	err = coll.FindOne(ctx, bson.M{"_id": item}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.Attributes{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read item document: %w", err)
	}
	return doc.attributes(), nil
}

func (b *Backend) AddAttributeValue(ctx context.Context, owner, domain, item, attr, value string) error {
	bucket, err := b.ensureDomain(ctx, owner, domain)
	if err != nil {
		return err
	}
	coll := b.db.Collection(bucket)

	var doc itemDoc
	err = coll.FindOne(ctx, bson.M{"_id": item}).Decode(&doc)
	if err != nil && err != mongo.ErrNoDocuments {
		return fmt.Errorf("read item document: %w", err)
	}
	attrs := doc.attributes()
	attrs.Add(attr, value)

	_, err = coll.ReplaceOne(ctx, bson.M{"_id": item}, newItemDoc(item, attrs),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write item document: %w", err)
	}
	return nil
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

// updateItem applies an in-place mutation to the item's attributes and
// writes the result back, deleting the document when nothing is left.
func (b *Backend) updateItem(ctx context.Context, owner, domain, item string, mutate func(model.Attributes)) error {
	coll, ok, err := b.domainCollection(ctx, owner, domain)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	var doc itemDoc
	err = coll.FindOne(ctx, bson.M{"_id": item}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read item document: %w", err)
	}

	attrs := doc.attributes()
	mutate(attrs)

	if attrs.Empty() {
		if _, err := coll.DeleteOne(ctx, bson.M{"_id": item}); err != nil {
			return fmt.Errorf("delete item document: %w", err)
		}
		return nil
	}
	_, err = coll.ReplaceOne(ctx, bson.M{"_id": item}, newItemDoc(item, attrs))
	if err != nil {
		return fmt.Errorf("write item document: %w", err)
	}
	return nil
}

func (b *Backend) Select(ctx context.Context, owner string, q *query.Query) (query.Results, error) {
	coll, ok, err := b.domainCollection(ctx, owner, q.Domain)
	if err != nil {
		return nil, err
	}
	if !ok {
		return query.Execute(q, nil)
	}

	if js, jsErr := q.WhereJS(); jsErr == nil {
		filter := bson.M{}
		if q.Where != nil {
			filter["$where"] = strings.Replace(whereProgram, "__WHERE__", js, 1)
		}
		matches, findErr := fetchItems(ctx, coll, filter)
		if findErr == nil {
			return query.Finish(q, matches)
		}
		// The server refused the script; evaluate locally instead.
	}

	items, err := fetchItems(ctx, coll, bson.M{})
	if err != nil {
		return nil, err
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

// Reset drops the whole database. Test hook.
func (b *Backend) Reset(ctx context.Context) error {
	if err := b.db.Drop(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

func fetchItems(ctx context.Context, coll *mongo.Collection, filter bson.M) ([]query.Item, error) {
	cur, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	items := make([]query.Item, 0, len(docs))
	for _, doc := range docs {
		attrs := doc.attributes()
		if attrs.Empty() {
			continue
		}
		items = append(items, query.Item{Name: doc.ID, Attrs: attrs})
	}
	return items, nil
}
