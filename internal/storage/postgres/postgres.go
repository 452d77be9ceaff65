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

// Package postgres stores data in two relational tables: one row per
// (owner, domain) and one row per (owner, domain, item, attr, value).
// The five-column primary key on the value table gives set semantics
// for free, and items and attributes exist exactly as long as they
// have rows, which matches the empty-set erasure rule without any
// bookkeeping.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
	"github.com/basicdb/basicdb-go/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS basicdb_domains (
	owner  TEXT NOT NULL,
	domain TEXT NOT NULL,
	PRIMARY KEY (owner, domain)
);
CREATE TABLE IF NOT EXISTS basicdb_values (
	owner  TEXT NOT NULL,
	domain TEXT NOT NULL,
	item   TEXT NOT NULL,
	attr   TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (owner, domain, item, attr, value)
);
`

type Backend struct {
	db *sql.DB
}

// New opens the connection pool, verifies the database is reachable
// and creates the schema if it is not there yet.
func New(dsn string, maxOpenConns, maxIdleConns, connMaxLifetimeMinutes int) (*Backend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(time.Duration(connMaxLifetimeMinutes) * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) CreateDomain(ctx context.Context, owner, domain string) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO basicdb_domains (owner, domain) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		owner, domain)
	if err != nil {
		return fmt.Errorf("create domain: %w", err)
	}
	return nil
}

func (b *Backend) DeleteDomain(ctx context.Context, owner, domain string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM basicdb_values WHERE owner = $1 AND domain = $2`, owner, domain); err != nil {
		return fmt.Errorf("delete domain values: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM basicdb_domains WHERE owner = $1 AND domain = $2`, owner, domain); err != nil {
		return fmt.Errorf("delete domain row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete domain: %w", err)
	}
	return nil
}

func (b *Backend) ListDomains(ctx context.Context, owner string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT domain FROM basicdb_domains WHERE owner = $1 ORDER BY domain`, owner)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return domains, nil
}

func (b *Backend) DomainMetadata(ctx context.Context, owner, domain string) (model.DomainMetadata, error) {
	var md model.DomainMetadata
	err := b.db.QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(length(value)), 0)
		FROM basicdb_values WHERE owner = $1 AND domain = $2`,
		owner, domain).Scan(&md.AttributeValueCount, &md.AttributeValuesSizeBytes)
	if err != nil {
		return model.DomainMetadata{}, fmt.Errorf("measure values: %w", err)
	}
	err = b.db.QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(length(item)), 0)
		FROM (SELECT DISTINCT item FROM basicdb_values WHERE owner = $1 AND domain = $2) AS items`,
		owner, domain).Scan(&md.ItemCount, &md.ItemNamesSizeBytes)
	if err != nil {
		return model.DomainMetadata{}, fmt.Errorf("measure items: %w", err)
	}
	err = b.db.QueryRowContext(ctx, `
		SELECT count(*), coalesce(sum(length(attr)), 0)
		FROM (SELECT DISTINCT attr FROM basicdb_values WHERE owner = $1 AND domain = $2) AS attrs`,
		owner, domain).Scan(&md.AttributeNameCount, &md.AttributeNamesSizeBytes)
	if err != nil {
		return model.DomainMetadata{}, fmt.Errorf("measure attributes: %w", err)
	}
	md.Timestamp = time.Now().Unix()
	return md, nil
}

func (b *Backend) GetAttributes(ctx context.Context, owner, domain, item string) (model.Attributes, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT attr, value FROM basicdb_values WHERE owner = $1 AND domain = $2 AND item = $3`,
		owner, domain, item)
	if err != nil {
		return nil, fmt.Errorf("get attributes: %w", err)
	}
	defer rows.Close()

	attrs := model.Attributes{}
	for rows.Next() {
		var attr, value string
		if err := rows.Scan(&attr, &value); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs.Add(attr, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get attributes: %w", err)
	}
	return attrs, nil
}

func (b *Backend) AddAttributeValue(ctx context.Context, owner, domain, item, attr, value string) error {
	if err := b.CreateDomain(ctx, owner, domain); err != nil {
		return err
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO basicdb_values (owner, domain, item, attr, value)
		VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
		owner, domain, item, attr, value)
	if err != nil {
		return fmt.Errorf("add value: %w", err)
	}
	return nil
}

func (b *Backend) DeleteAttributeAll(ctx context.Context, owner, domain, item, attr string) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM basicdb_values WHERE owner = $1 AND domain = $2 AND item = $3 AND attr = $4`,
		owner, domain, item, attr)
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	return nil
}

func (b *Backend) DeleteAttributeValue(ctx context.Context, owner, domain, item, attr, value string) error {
	_, err := b.db.ExecContext(ctx, `
		DELETE FROM basicdb_values
		WHERE owner = $1 AND domain = $2 AND item = $3 AND attr = $4 AND value = $5`,
		owner, domain, item, attr, value)
	if err != nil {
		return fmt.Errorf("delete value: %w", err)
	}
	return nil
}

func (b *Backend) Select(ctx context.Context, owner string, q *query.Query) (query.Results, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT item, attr, value FROM basicdb_values
		WHERE owner = $1 AND domain = $2 ORDER BY item`,
		owner, q.Domain)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	var items []query.Item
	for rows.Next() {
		var item, attr, value string
		if err := rows.Scan(&item, &attr, &value); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		if len(items) == 0 || items[len(items)-1].Name != item {
			items = append(items, query.Item{Name: item, Attrs: model.Attributes{}})
		}
		items[len(items)-1].Attrs.Add(attr, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
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

// Reset empties both tables. Test hook.
func (b *Backend) Reset(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM basicdb_values`); err != nil {
		return fmt.Errorf("reset values: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, `DELETE FROM basicdb_domains`); err != nil {
		return fmt.Errorf("reset domains: %w", err)
	}
	return nil
}
