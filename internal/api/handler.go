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

// Package api implements the action endpoint: one URL taking an
// Action parameter plus numbered parameter groups, answering XML
// envelopes. Both GET query strings and POST forms are accepted.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/go-chi/chi/v5"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
	"github.com/basicdb/basicdb-go/internal/storage"
)

// OwnerHeader names the requesting owner directly; it takes precedence
// over the AWSAccessKeyId parameter SimpleDB clients send.
const OwnerHeader = "X-BasicDB-Owner"

type ownerCtxKey struct{}

// OwnerMiddleware is the authentication stub. It resolves the owner
// from the header, then the AWSAccessKeyId parameter, then the
// configured default, and stores it on the request context. Real
// credential checking is out of scope; every request is trusted.
func OwnerMiddleware(defaultOwner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			owner := r.Header.Get(OwnerHeader)
			if owner == "" {
				owner = r.Form.Get("AWSAccessKeyId")
			}
			if owner == "" {
				owner = defaultOwner
			}
			ctx := context.WithValue(r.Context(), ownerCtxKey{}, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ownerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerCtxKey{}).(string)
	return owner
}

type Handler struct {
	store *storage.Store
}

func NewHandler(store *storage.Store) *Handler {
	return &Handler{store: store}
}

// Routes mounts the action endpoint with owner resolution.
func Routes(r chi.Router, store *storage.Store, defaultOwner string) {
	h := NewHandler(store)
	r.Group(func(gr chi.Router) {
		gr.Use(OwnerMiddleware(defaultOwner))
		gr.Get("/", h.ServeHTTP)
		gr.Post("/", h.ServeHTTP)
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	_ = r.ParseForm()
	params := flatten(r.Form)
	owner := ownerFromContext(r.Context())
	action := params["Action"]

	status := http.StatusOK
	root, err := h.dispatch(r.Context(), owner, action, params)
	if err != nil {
		apiErr, ok := model.AsError(err)
		if !ok {
			log.Printf("❌ Action %s failed: %v", action, err)
			apiErr = model.NewInternalError(err)
		}
		status = apiErr.Status
		root = errorResponse(apiErr)
	}
	appendMetadata(root, time.Since(start))

	doc := etree.NewDocument()
	doc.SetRoot(root)
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	if _, err := doc.WriteTo(w); err != nil {
		log.Printf("❌ Failed to write response: %v", err)
	}
}

func (h *Handler) dispatch(ctx context.Context, owner, action string, params map[string]string) (*etree.Element, error) {
	domain := params["DomainName"]
	item := params["ItemName"]

	switch action {
	case "CreateDomain":
		if err := h.store.CreateDomain(ctx, owner, domain); err != nil {
			return nil, err
		}
		return emptyResponse(action), nil

	case "DeleteDomain":
		if err := h.store.DeleteDomain(ctx, owner, domain); err != nil {
			return nil, err
		}
		return emptyResponse(action), nil

	case "ListDomains":
		domains, err := h.store.ListDomains(ctx, owner)
		if err != nil {
			return nil, err
		}
		return listDomainsResponse(domains), nil

	case "DomainMetadata":
		md, err := h.store.DomainMetadata(ctx, owner, domain)
		if err != nil {
			return nil, err
		}
		return domainMetadataResponse(md), nil

	case "PutAttributes":
		additions, replacements := decodeUpdates(params)
		expectations := decodeExpectations(params)
		if err := h.store.PutAttributes(ctx, owner, domain, item, additions, replacements, expectations); err != nil {
			return nil, err
		}
		return emptyResponse(action), nil

	case "BatchPutAttributes":
		additions, replacements := decodeBatchUpdates(params)
		if err := h.store.BatchPutAttributes(ctx, owner, domain, additions, replacements); err != nil {
			return nil, err
		}
		return emptyResponse(action), nil

	case "DeleteAttributes":
		deletions := decodeDeletions(params)
		if err := h.store.DeleteAttributes(ctx, owner, domain, item, deletions); err != nil {
			return nil, err
		}
		return emptyResponse(action), nil

	case "BatchDeleteAttributes":
		deletions := decodeBatchDeletions(params)
		if err := h.store.BatchDeleteAttributes(ctx, owner, domain, deletions); err != nil {
			return nil, err
		}
		return emptyResponse(action), nil

	case "GetAttributes":
		attrs, err := h.store.GetAttributes(ctx, owner, domain, item)
		if err != nil {
			return nil, err
		}
		return getAttributesResponse(attrs), nil

	case "Select":
		q, err := query.Parse(params["SelectExpression"])
		if err != nil {
			return nil, err
		}
		results, err := h.store.Select(ctx, owner, q)
		if err != nil {
			return nil, err
		}
		return selectResponse(results), nil
	}

	return nil, model.NewUnknownAction(action)
}
