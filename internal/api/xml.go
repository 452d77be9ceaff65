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

package api

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/basicdb/basicdb-go/internal/model"
	"github.com/basicdb/basicdb-go/internal/query"
)

// emptyResponse is the envelope of actions whose result is just
// success: <CreateDomainResponse/> and friends.
func emptyResponse(action string) *etree.Element {
	return etree.NewElement(action + "Response")
}

func listDomainsResponse(domains []string) *etree.Element {
	root := emptyResponse("ListDomains")
	result := root.CreateElement("ListDomainsResult")
	for _, name := range domains {
		result.CreateElement("DomainName").SetText(name)
	}
	return root
}

func domainMetadataResponse(md model.DomainMetadata) *etree.Element {
	root := emptyResponse("DomainMetadata")
	result := root.CreateElement("DomainMetadataResult")
	result.CreateElement("ItemCount").SetText(strconv.Itoa(md.ItemCount))
	result.CreateElement("ItemNamesSizeBytes").SetText(strconv.Itoa(md.ItemNamesSizeBytes))
	result.CreateElement("AttributeNameCount").SetText(strconv.Itoa(md.AttributeNameCount))
	result.CreateElement("AttributeNamesSizeBytes").SetText(strconv.Itoa(md.AttributeNamesSizeBytes))
	result.CreateElement("AttributeValueCount").SetText(strconv.Itoa(md.AttributeValueCount))
	result.CreateElement("AttributeValuesSizeBytes").SetText(strconv.Itoa(md.AttributeValuesSizeBytes))
	result.CreateElement("Timestamp").SetText(strconv.FormatInt(md.Timestamp, 10))
	return root
}

// appendAttributes writes one <Attribute><Name/><Value/></Attribute>
// per attribute-value pair, attributes and values in sorted order.
func appendAttributes(parent *etree.Element, attrs model.Attributes) {
	for _, name := range attrs.Names() {
		for _, value := range attrs[name].Values() {
			attr := parent.CreateElement("Attribute")
			attr.CreateElement("Name").SetText(name)
			attr.CreateElement("Value").SetText(value)
		}
	}
}

func getAttributesResponse(attrs model.Attributes) *etree.Element {
	root := emptyResponse("GetAttributes")
	appendAttributes(root.CreateElement("GetAttributesResult"), attrs)
	return root
}

func selectResponse(results query.Results) *etree.Element {
	root := emptyResponse("Select")
	result := root.CreateElement("SelectResult")
	for _, item := range results {
		elem := result.CreateElement("Item")
		elem.CreateElement("Name").SetText(item.Name)
		appendAttributes(elem, item.Attrs)
	}
	return root
}

// errorResponse is the envelope of a failed action: the root element
// is named for the error kind and carries the message.
func errorResponse(apiErr *model.Error) *etree.Element {
	root := etree.NewElement(apiErr.Kind)
	root.CreateElement("Message").SetText(apiErr.Message)
	return root
}

// appendMetadata closes every envelope, success or error, with the
// request id and the wall-clock seconds spent.
func appendMetadata(root *etree.Element, elapsed time.Duration) {
	meta := root.CreateElement("ResponseMetadata")
	meta.CreateElement("RequestId").SetText(uuid.NewString())
	meta.CreateElement("BoxUsage").SetText(strconv.FormatFloat(elapsed.Seconds(), 'f', 10, 64))
}
