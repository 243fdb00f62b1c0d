// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cacheproxy provides a caching forward HTTP proxy.
// Each client connection carries one request, the request is forwarded to the origin server as HTTP/1.0
// and the response is relayed back to the client as it arrives.
// Complete responses that fit the object size limit are stored in an LRU cache keyed by the request URI
// and served from memory on subsequent requests for the same URI.
package cacheproxy
