// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saucelabs/cacheproxy/utils/httphandler"
)

type APIEndpoint struct {
	Path    string
	Handler http.Handler
}

// APIHandler serves API endpoints.
// It provides health and readiness endpoints, prometheus metrics, pprof debug endpoints
// and any additional endpoints passed to NewAPIHandler.
type APIHandler struct {
	mux   *http.ServeMux
	ready func() bool
}

// NewAPIHandler returns a handler with the default endpoints and extra.
// If ready is nil the service is always ready.
func NewAPIHandler(title string, r prometheus.Gatherer, ready func() bool, extra ...APIEndpoint) *APIHandler {
	m := http.NewServeMux()
	a := &APIHandler{
		mux:   m,
		ready: ready,
	}

	paths := []string{"/metrics", "/healthz", "/readyz"}
	m.Handle("/metrics", promhttp.HandlerFor(r, promhttp.HandlerOpts{}))
	m.Handle("/healthz", httphandler.Status(http.StatusOK))
	m.HandleFunc("/readyz", a.readyz)
	for _, e := range extra {
		m.Handle(e.Path, e.Handler)
		paths = append(paths, e.Path)
	}

	m.HandleFunc("/debug/pprof/", pprof.Index)
	m.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	m.HandleFunc("/debug/pprof/profile", pprof.Profile)
	m.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	m.HandleFunc("/debug/pprof/trace", pprof.Trace)
	paths = append(paths, "/debug/pprof/")

	m.Handle("/", a.index(title, paths))

	return a
}

func (h *APIHandler) readyz(w http.ResponseWriter, r *http.Request) {
	code := http.StatusOK
	if h.ready != nil && !h.ready() {
		code = http.StatusServiceUnavailable
	}
	httphandler.Status(code).ServeHTTP(w, r)
}

func (h *APIHandler) index(title string, paths []string) http.Handler {
	var b strings.Builder
	b.WriteString(title + "\n\n")
	for _, p := range paths {
		b.WriteString(p + "\n")
	}
	page := httphandler.SendFileString("text/plain; charset=utf-8", b.String())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page.ServeHTTP(w, r)
	})
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}
