// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// ErrorHeader is the header that is set on error responses with the error message.
const ErrorHeader = "X-Proxy-Error"

// requestError is an error reading the request from the client.
type requestError struct {
	error
}

func (e requestError) Unwrap() error {
	return e.error
}

type errorHandler func(error) (code int, msg, label string)

func errorStatus(err error) (code int, msg, label string) {
	handlers := []errorHandler{
		handleRequestError,
		handleNetError,
		handleForwardError,
	}
	for _, h := range handlers {
		code, msg, label = h(err)
		if code != 0 {
			return
		}
	}

	return http.StatusInternalServerError, "An unexpected error occurred", "unexpected_error"
}

func handleRequestError(err error) (code int, msg, label string) {
	var reqErr requestError
	if !errors.As(err, &reqErr) {
		return
	}

	switch {
	case errors.Is(err, ErrHeaderTooLarge):
		code = http.StatusRequestHeaderFieldsTooLarge
		msg = "Request header is too large"
		label = "header_too_large"
	case isTimeout(err):
		code = http.StatusRequestTimeout
		msg = "Timed out reading request"
		label = "request_timeout"
	default:
		code = http.StatusBadRequest
		msg = "Malformed request"
		label = "bad_request"
	}

	return
}

func handleNetError(err error) (code int, msg, label string) {
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		var action string
		switch netErr.Op {
		case "dial":
			action = "connecting to"
		case "read":
			action = "reading from"
		case "write":
			action = "writing to"
		default:
			action = "communicating with"
		}
		if netErr.Timeout() {
			code = http.StatusGatewayTimeout
			msg = "Timed out " + action + " remote host"
		} else {
			code = http.StatusBadGateway
			msg = "Failed " + action + " remote host"
		}
		label = "net_" + netErr.Op
	}

	return
}

func handleForwardError(err error) (code int, msg, label string) {
	var fe *ForwardError
	if errors.As(err, &fe) {
		code = http.StatusBadGateway
		msg = "Failed to " + string(fe.Stage)
		label = strings.ReplaceAll(string(fe.Stage), " ", "_")
	}

	return
}

// writeErrorResponse writes a plain text HTTP/1.0 response describing err.
func writeErrorResponse(w io.Writer, code int, msg string, err error) error {
	body := msg + "\n" + err.Error() + "\n"

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.0 %d %s\r\n", code, http.StatusText(code))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString(ErrorHeader + ": " + headerValue(err.Error()) + "\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	_, werr := io.WriteString(w, b.String())
	return werr
}

func headerValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}
