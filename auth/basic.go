/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package auth

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/nabbar/go-httpd/internal/bytesutil"
)

// BasicResult classifies the outcome of parsing an Authorization: Basic
// header, per spec.md §4.4's {username, password} / error kind pairing.
type BasicResult uint8

const (
	BasicOK BasicResult = iota
	BasicAbsent
	BasicMalformed
)

// BasicCredentials holds the decoded username/password of a successfully
// parsed Basic Authorization header.
type BasicCredentials struct {
	Username string
	Password string
}

// BasicGet parses an Authorization header value for the "Basic" scheme per
// RFC 7617. An empty header yields BasicAbsent; anything that isn't valid
// base64("user:pass") yields BasicMalformed.
func BasicGet(authorizationHeader string) (BasicCredentials, BasicResult) {
	if authorizationHeader == "" {
		return BasicCredentials{}, BasicAbsent
	}

	const prefix = "Basic "
	if len(authorizationHeader) <= len(prefix) || !bytesutil.EqualFold(authorizationHeader[:len(prefix)], prefix) {
		return BasicCredentials{}, BasicMalformed
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authorizationHeader[len(prefix):]))
	if err != nil {
		return BasicCredentials{}, BasicMalformed
	}

	sep := strings.IndexByte(string(decoded), ':')
	if sep < 0 {
		return BasicCredentials{}, BasicMalformed
	}

	return BasicCredentials{Username: string(decoded[:sep]), Password: string(decoded[sep+1:])}, BasicOK
}

// BasicChallenge builds the WWW-Authenticate header value for a Basic
// challenge, per spec.md §4.4: `Basic realm="R", charset="UTF-8"`.
func BasicChallenge(realm string) string {
	return fmt.Sprintf(`Basic realm=%q, charset="UTF-8"`, realm)
}
