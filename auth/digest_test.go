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

package auth_test

import (
	"crypto/md5"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/go-httpd/auth"
	"github.com/nabbar/go-httpd/internal/bytesutil"
)

func newTestDigest() *auth.Digest {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	d, err := auth.NewDigest(auth.DigestConfig{
		Realm:          "Protected",
		Key:            key,
		Algorithm:      auth.AlgorithmMD5,
		NonceTTL:       time.Hour,
		NonceTableSize: 16,
	})
	Expect(err).To(BeNil())
	return d
}

func extractNonce(challenge string) string {
	parts, _ := bytesutil.SplitQuoted(strings.TrimPrefix(challenge, "Digest "))
	return parts["nonce"]
}

func buildAuthorization(nonce, realm, username, password, method, uri, nc, cnonce string) string {
	ha1 := md5Hex(fmt.Sprintf("%s:%s:%s", username, realm, password))
	ha2 := md5Hex(fmt.Sprintf("%s:%s", method, uri))
	resp := md5Hex(strings.Join([]string{ha1, nonce, nc, cnonce, "auth", ha2}, ":"))

	return fmt.Sprintf(`Digest username=%q, realm=%q, nonce=%q, uri=%q, response=%q, nc=%s, cnonce=%q, qop=auth`,
		username, realm, nonce, uri, resp, nc, cnonce)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)
}

var _ = Describe("Digest auth", func() {
	It("challenges, accepts a fresh nc, and detects replay then accepts the next nc", func() {
		d := newTestDigest()
		remote := "203.0.113.7:54321"
		lookup := func(u string) (string, bool) {
			if u == "bob" {
				return "secret", true
			}
			return "", false
		}

		// No credentials yet.
		Expect(d.Check("", "GET", "/private", remote, lookup)).To(Equal(auth.DigestAbsent))

		challenge := d.Challenge(remote, false)
		nonce := extractNonce(challenge)
		Expect(nonce).NotTo(BeEmpty())

		authz := buildAuthorization(nonce, "Protected", "bob", "secret", "GET", "/private", "00000001", "abcd1234")
		Expect(d.Check(authz, "GET", "/private", remote, lookup)).To(Equal(auth.DigestOK))

		// Replay of the same nc must be rejected as stale.
		Expect(d.Check(authz, "GET", "/private", remote, lookup)).To(Equal(auth.DigestStaleNonce))

		authz2 := buildAuthorization(nonce, "Protected", "bob", "secret", "GET", "/private", "00000002", "abcd1234")
		Expect(d.Check(authz2, "GET", "/private", remote, lookup)).To(Equal(auth.DigestOK))
	})

	It("rejects wrong credentials", func() {
		d := newTestDigest()
		remote := "203.0.113.7:1"
		lookup := func(u string) (string, bool) { return "secret", u == "bob" }

		challenge := d.Challenge(remote, false)
		nonce := extractNonce(challenge)

		authz := buildAuthorization(nonce, "Protected", "bob", "wrong-password", "GET", "/x", "00000001", "cnonce")
		Expect(d.Check(authz, "GET", "/x", remote, lookup)).To(Equal(auth.DigestWrongCredentials))
	})

	It("rejects an unknown nonce", func() {
		d := newTestDigest()
		authz := buildAuthorization("not-a-real-nonce", "Protected", "bob", "secret", "GET", "/x", "00000001", "cnonce")
		Expect(d.Check(authz, "GET", "/x", "1.2.3.4:1", func(string) (string, bool) { return "secret", true })).To(Equal(auth.DigestUnknownNonce))
	})

	It("rejects a nonce minted for a different remote address", func() {
		d := newTestDigest()
		challenge := d.Challenge("1.1.1.1:1", false)
		nonce := extractNonce(challenge)

		authz := buildAuthorization(nonce, "Protected", "bob", "secret", "GET", "/x", "00000001", "cnonce")
		Expect(d.Check(authz, "GET", "/x", "2.2.2.2:1", func(string) (string, bool) { return "secret", true })).To(Equal(auth.DigestUnknownNonce))
	})
})
