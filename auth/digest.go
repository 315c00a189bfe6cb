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

// Package auth implements RFC 7617 Basic and RFC 7616 Digest authentication
// as server-side collaborators of the Connection state machine: challenge
// construction, credential parsing, and verification. Neither scheme owns
// a socket or a Response — conn.Handler implementations call into this
// package and translate the result into a 401/403 Response themselves, per
// spec.md §4.4 and §7's auth error taxonomy.
package auth

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"

	uuid "github.com/hashicorp/go-uuid"
	"github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/go-httpd/errors"
	"github.com/nabbar/go-httpd/internal/bytesutil"
)

// Algorithm names the Digest hash function, per spec.md §4.4: designers
// must implement at least MD5 and SHA-256; SHA-512/256 is the third option
// RFC 7616 defines.
type Algorithm string

const (
	AlgorithmMD5        Algorithm = "MD5"
	AlgorithmSHA256     Algorithm = "SHA-256"
	AlgorithmSHA512_256 Algorithm = "SHA-512-256"
)

func (a Algorithm) newHash() (func() hash.Hash, liberr.Error) {
	switch a {
	case AlgorithmMD5:
		return md5.New, nil
	case AlgorithmSHA256:
		return sha256.New, nil
	case AlgorithmSHA512_256:
		return sha512.New512_256, nil
	default:
		return nil, ErrorUnsupportedAlgorithm.Error(nil)
	}
}

// DigestConfig configures one realm's Digest authentication. Key is the
// application-supplied HMAC key (spec.md §4.4 "Entropy": this library never
// generates its own key material). AllowAuthInt only adds auth-int to the
// advertised qop list: Check computes HA2 from the method and URI alone,
// without the entity body, so a client's auth-int response does not verify.
type DigestConfig struct {
	Realm          string        `mapstructure:"realm" json:"realm" yaml:"realm" toml:"realm" validate:"required"`
	Key            []byte        `mapstructure:"-" json:"-" yaml:"-" toml:"-" validate:"required,min=32"`
	Algorithm      Algorithm     `mapstructure:"algorithm" json:"algorithm" yaml:"algorithm" toml:"algorithm" validate:"required,oneof=MD5 SHA-256 SHA-512-256"`
	AllowAuthInt   bool          `mapstructure:"allow_auth_int" json:"allow_auth_int" yaml:"allow_auth_int" toml:"allow_auth_int"`
	NonceTTL       time.Duration `mapstructure:"nonce_ttl" json:"nonce_ttl" yaml:"nonce_ttl" toml:"nonce_ttl" validate:"required"`
	NonceTableSize int           `mapstructure:"nonce_table_size" json:"nonce_table_size" yaml:"nonce_table_size" toml:"nonce_table_size"`
}

// Validate checks the configuration with go-playground/validator, exactly
// the pattern httpserver.ServerConfig.Validate uses: translate
// validator.ValidationErrors into a liberr.Error hierarchy, one parent per
// offending field.
func (c DigestConfig) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(c)
	if err == nil {
		return nil
	}

	if e, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorConfigValidate.Error(e)
	}

	out := ErrorConfigValidate.Error(nil)
	for _, e := range err.(validator.ValidationErrors) {
		out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
	}
	if out.HasParent() {
		return out
	}
	return nil
}

// Digest is a ready-to-use server-side Digest authenticator for one realm.
type Digest struct {
	cfg     DigestConfig
	newHash func() hash.Hash
	nonces  *nonceTable
	opaque  string
}

// NewDigest validates cfg, generates this realm's opaque value with
// github.com/hashicorp/go-uuid, and builds the bounded nonce table.
func NewDigest(cfg DigestConfig) (*Digest, liberr.Error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	newHash, err := cfg.Algorithm.newHash()
	if err != nil {
		return nil, err
	}

	opaque, uerr := uuid.GenerateUUID()
	if uerr != nil {
		return nil, ErrorOpaqueGeneration.Error(uerr)
	}

	return &Digest{
		cfg:     cfg,
		newHash: newHash,
		nonces:  newNonceTable(cfg.NonceTableSize, cfg.NonceTTL),
		opaque:  opaque,
	}, nil
}

// NonceTableLen reports the number of live nonce entries, for the
// metrics package's occupancy gauge.
func (d *Digest) NonceTableLen() int {
	return d.nonces.len()
}

// Challenge builds a fresh nonce bound to remoteAddr and the WWW-Authenticate
// header value carrying it, per spec.md §4.4's Challenge construction.
// stale marks the challenge as a `stale=true` retry (replay or expiry of
// the client's previous nonce).
func (d *Digest) Challenge(remoteAddr string, stale bool) string {
	nonce := d.mintNonce(remoteAddr)
	d.nonces.issue(nonce)

	qop := `qop="auth"`
	if d.cfg.AllowAuthInt {
		qop = `qop="auth,auth-int"`
	}

	v := fmt.Sprintf(`Digest realm=%q, %s, algorithm=%s, nonce=%q, opaque=%q`,
		d.cfg.Realm, qop, d.cfg.Algorithm, nonce, d.opaque)
	if stale {
		v += `, stale=true`
	}
	return v
}

func (d *Digest) mintNonce(remoteAddr string) string {
	ts := time.Now().Unix()

	mac := hmac.New(d.newHash, d.cfg.Key)
	_, _ = fmt.Fprintf(mac, "%d:%s:%s", ts, d.cfg.Realm, remoteAddr)
	tag := mac.Sum(nil)

	raw := make([]byte, 8+len(tag))
	binary.BigEndian.PutUint64(raw[:8], uint64(ts))
	copy(raw[8:], tag)

	return base64.StdEncoding.EncodeToString(raw)
}

// verifyNonceSignature recomputes the HMAC embedded in nonce against
// remoteAddr and reports whether it matches, guarding against a forged or
// tampered nonce independent of whether it also happens to be a table hit.
func (d *Digest) verifyNonceSignature(nonce, remoteAddr string) (issuedAt time.Time, ok bool) {
	raw, err := base64.StdEncoding.DecodeString(nonce)
	if err != nil || len(raw) <= 8 {
		return time.Time{}, false
	}

	ts := binary.BigEndian.Uint64(raw[:8])
	want := raw[8:]

	mac := hmac.New(d.newHash, d.cfg.Key)
	_, _ = fmt.Fprintf(mac, "%d:%s:%s", int64(ts), d.cfg.Realm, remoteAddr)
	got := mac.Sum(nil)

	if subtle.ConstantTimeCompare(want, got) != 1 {
		return time.Time{}, false
	}
	return time.Unix(int64(ts), 0), true
}

// DigestResult classifies the outcome of Check, mapping onto spec.md §7's
// auth error sub-kinds.
type DigestResult uint8

const (
	DigestOK DigestResult = iota
	DigestAbsent
	DigestMalformed
	DigestStaleNonce
	DigestUnknownNonce
	DigestWrongCredentials
	DigestReplay
)

// PasswordLookup resolves a username to its plaintext password (or reports
// it unknown); HA1 is computed from it, never stored by this package.
type PasswordLookup func(username string) (password string, ok bool)

// Check verifies a Digest Authorization header against method/uri and the
// realm's nonce table, per spec.md §4.4's Verification and Nonce lifecycle
// rules. remoteAddr must be the same value used when the challenge's nonce
// was minted.
func (d *Digest) Check(authorizationHeader, method, uri, remoteAddr string, lookup PasswordLookup) DigestResult {
	if authorizationHeader == "" {
		return DigestAbsent
	}

	const prefix = "Digest "
	if len(authorizationHeader) <= len(prefix) || !bytesutil.EqualFold(authorizationHeader[:len(prefix)], prefix) {
		return DigestMalformed
	}

	fields, ok := bytesutil.SplitQuoted(authorizationHeader[len(prefix):])
	if !ok {
		return DigestMalformed
	}

	required := []string{"username", "realm", "nonce", "uri", "response", "nc", "cnonce", "qop"}
	for _, k := range required {
		if _, present := fields[k]; !present {
			return DigestMalformed
		}
	}

	if fields["realm"] != d.cfg.Realm {
		return DigestMalformed
	}

	nc, err := strconv.ParseUint(fields["nc"], 16, 64)
	if err != nil {
		return DigestMalformed
	}

	if _, sigOK := d.verifyNonceSignature(fields["nonce"], remoteAddr); !sigOK {
		return DigestUnknownNonce
	}

	switch d.nonces.accept(fields["nonce"], nc) {
	case nonceUnknown:
		return DigestUnknownNonce
	case nonceStale:
		return DigestStaleNonce
	}

	password, found := lookup(fields["username"])
	if !found {
		return DigestWrongCredentials
	}

	ha1 := d.hashHex(fmt.Sprintf("%s:%s:%s", fields["username"], d.cfg.Realm, password))
	ha2 := d.hashHex(fmt.Sprintf("%s:%s", method, uri))
	want := d.hashHex(strings.Join([]string{ha1, fields["nonce"], fields["nc"], fields["cnonce"], fields["qop"], ha2}, ":"))

	if subtle.ConstantTimeCompare([]byte(want), []byte(fields["response"])) != 1 {
		return DigestWrongCredentials
	}

	return DigestOK
}

func (d *Digest) hashHex(s string) string {
	h := d.newHash()
	_, _ = h.Write([]byte(s))
	return string(bytesutil.HexEncode(h.Sum(nil)))
}
