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

// Package fields implements a thread-safe bag of structured logging key/value
// pairs shared by the Daemon, its connections and their request handlers.
package fields

import "sync"

// Fields is a thread-safe collection of structured logging attributes.
type Fields interface {
	// Add inserts or updates a key/value pair and returns the receiver for chaining.
	Add(key string, val interface{}) Fields

	// Get returns the value stored for key and whether it was present.
	Get(key string) (interface{}, bool)

	// Delete removes key from the collection.
	Delete(key string)

	// Clone returns an independent copy of the collection.
	Clone() Fields

	// Walk calls fct for every stored key/value pair. Iteration stops early
	// if fct returns false.
	Walk(fct func(key string, val interface{}) bool)

	// Logrus converts the collection into a logrus.Fields compatible map.
	Logrus() map[string]interface{}
}

type fldModel struct {
	m sync.Map
}

// New returns an empty Fields collection.
func New() Fields {
	return &fldModel{}
}

func (o *fldModel) Add(key string, val interface{}) Fields {
	if o == nil {
		return o
	}

	o.m.Store(key, val)
	return o
}

func (o *fldModel) Get(key string) (interface{}, bool) {
	if o == nil {
		return nil, false
	}

	return o.m.Load(key)
}

func (o *fldModel) Delete(key string) {
	if o == nil {
		return
	}

	o.m.Delete(key)
}

func (o *fldModel) Clone() Fields {
	n := &fldModel{}

	if o == nil {
		return n
	}

	o.m.Range(func(key, val interface{}) bool {
		n.m.Store(key, val)
		return true
	})

	return n
}

func (o *fldModel) Walk(fct func(key string, val interface{}) bool) {
	if o == nil || fct == nil {
		return
	}

	o.m.Range(func(key, val interface{}) bool {
		k, ok := key.(string)
		if !ok {
			return true
		}
		return fct(k, val)
	})
}

func (o *fldModel) Logrus() map[string]interface{} {
	res := make(map[string]interface{})

	if o == nil {
		return res
	}

	o.m.Range(func(key, val interface{}) bool {
		if k, ok := key.(string); ok {
			res[k] = val
		}
		return true
	})

	return res
}
