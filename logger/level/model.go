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

package level

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Uint8 is the Level's underlying numeric value, for compact serialization.
func (l Level) Uint8() uint8 {
	return uint8(l)
}

// Uint32 widens Uint8 for APIs that store a level as a 32-bit field; pairs
// with ParseFromUint32.
func (l Level) Uint32() uint32 {
	return uint32(l)
}

// Int is the Level's numeric value as a plain int, for comparison or
// storage; pairs with ParseFromInt.
func (l Level) Int() int {
	return int(l)
}

// String is the full human-readable name of the level ("Critical", "Fatal",
// "Error", "Warning", "Info", "Debug", "Access"), empty for NilLevel, and
// "unknown" for any other value. It implements fmt.Stringer.
func (l Level) String() string {
	//nolint exhaustive
	switch l {
	case DebugLevel:
		return "Debug"
	case InfoLevel:
		return "Info"
	case WarnLevel:
		return "Warning"
	case ErrorLevel:
		return "Error"
	case FatalLevel:
		return "Fatal"
	case PanicLevel:
		return "Critical"
	case AccessLevel:
		return "Access"
	case NilLevel:
		return ""
	}

	return "unknown"
}

// Code is the short form of String, for compact log output: "Crit", "Fatal",
// "Err", "Warn", "Info", "Debug", "Access", empty for NilLevel, and
// "unknown" for any other value.
func (l Level) Code() string {
	//nolint exhaustive
	switch l {
	case DebugLevel:
		return "Debug"
	case InfoLevel:
		return "Info"
	case WarnLevel:
		return "Warn"
	case ErrorLevel:
		return "Err"
	case FatalLevel:
		return "Fatal"
	case PanicLevel:
		return "Crit"
	case AccessLevel:
		return "Access"
	case NilLevel:
		return ""
	}

	return "unknown"
}

// Logrus maps the Level to the logrus.Level that actually filters and tags
// the emitted entry. AccessLevel reports as logrus.InfoLevel: it is a
// category of entry, not a distinct severity, so it is subject to the same
// minimum-level filtering as any other informational message. NilLevel, and
// anything else unrecognized, maps to math.MaxInt32, a severity no real
// logrus level satisfies, which is how SetLevel(NilLevel) silences a Logger.
func (l Level) Logrus() logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel, AccessLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	case PanicLevel:
		return logrus.PanicLevel
	default:
		return math.MaxInt32
	}
}
