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

// Package level holds the Level type shared by logger.Logger: six severity
// tiers that gate what gets emitted (PanicLevel down to DebugLevel), NilLevel
// as the sentinel that silences a Logger outright, and AccessLevel as the
// fixed category the Daemon's Access entries carry — a tag, not a rung on
// the severity ladder, so it is deliberately absent from ListLevels/Parse
// and always maps to logrus.InfoLevel severity.
//
// Parse and ParseFromInt/ParseFromUint32 resolve Options.Level (or a numeric
// equivalent read from some other config source) down to a Level; String
// and Code give back the two textual spellings used in log output; Logrus
// bridges to the sirupsen/logrus severity that actually does the filtering
// and formatting.
package level
