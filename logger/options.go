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

package logger

import (
	"os"

	"github.com/go-playground/validator/v10"

	liberr "github.com/nabbar/go-httpd/errors"
)

// Options configures a Logger. It is decodable from maps (mitchellh/mapstructure),
// JSON/YAML/TOML files, or built programmatically.
type Options struct {
	// Level is the minimal severity emitted: critical, fatal, error, warning, info, debug.
	Level string `mapstructure:"level" json:"level" yaml:"level" toml:"level" validate:"required,oneof=critical fatal error warning info debug"`

	// Format selects the logrus formatter: text or json.
	Format string `mapstructure:"format" json:"format" yaml:"format" toml:"format" validate:"omitempty,oneof=text json"`

	// DisableColor forces plain text output even on a tty (text format only).
	DisableColor bool `mapstructure:"disableColor" json:"disableColor" yaml:"disableColor" toml:"disableColor"`

	// Output is one of "stdout", "stderr", or a filesystem path appended to.
	Output string `mapstructure:"output" json:"output" yaml:"output" toml:"output" validate:"omitempty"`

	// AccessLog, when true, additionally emits one Access entry per completed connection.
	AccessLog bool `mapstructure:"accessLog" json:"accessLog" yaml:"accessLog" toml:"accessLog"`
}

// Validate checks the Options fields using struct tags and returns a liberr.Error
// describing every violation found.
func (o Options) Validate() liberr.Error {
	err := ErrorOptionsValidator.Error(nil)

	if vld := validator.New(); vld != nil {
		if e := vld.Struct(o); e != nil {
			if verrs, ok := e.(validator.ValidationErrors); ok {
				for _, v := range verrs {
					err.Add(ErrorOptionsValidator.Error(v))
				}
			} else {
				err.Add(e)
			}
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

func (o Options) writer() (*os.File, error) {
	switch o.Output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(o.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	}
}

// Merge overwrites the receiver's zero-valued fields with the values from o2.
func (o *Options) Merge(o2 *Options) {
	if o2 == nil {
		return
	}

	if o2.Level != "" {
		o.Level = o2.Level
	}
	if o2.Format != "" {
		o.Format = o2.Format
	}
	if o2.Output != "" {
		o.Output = o2.Output
	}

	o.DisableColor = o2.DisableColor
	o.AccessLog = o2.AccessLog
}
