// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package compr wraps the third-party compression
// libraries used for graph fixture files.
package compr

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// Algorithm names.
const (
	None = ""
	Zstd = "zstd"
	S2   = "s2"
)

var suffixes = []struct {
	suffix, name string
}{
	{".zst", Zstd},
	{".zstd", Zstd},
	{".s2", S2},
}

// ForPath returns the algorithm implied by
// the suffix of a file name, or None.
func ForPath(path string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s.suffix) {
			return s.name
		}
	}
	return None
}

// TrimSuffix removes the compression
// suffix from a file name, if any.
func TrimSuffix(path string) string {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s.suffix) {
			return strings.TrimSuffix(path, s.suffix)
		}
	}
	return path
}

// NewReader returns a reader that decompresses
// r with the named algorithm. None returns r
// itself. Closing the result does not close r.
func NewReader(name string, r io.Reader) (io.ReadCloser, error) {
	switch name {
	case None:
		return io.NopCloser(r), nil
	case Zstd:
		// a single goroutine is plenty
		// for fixture-sized inputs
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	}
	return nil, fmt.Errorf("compr: unknown algorithm %q", name)
}

// NewWriter returns a writer that compresses
// into w with the named algorithm. The result
// must be closed to flush it; closing it does
// not close w.
func NewWriter(name string, w io.Writer) (io.WriteCloser, error) {
	switch name {
	case None:
		return nopWriteCloser{w}, nil
	case Zstd:
		e, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return e, nil
	case S2:
		return s2.NewWriter(w), nil
	}
	return nil, fmt.Errorf("compr: unknown algorithm %q", name)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
