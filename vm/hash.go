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

package vm

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strconv"

	"github.com/SnellerInc/gqlmatch/expr"
	"github.com/dchest/siphash"
)

// Equal returns whether two rows are equal field
// by field. NULL equals NULL, numbers are equal
// when their values are equal regardless of
// representation, and graph elements are equal
// when they have the same identity.
func Equal(a, b Row) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		av, bv := a.Field(i), b.Field(i)
		if av == nil || bv == nil {
			if av != bv {
				return false
			}
			continue
		}
		if eq, ok := equalValues(av, bv); !ok || !eq {
			return false
		}
	}
	return true
}

// value tags for Hash
const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagString
	tagBool
	tagBytes
	tagVertex
	tagEdge
	tagPath
	tagOther
)

// Hash returns a 64-bit hash of a row that is
// consistent with Equal. Each field is hashed
// with siphash keyed by the hash of the fields
// before it.
func Hash(row Row) uint64 {
	var lo, hi uint64
	var buf []byte
	for i := 0; i < row.Len(); i++ {
		buf = appendKey(buf[:0], row.Field(i))
		lo, hi = siphash.Hash128(lo, hi, buf)
	}
	return lo
}

func appendUint(dst []byte, u uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], u)
	return append(dst, tmp[:]...)
}

func appendKey(dst []byte, v any) []byte {
	if i, ok := toInt(v); ok {
		return appendUint(append(dst, tagInt), uint64(i))
	}
	if f, ok := toFloat(v); ok {
		// integral floats hash like integers
		// so they agree with equalValues
		if f == math.Trunc(f) && f >= -(1<<63) && f < 1<<63 {
			return appendUint(append(dst, tagInt), uint64(int64(f)))
		}
		return appendUint(append(dst, tagFloat), math.Float64bits(f))
	}
	switch v := v.(type) {
	case nil:
		return append(dst, tagNull)
	case string:
		return append(append(dst, tagString), v...)
	case bool:
		if v {
			return append(dst, tagBool, 1)
		}
		return append(dst, tagBool, 0)
	case []byte:
		return append(append(dst, tagBytes), v...)
	case *Vertex:
		return appendUint(append(dst, tagVertex), uint64(v.ID))
	case *Edge:
		return appendUint(append(dst, tagEdge), uint64(v.ID))
	case *Path:
		dst = append(dst, tagPath)
		for i := range v.Vertices {
			dst = appendUint(dst, uint64(v.Vertices[i].ID))
		}
		for i := range v.Edges {
			dst = appendUint(dst, uint64(v.Edges[i].ID))
		}
		return dst
	}
	return append(dst, tagOther)
}

// Format returns a textual representation
// of a runtime value.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return expr.ToString(expr.String(v))
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case []byte:
		return "x'" + hex.EncodeToString(v) + "'"
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case interface{ String() string }:
		return v.String()
	}
	if i, ok := toInt(v); ok {
		return strconv.FormatInt(i, 10)
	}
	return "?"
}
