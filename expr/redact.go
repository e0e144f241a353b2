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

package expr

import (
	"encoding/base32"
	"encoding/binary"
	"math"

	"github.com/dchest/siphash"
)

// redactKey seeds the siphash used to replace
// constants in ToRedacted output; the output is
// deterministic so redacted queries can be
// compared with each other in logs.
var redactKey = [2]uint64{0x676d, 0x7163}

var redactEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func redactBits(u uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], u)
	return siphash.Hash(redactKey[0], redactKey[1], buf[:])
}

// integers that fit in 32 bits stay in 32 bits
func redactInt(i int64) int64 {
	res := int64(redactBits(uint64(i)))
	if int64(int32(i)) == i {
		return int64(int32(res))
	}
	return res
}

func redactFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	res := redactBits(math.Float64bits(f))
	// [0, 1)
	return float64(res>>11) / float64(1<<53)
}

func redactString(s string) string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], siphash.Hash(redactKey[0], redactKey[1], []byte(s)))
	return redactEncoding.EncodeToString(buf[:])
}
