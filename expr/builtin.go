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
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// BuiltinOp is one of the built-in
// scalar functions.
type BuiltinOp int

const (
	Length BuiltinOp = iota
	Lower
	Upper
	Abs
	Coalesce

	Unspecified // catch-all for opaque built-ins
)

type builtinInfo struct {
	name  string
	check func(Hint, []Node) error
	ret   func(Hint, []Node) TypeSet
}

var builtinInfos = [Unspecified]builtinInfo{
	Length: {
		name:  "LENGTH",
		check: fixedArgs(Set(TypeString, TypeBinaryString, TypePath)),
		ret:   fixedRet(Set(TypeInteger, TypeNull)),
	},
	Lower: {
		name:  "LOWER",
		check: fixedArgs(Set(TypeString)),
		ret:   fixedRet(StringTypes),
	},
	Upper: {
		name:  "UPPER",
		check: fixedArgs(Set(TypeString)),
		ret:   fixedRet(StringTypes),
	},
	Abs: {
		name:  "ABS",
		check: fixedArgs(NumericTypes),
		ret:   firstArg,
	},
	Coalesce: {
		name:  "COALESCE",
		check: variadicArgs(AnyTypes),
		ret:   unionArgs,
	},
}

func (b BuiltinOp) String() string {
	if b >= 0 && b < Unspecified {
		return builtinInfos[b].name
	}
	return "UNKNOWN"
}

// LookupBuiltin finds a built-in by its
// (case-insensitive) name.
func LookupBuiltin(name string) (BuiltinOp, bool) {
	name = strings.ToUpper(name)
	for i := range builtinInfos {
		if builtinInfos[i].name == name {
			return BuiltinOp(i), true
		}
	}
	return Unspecified, false
}

func errtypef(n Node, f string, args ...interface{}) error {
	return &TypeError{
		At:  n,
		Msg: fmt.Sprintf(f, args...),
	}
}

func mismatch(want, got int) error {
	return errsyntaxf("expected %d args but found %d", want, got)
}

func errsyntaxf(f string, args ...interface{}) error {
	return &SyntaxError{
		Msg: fmt.Sprintf(f, args...),
	}
}

// fixedArgs can be used to specify
// the type arguments for a builtin function
// when the argument length is fixed
func fixedArgs(lst ...TypeSet) func(Hint, []Node) error {
	return func(h Hint, args []Node) error {
		if len(lst) != len(args) {
			return mismatch(len(lst), len(args))
		}
		for i := range lst {
			if !compatible(TypeOf(args[i], h), lst[i]) {
				return errtypef(args[i], "not compatible with type %s", lst[i])
			}
		}
		return nil
	}
}

func variadicArgs(kind TypeSet) func(Hint, []Node) error {
	return func(h Hint, args []Node) error {
		if len(args) == 0 {
			return errsyntaxf("expected at least one argument")
		}
		for i := range args {
			if !TypeOf(args[i], h).AnyOf(kind) {
				return errtypef(args[i], "not compatible with type %s", kind)
			}
		}
		return nil
	}
}

func fixedRet(ts TypeSet) func(Hint, []Node) TypeSet {
	return func(Hint, []Node) TypeSet { return ts }
}

func firstArg(h Hint, args []Node) TypeSet {
	if len(args) == 0 {
		return AnyTypes
	}
	return TypeOf(args[0], h)
}

func unionArgs(h Hint, args []Node) TypeSet {
	var ts TypeSet
	for i := range args {
		ts |= TypeOf(args[i], h)
	}
	return ts
}

// Builtin is a call to a built-in function
type Builtin struct {
	Func BuiltinOp
	Args []Node
}

// Call yields a call to a built-in function.
func Call(op BuiltinOp, args ...Node) *Builtin {
	return &Builtin{Func: op, Args: args}
}

func (b *Builtin) text(dst *strings.Builder, redact bool) {
	dst.WriteString(b.Func.String())
	dst.WriteByte('(')
	for i := range b.Args {
		if i != 0 {
			dst.WriteString(", ")
		}
		b.Args[i].text(dst, redact)
	}
	dst.WriteByte(')')
}

func (b *Builtin) walk(v Visitor) {
	for i := range b.Args {
		Walk(v, b.Args[i])
	}
}

func (b *Builtin) rewrite(r Rewriter) Node {
	out := &Builtin{Func: b.Func, Args: make([]Node, len(b.Args))}
	for i := range b.Args {
		out.Args[i] = Rewrite(r, b.Args[i])
	}
	return out
}

func (b *Builtin) Equals(x Node) bool {
	xb, ok := x.(*Builtin)
	return ok && b.Func == xb.Func && slices.EqualFunc(b.Args, xb.Args, Equal)
}

func (b *Builtin) check(h Hint) error {
	if b.Func < 0 || b.Func >= Unspecified {
		return errsyntaxf("unknown builtin %d", b.Func)
	}
	return builtinInfos[b.Func].check(h, b.Args)
}

func (b *Builtin) typeof(h Hint) TypeSet {
	if b.Func < 0 || b.Func >= Unspecified {
		return AnyTypes
	}
	return builtinInfos[b.Func].ret(h, b.Args)
}
