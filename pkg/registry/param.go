// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package registry

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindInt Kind = iota
	KindResource
	KindPtr
	KindString
	KindBuffer
)

func (k Kind) String() string {
	return [...]string{"int", "resource", "ptr", "string", "buffer"}[k]
}

// Param describes one syscall argument or one field of a pointed-to struct.
// The shape is fixed when the case is written; only int values are synthesized.
type Param struct {
	Name string
	Kind Kind
	// Size is the width in bytes for ints and resources (0 means pointer size)
	// and the length for buffers.
	Size   uint64
	Signed bool
	// Range is the allowed range of an int, MAX/MIN pick its bounds.
	Range    *Range
	Strategy Strategy
	// Ref is the setup resource a Resource param takes its value from.
	Ref string
	// Offset is added to the resource value.
	Offset uint64
	// Fields of the struct a Ptr param points to, laid out with natural alignment.
	Fields []*Param
	// Str is the NUL-terminated contents of a String param.
	Str string
}

// Range bounds are bit patterns of the value, interpreted as signed for signed params.
type Range struct {
	Min uint64 `json:"min" yaml:"min"`
	Max uint64 `json:"max" yaml:"max"`
}

func Int(name string, size uint64, strat Strategy) *Param {
	return &Param{Name: name, Kind: KindInt, Size: size, Strategy: strat}
}

func SInt(name string, size uint64, strat Strategy) *Param {
	return &Param{Name: name, Kind: KindInt, Size: size, Signed: true, Strategy: strat}
}

// Bounded sets the allowed range of an int param.
func (p *Param) Bounded(min, max uint64) *Param {
	p.Range = &Range{Min: min, Max: max}
	return p
}

func Resource(name, ref string) *Param {
	return &Param{Name: name, Kind: KindResource, Ref: ref}
}

// Plus makes a Resource param pass ref+off.
func (p *Param) Plus(off uint64) *Param {
	p.Offset = off
	return p
}

func Ptr(name string, fields ...*Param) *Param {
	return &Param{Name: name, Kind: KindPtr, Fields: fields}
}

func Str(name, s string) *Param {
	return &Param{Name: name, Kind: KindString, Str: s}
}

func Buffer(name string, size uint64) *Param {
	return &Param{Name: name, Kind: KindBuffer, Size: size}
}

func (p *Param) String() string {
	switch p.Kind {
	case KindInt:
		sign := "u"
		if p.Signed {
			sign = "s"
		}
		return fmt.Sprintf("%v %v%v %v", p.Name, sign, p.Size*8, p.Strategy)
	case KindResource:
		if p.Offset != 0 {
			return fmt.Sprintf("%v %v+%#x", p.Name, p.Ref, p.Offset)
		}
		return fmt.Sprintf("%v %v", p.Name, p.Ref)
	case KindPtr:
		var fields []string
		for _, f := range p.Fields {
			fields = append(fields, f.String())
		}
		return fmt.Sprintf("%v &{%v}", p.Name, strings.Join(fields, ", "))
	case KindString:
		return fmt.Sprintf("%v %q", p.Name, p.Str)
	default:
		return fmt.Sprintf("%v buffer[%v]", p.Name, p.Size)
	}
}

func cloneParams(params []*Param) []*Param {
	if params == nil {
		return nil
	}
	res := make([]*Param, len(params))
	for i, p := range params {
		cp := *p
		if p.Range != nil {
			r := *p.Range
			cp.Range = &r
		}
		cp.Fields = cloneParams(p.Fields)
		res[i] = &cp
	}
	return res
}

// fits says if the bit pattern v is a value of a size-byte int: zero-extended,
// or also sign-extended for signed ints.
func fits(v, size uint64, signed bool) bool {
	width := size * 8
	if width >= 64 {
		return true
	}
	if v < 1<<width {
		return true
	}
	if !signed {
		return false
	}
	shift := 64 - width
	return uint64(int64(v<<shift)>>shift) == v
}

// asSigned interprets a fitting bit pattern of a size-byte int as a signed value.
func asSigned(v, size uint64) int64 {
	shift := 64 - size*8
	return int64(v<<shift) >> shift
}

// ForEachInt calls fn for every int leaf of params in depth-first field order,
// path is the dotted param name (e.g. "tp.tv_sec"). This is the order
// synthesized values are passed in.
func ForEachInt(params []*Param, fn func(path string, p *Param)) {
	forEachInt("", params, fn)
}

func forEachInt(prefix string, params []*Param, fn func(string, *Param)) {
	for _, p := range params {
		path := prefix + p.Name
		switch p.Kind {
		case KindInt:
			fn(path, p)
		case KindPtr:
			forEachInt(path+".", p.Fields, fn)
		}
	}
}

// FindParam returns the param with the given dotted path.
func FindParam(params []*Param, path string) *Param {
	name, rest, nested := strings.Cut(path, ".")
	for _, p := range params {
		if p.Name != name {
			continue
		}
		if !nested {
			return p
		}
		if p.Kind == KindPtr {
			return FindParam(p.Fields, rest)
		}
	}
	return nil
}
