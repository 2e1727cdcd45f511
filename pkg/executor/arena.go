// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/syzbound/syzbound/pkg/argsynth"
	"github.com/syzbound/syzbound/pkg/registry"
	"golang.org/x/sys/unix"
)

const (
	ptrSize  = uint64(unsafe.Sizeof(uintptr(0)))
	maxArena = 64 << 20
)

// arena lays out the memory pointed to by call arguments.
// Contents are built in a Go slice first and then copied into an anonymous
// mapping, so that the addresses passed to the kernel are not managed by the GC.
type arena struct {
	data   []byte
	fixups []fixup
	base   uint64
}

// fixup says that at offset at there must be the address of offset target.
type fixup struct {
	at     uint64
	target uint64
}

// arg is a syscall argument: either a plain value or an offset in the arena.
type arg struct {
	val uint64
	ptr bool
}

type builder struct {
	arena     *arena
	vals      []argsynth.Value
	resources map[string]uint64
}

func (a *arena) alloc(size, align uint64) uint64 {
	off := alignUp(uint64(len(a.data)), align)
	a.data = append(a.data, make([]byte, off+size-uint64(len(a.data)))...)
	return off
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

func (b *builder) next(path string) (argsynth.Value, error) {
	if len(b.vals) == 0 {
		return argsynth.Value{}, fmt.Errorf("no value for %v", path)
	}
	v := b.vals[0]
	b.vals = b.vals[1:]
	return v, nil
}

func (b *builder) args(params []*registry.Param) ([]arg, error) {
	var res []arg
	for _, p := range params {
		a, err := b.arg(p)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	if len(b.vals) != 0 {
		return nil, fmt.Errorf("%v values left unused", len(b.vals))
	}
	return res, nil
}

func (b *builder) arg(p *registry.Param) (arg, error) {
	switch p.Kind {
	case registry.KindInt:
		v, err := b.next(p.Name)
		if err != nil {
			return arg{}, err
		}
		return arg{val: v.Reg()}, nil
	case registry.KindResource:
		r, ok := b.resources[p.Ref]
		if !ok {
			return arg{}, fmt.Errorf("resource %v is not created", p.Ref)
		}
		return arg{val: r + p.Offset}, nil
	case registry.KindPtr:
		off, err := b.structure(p.Fields)
		return arg{val: off, ptr: true}, err
	case registry.KindString:
		off := b.arena.alloc(uint64(len(p.Str))+1, 1)
		copy(b.arena.data[off:], p.Str)
		return arg{val: off, ptr: true}, nil
	case registry.KindBuffer:
		if p.Size > maxArena {
			return arg{}, fmt.Errorf("buffer %v is too large: %v", p.Name, p.Size)
		}
		return arg{val: b.arena.alloc(p.Size, 8), ptr: true}, nil
	}
	return arg{}, fmt.Errorf("unknown param kind %v", p.Kind)
}

func fieldLayout(p *registry.Param) (size, align uint64) {
	switch p.Kind {
	case registry.KindInt:
		return p.Size, p.Size
	case registry.KindResource:
		if p.Size != 0 {
			return p.Size, p.Size
		}
	}
	return ptrSize, ptrSize
}

// structure places fields with natural alignment and native byte order.
func (b *builder) structure(fields []*registry.Param) (uint64, error) {
	var offsets []uint64
	var size, align uint64 = 0, 1
	for _, f := range fields {
		fsize, falign := fieldLayout(f)
		size = alignUp(size, falign)
		offsets = append(offsets, size)
		size += fsize
		align = max(align, falign)
	}
	size = alignUp(size, align)
	base := b.arena.alloc(size, align)
	for i, f := range fields {
		at := base + offsets[i]
		fsize, _ := fieldLayout(f)
		a, err := b.arg(f)
		if err != nil {
			return 0, err
		}
		if a.ptr {
			b.arena.fixups = append(b.arena.fixups, fixup{at: at, target: a.val})
			continue
		}
		putUint(b.arena.data[at:at+fsize], a.val)
	}
	return base, nil
}

func putUint(buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.NativeEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.NativeEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.NativeEndian.PutUint64(buf, v)
	default:
		panic(fmt.Sprintf("bad int size %v", len(buf)))
	}
}

// materialize copies the arena into fresh anonymous memory and patches pointers.
// The mapping is never unmapped: the executor exits right after the call.
func (a *arena) materialize() error {
	if len(a.data) == 0 {
		return nil
	}
	if len(a.data) > maxArena {
		return fmt.Errorf("arena is too large: %v", len(a.data))
	}
	mem, err := unix.Mmap(-1, 0, int(alignUp(uint64(len(a.data)), uint64(unix.Getpagesize()))),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("failed to map arena: %w", err)
	}
	a.base = uint64(uintptr(unsafe.Pointer(&mem[0])))
	copy(mem, a.data)
	for _, fix := range a.fixups {
		putUint(mem[fix.at:fix.at+ptrSize], a.base+fix.target)
	}
	a.data = mem
	return nil
}

func (a *arena) resolve(args []arg) []uint64 {
	res := make([]uint64, len(args))
	for i, arg := range args {
		res[i] = arg.val
		if arg.ptr {
			res[i] += a.base
		}
	}
	return res
}
