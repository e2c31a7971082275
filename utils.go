// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"reflect"
	"unsafe"
)

func typeFor[T any]() reflect.Type {
	var v T
	if t := reflect.TypeOf(v); t != nil {
		return t // optimize for T being a non-interface kind
	}
	return reflect.TypeOf((*T)(nil)).Elem() // only for an interface kind
}

func typePtr(t reflect.Type) unsafe.Pointer {
	return noEscape((*eface)(unsafe.Pointer(&t)).ptr)
}

type eface struct {
	typ unsafe.Pointer
	ptr unsafe.Pointer
}

// efaceData 取出接口里的数据指针。接口存指针时，data 就是这个指针本身
func efaceData(v any) unsafe.Pointer {
	return (*eface)(unsafe.Pointer(&v)).ptr
}

//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}

func getTypeString(typ reflect.Type) string {
	if typ == nil {
		return "nil"
	}
	return typ.String()
}

// adjust 按位移调整地址，全包唯一做指针算术的地方，调用前位移必须已经过 checkedOffset 校验
func adjust(addr unsafe.Pointer, displacement int32) unsafe.Pointer {
	return unsafe.Add(addr, int(displacement))
}

// checkedOffset 将两个地址之差收窄为 int32，超出范围说明内部状态已不一致
func checkedOffset(wide int64) (int32, error) {
	if wide > minOffset && wide < maxOffset {
		return int32(wide), nil
	}
	return 0, offsetOutOfRangeErr(wide)
}
