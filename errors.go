// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"reflect"

	"go.trai.ch/zerr"
)

type strErr string

func (e strErr) Error() string {
	return string(e)
}

const NilPtrErr = strErr("can't address nil pointer")

var (
	// ErrInvalidConversion 对象的运行时类型不支持转换到目标类型
	ErrInvalidConversion = zerr.New("invalid conversion")

	// ErrNotPolymorphic 类型不是结构体，或没有嵌入 Object
	ErrNotPolymorphic = zerr.New("type is not polymorphic")

	// ErrUninitialized 对象头为空，对象不是通过 New 构造的
	ErrUninitialized = zerr.New("object header is not initialized")

	// ErrDetachedObject 指针不指向其对象头所记录的完整对象内部，通常是对象被拷贝过
	ErrDetachedObject = zerr.New("pointer is not a sub-object of its complete object")

	// ErrClosedBase Final 类型被当作基类嵌入
	ErrClosedBase = zerr.New("final type embedded as a base")

	// ErrVirtualCycle 虚基类之间出现了环
	ErrVirtualCycle = zerr.New("virtual base cycle")

	// ErrOffsetOutOfRange 位移超出 int32，属于不可恢复的内部错误
	ErrOffsetOutOfRange = zerr.New("offset is too large")

	// ErrInconsistentCache 同一个键记录了不同的结果，类型布局不会在运行时变化，所以只可能是调用方的 bug
	ErrInconsistentCache = zerr.New("inconsistent conversion cache entry")
)

func invalidCastErr(fromType, toType reflect.Type) error {
	return zerr.With(
		zerr.With(zerr.Wrap(ErrInvalidConversion, "can't cast"), "from", getTypeString(fromType)),
		"to", getTypeString(toType),
	)
}

func notPolymorphicErr(typ reflect.Type) error {
	return zerr.With(zerr.Wrap(ErrNotPolymorphic, "dyncast requires a struct embedding dyncast.Object"), "type", getTypeString(typ))
}

func uninitializedErr(typ reflect.Type) error {
	return zerr.With(zerr.Wrap(ErrUninitialized, "construct the object with dyncast.New"), "type", getTypeString(typ))
}

func detachedErr(declared, dynamic reflect.Type) error {
	return zerr.With(
		zerr.With(zerr.Wrap(ErrDetachedObject, "was the object copied?"), "declared", getTypeString(declared)),
		"dynamic", getTypeString(dynamic),
	)
}

func closedBaseErr(derived, base reflect.Type) error {
	return zerr.With(
		zerr.With(zerr.Wrap(ErrClosedBase, "final types can't be derived from"), "type", getTypeString(derived)),
		"base", getTypeString(base),
	)
}

func virtualCycleErr(typ reflect.Type) error {
	return zerr.With(zerr.Wrap(ErrVirtualCycle, "virtual base reaches itself"), "type", getTypeString(typ))
}

func offsetOutOfRangeErr(wide int64) error {
	return zerr.With(zerr.Wrap(ErrOffsetOutOfRange, "displacement doesn't fit in int32"), "displacement", wide)
}

func inconsistentErr(toType, dynamicType reflect.Type, detail string) error {
	return zerr.With(
		zerr.With(zerr.Wrap(ErrInconsistentCache, detail), "to", getTypeString(toType)),
		"dynamic", getTypeString(dynamicType),
	)
}
