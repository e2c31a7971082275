// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"reflect"
	"unsafe"
)

// Cast 将以 *F 持有的对象转为 *T，运行时类型不支持该转换时返回 nil。
// F 或 T 不是多态类型、对象未经 New 构造时 panic
func Cast[T any, F any](from *F) *T {
	return CastWithScope[T](DefaultScope(), from)
}

// CastWithScope 同 Cast，使用指定的作用域
func CastWithScope[T any, F any](s *Scope, from *F) *T {
	to, err := s.convert(unsafe.Pointer(from), typeFor[F](), typeFor[T]())
	if err != nil {
		panic(err)
	}
	return (*T)(to)
}

// To 类似引用的转换：from 为 nil 时返回 NilPtrErr，不可转换时返回 ErrInvalidConversion 而不是 nil。
// 类型不满足前置条件时返回 ErrNotPolymorphic，即使 from 为 nil
func To[T any, F any](from *F) (*T, error) {
	return ToWithScope[T](DefaultScope(), from)
}

// ToWithScope 同 To，使用指定的作用域
func ToWithScope[T any, F any](s *Scope, from *F) (*T, error) {
	fromType, toType := typeFor[F](), typeFor[T]()
	to, err := s.convert(unsafe.Pointer(from), fromType, toType)
	if err != nil {
		return nil, err
	}
	if to == nil {
		if from == nil {
			return nil, NilPtrErr
		}
		return nil, invalidCastErr(fromType, toType)
	}
	return (*T)(to), nil
}

// MustTo 同 To，不可转换时 panic
func MustTo[T any, F any](from *F) *T {
	to, err := To[T](from)
	if err != nil {
		panic(err)
	}
	return to
}

// ReflectCast 以反射的方式，from 须是指向多态结构体的指针，toType 是要转换成的指针类型
func ReflectCast(from reflect.Value, toType reflect.Type) (to reflect.Value, err error) {
	return ReflectCastWithScope(DefaultScope(), from, toType)
}

// ReflectCastWithScope 以反射的方式，使用指定的作用域。不可转换时返回 ErrInvalidConversion
func ReflectCastWithScope(s *Scope, from reflect.Value, toType reflect.Type) (to reflect.Value, err error) {
	if toType == nil || toType.Kind() != reflect.Pointer {
		return reflect.Value{}, notPolymorphicErr(toType)
	}
	if !from.IsValid() || from.Kind() != reflect.Pointer {
		var fromType reflect.Type
		if from.IsValid() {
			fromType = from.Type()
		}
		return reflect.Value{}, notPolymorphicErr(fromType)
	}
	fromType, toElemType := from.Type().Elem(), toType.Elem()
	ptr, err := s.convert(from.UnsafePointer(), fromType, toElemType)
	if err != nil {
		return reflect.Value{}, err
	}
	if ptr == nil {
		if from.IsNil() {
			return reflect.Zero(toType), NilPtrErr
		}
		return reflect.Zero(toType), invalidCastErr(fromType, toElemType)
	}
	return reflect.NewAt(toElemType, ptr), nil
}
