// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"code.hybscloud.com/atomix"
)

// control 共享所有权的控制块，同一对象的所有句柄（包括转换出来的）共用一个
type control struct {
	refs    atomix.Int64
	release func()
}

// Shared 带引用计数的所有权句柄。对象的生命周期由控制块决定，
// 句柄自身的地址与类型可以是转换后的子对象，与所有权无关。零值是空句柄
type Shared[T any] struct {
	ptr *T
	ctl *control
}

// NewShared 创建引用计数为 1 的句柄，最后一个句柄 Release 时调用 release（可为 nil）
func NewShared[T any](ptr *T, release func()) Shared[T] {
	if ptr == nil {
		return Shared[T]{}
	}
	ctl := &control{release: release}
	ctl.refs.StoreRelaxed(1)
	return Shared[T]{ptr: ptr, ctl: ctl}
}

func (s Shared[T]) Get() *T {
	return s.ptr
}

func (s Shared[T]) IsEmpty() bool {
	return s.ptr == nil
}

// UseCount 当前控制块上的句柄数，空句柄为 0
func (s Shared[T]) UseCount() int64 {
	if s.ctl == nil {
		return 0
	}
	return s.ctl.refs.LoadRelaxed()
}

// Clone 复制一个句柄，引用计数加一
func (s Shared[T]) Clone() Shared[T] {
	if s.ctl == nil {
		return Shared[T]{}
	}
	s.ctl.refs.AddAcqRel(1)
	return s
}

// Release 释放句柄，*s 变为空句柄
func (s *Shared[T]) Release() {
	ctl := s.ctl
	*s = Shared[T]{}
	if ctl == nil {
		return
	}
	if ctl.refs.AddAcqRel(-1) == 0 && ctl.release != nil {
		ctl.release()
	}
}

// CastShared 转换句柄：成功时返回的句柄与 from 共用控制块（引用计数加一），地址指向转换后的子对象；
// 不可转换时返回空句柄
func CastShared[T any, F any](from Shared[F]) Shared[T] {
	return CastSharedWithScope[T](DefaultScope(), from)
}

// CastSharedWithScope 同 CastShared，使用指定的作用域
func CastSharedWithScope[T any, F any](s *Scope, from Shared[F]) Shared[T] {
	to := CastWithScope[T](s, from.ptr)
	if to == nil {
		return Shared[T]{}
	}
	from.ctl.refs.AddAcqRel(1)
	return Shared[T]{ptr: to, ctl: from.ctl}
}

// CastSharedMove 转换并接管 *from 的引用：成功时 *from 变为空句柄，引用计数不变；失败时 *from 保持不变
func CastSharedMove[T any, F any](from *Shared[F]) Shared[T] {
	return CastSharedMoveWithScope[T](DefaultScope(), from)
}

// CastSharedMoveWithScope 同 CastSharedMove，使用指定的作用域
func CastSharedMoveWithScope[T any, F any](s *Scope, from *Shared[F]) Shared[T] {
	to := CastWithScope[T](s, from.ptr)
	if to == nil {
		return Shared[T]{}
	}
	out := Shared[T]{ptr: to, ctl: from.ctl}
	*from = Shared[F]{}
	return out
}
