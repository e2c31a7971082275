// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"reflect"
)

// Object 多态对象头，作用类似 C++ 的虚表指针：记录了所在完整对象（最派生对象）的指针。
// 需要参与动态转换的结构体都要直接或间接地以值的方式嵌入 Object，
// 由 New 构造对象时，对象内所有的 Object 都会指向这个完整对象。
//
// 构造后的对象不可拷贝，拷贝出来的对象头仍指向原对象。
type Object struct {
	noCopy noCopy
	self   any
}

// Self 返回所在的完整对象，是一个指向最派生类型的指针；对象未经 New 构造时返回 nil
func (o *Object) Self() any {
	return o.self
}

// DynamicType 返回完整对象的类型（即运行时类型）
func (o *Object) DynamicType() reflect.Type {
	if o.self == nil {
		return nil
	}
	return reflect.TypeOf(o.self).Elem()
}

// Final 直接嵌入 Final 的结构体不可再被派生（不能再作为基类被嵌入），
// 这样转换到它时只要运行时类型不同就必然失败，无需查缓存
type Final struct{}

// noCopy 让 go vet 的 copylocks 检查能发现对象被拷贝
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
