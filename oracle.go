// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"reflect"
	"unsafe"
)

// Source 一次转换的源：手里的地址、它的声明类型，以及对象的运行时类型和完整对象地址
type Source struct {
	Addr         unsafe.Pointer
	DeclaredType reflect.Type
	DynamicType  reflect.Type
	Object       unsafe.Pointer
}

// Resolution 真值转换的结果。Addr 为 nil 表示不可转换。
// Cacheable 为 false 表示结果还取决于源指向的是哪一个子对象（声明类型或目标类型在对象里出现了不止一次），
// 这时结果不能按 (目标类型, 运行时类型, 声明类型) 缓存
type Resolution struct {
	Addr      unsafe.Pointer
	Cacheable bool
}

// Oracle 类型识别与真值转换能力，缓存未命中时以它为准
//
//go:generate mockgen -source=oracle.go -destination=mocks/mock_oracle.go -package=mocks
type Oracle interface {
	// Identify 读取 addr 处对象的运行时类型与完整对象地址，addr 以 declaredType 持有且非 nil
	Identify(addr unsafe.Pointer, declaredType reflect.Type) (Source, error)

	// Closed 报告 typ 是否不可再被派生
	Closed(typ reflect.Type) bool

	// Resolve 不借助任何缓存地完成一次校验并转换
	Resolve(src Source, toType reflect.Type) (Resolution, error)
}

// LayoutOracle 基于反射遍历子对象图的默认实现，每次 Resolve 都会完整地走一遍图
type LayoutOracle struct{}

var _ Oracle = LayoutOracle{}

func (LayoutOracle) Identify(addr unsafe.Pointer, declaredType reflect.Type) (Source, error) {
	info := getTypeInfo(declaredType)
	if !info.polymorphic {
		return Source{}, notPolymorphicErr(declaredType)
	}
	header := (*Object)(unsafe.Add(addr, info.header))
	if header.self == nil {
		return Source{}, uninitializedErr(declaredType)
	}
	return Source{
		Addr:         addr,
		DeclaredType: declaredType,
		DynamicType:  reflect.TypeOf(header.self).Elem(),
		Object:       efaceData(header.self),
	}, nil
}

func (LayoutOracle) Closed(typ reflect.Type) bool {
	return getTypeInfo(typ).closed
}

// Resolve 的规则与 C++ dynamic_cast 一致：
// 目标类型是源子对象唯一的基类时直接向上转换；
// 否则若目标类型的子对象中恰有一个派生自源子对象，结果就是它（向下转换）；
// 否则若目标类型在完整对象里唯一，结果就是这个唯一的子对象（交叉转换）；
// 其余情况都失败
func (LayoutOracle) Resolve(src Source, toType reflect.Type) (Resolution, error) {
	g := buildGraph(src.DynamicType, src.Object)
	from := g.find(src.DeclaredType, src.Addr)
	if from < 0 {
		return Resolution{}, detachedErr(src.DeclaredType, src.DynamicType)
	}
	candidates := g.ofType(toType)
	declared := len(g.ofType(src.DeclaredType))
	res := Resolution{Cacheable: len(candidates) == 0 || (len(candidates) == 1 && declared == 1)}

	target, ambiguous := pick(candidates, func(c int) bool { return g.derives(from, c) })
	if target < 0 && !ambiguous {
		target, ambiguous = pick(candidates, func(c int) bool { return g.derives(c, from) })
	}
	if target < 0 && !ambiguous && len(candidates) == 1 {
		target = candidates[0]
	}
	if target >= 0 {
		res.Addr = g.nodes[target].addr
	}
	return res, nil
}

// pick 返回唯一满足 match 的候选，有多个时报告歧义
func pick(candidates []int, match func(int) bool) (int, bool) {
	target := -1
	for _, c := range candidates {
		if !match(c) {
			continue
		}
		if target >= 0 {
			return -1, true
		}
		target = c
	}
	return target, false
}
