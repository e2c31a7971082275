// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"unsafe"
)

type typePair struct {
	fromTypePtr unsafe.Pointer
	toTypePtr   unsafe.Pointer
}

// upcast 从声明类型到其基类的静态路径，相当于 C++ 编译期就能确定的隐式转换
type upcast struct {
	index []int // nil 表示 toType 不是 fromType 静态可达的基类
}

var upcasts sync.Map // map[typePair]*upcast

func getUpcast(fromType, toType reflect.Type) *upcast {
	key := typePair{fromTypePtr: typePtr(fromType), toTypePtr: typePtr(toType)}
	if v, ok := upcasts.Load(key); ok {
		return v.(*upcast)
	}
	v, _ := upcasts.LoadOrStore(key, newUpcast(fromType, toType))
	return v.(*upcast)
}

// newUpcast 在 fromType 的静态子对象中数 toType 出现的次数：值嵌入的基类每条路径各算一次，
// 虚基类按类型只算一次。恰好出现一次才是静态可达的基类，否则交给运行时判断
func newUpcast(fromType, toType reflect.Type) *upcast {
	var index []int
	count := 0
	virtuals := make(map[reflect.Type]bool)
	var walk func(t reflect.Type, path []int)
	walk = func(t reflect.Type, path []int) {
		n := t.NumField()
		for i := 0; i < n; i++ {
			f := t.Field(i)
			var base reflect.Type
			switch {
			case isBase(&f):
				base = f.Type
			case isVirtualBase(&f):
				base = f.Type.Elem()
				if virtuals[base] {
					continue
				}
				virtuals[base] = true
			default:
				continue
			}
			next := append(path[:len(path):len(path)], i)
			if base == toType {
				count++
				if index == nil {
					index = next
				}
			}
			walk(base, next)
		}
	}
	walk(fromType, nil)
	if count != 1 {
		return &upcast{}
	}
	return &upcast{index: index}
}

func (u *upcast) apply(fromType reflect.Type, from unsafe.Pointer) (unsafe.Pointer, bool) {
	v, err := reflect.NewAt(fromType, from).Elem().FieldByIndexErr(u.index)
	if err != nil {
		// 虚基类指针为 nil
		return nil, false
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		return v.UnsafePointer(), true
	}
	return v.Addr().UnsafePointer(), true
}

// convert 转换的主流程。返回的 error 只会是前置条件错误，
// 位移越界与缓存不一致属于内部错误，直接 panic
func (s *Scope) convert(from unsafe.Pointer, fromType, toType reflect.Type) (unsafe.Pointer, error) {
	if err := checkPolymorphic(fromType); err != nil {
		return nil, err
	}
	if err := checkPolymorphic(toType); err != nil {
		return nil, err
	}
	if from == nil {
		return nil, nil
	}
	if fromType == toType {
		s.shortcuts.AddAcqRel(1)
		return from, nil
	}
	if up := getUpcast(fromType, toType); up.index != nil {
		if to, ok := up.apply(fromType, from); ok {
			s.shortcuts.AddAcqRel(1)
			return to, nil
		}
	}

	src, err := s.oracle.Identify(from, fromType)
	if err != nil {
		return nil, err
	}
	if s.oracle.Closed(toType) && src.DynamicType != toType {
		s.shortcuts.AddAcqRel(1)
		return nil, nil
	}

	key := conversionKey{toTypePtr: typePtr(toType), dynamicTypePtr: typePtr(src.DynamicType)}
	switch o, d := s.cache.lookup(key, typePtr(fromType)); o {
	case outcomeImpossible:
		s.hits.AddAcqRel(1)
		return nil, nil
	case outcomePossible:
		s.hits.AddAcqRel(1)
		return adjust(from, d), nil
	}
	s.misses.AddAcqRel(1)
	return s.resolve(key, src, toType)
}

// resolve 慢路径：不持有任何锁地调用一次真值转换，再把结果写入缓存。
// 多个 goroutine 可能同时解析同一个键，写入是幂等的
func (s *Scope) resolve(key conversionKey, src Source, toType reflect.Type) (unsafe.Pointer, error) {
	s.resolutions.AddAcqRel(1)
	res, err := s.oracle.Resolve(src, toType)
	if err != nil {
		return nil, err
	}
	if !res.Cacheable {
		s.uncacheable.AddAcqRel(1)
		s.logger.Warn("dyncast: result depends on the sub-object, not cached",
			slog.String("to", toType.String()),
			slog.String("dynamic", src.DynamicType.String()),
			slog.String("declared", src.DeclaredType.String()),
		)
		return res.Addr, nil
	}
	if res.Addr == nil {
		s.cache.recordImpossible(key, toType, src.DynamicType)
		s.logResolution(src, toType, false, 0)
		return nil, nil
	}
	d, err := checkedOffset(int64(uintptr(res.Addr)) - int64(uintptr(src.Addr)))
	if err != nil {
		panic(err)
	}
	s.cache.recordPossible(key, toType, src.DynamicType, src.DeclaredType, d)
	s.logResolution(src, toType, true, d)
	return adjust(src.Addr, d), nil
}

func (s *Scope) logResolution(src Source, toType reflect.Type, possible bool, d int32) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.logger.Debug("dyncast: resolved",
		slog.String("to", toType.String()),
		slog.String("dynamic", src.DynamicType.String()),
		slog.String("declared", src.DeclaredType.String()),
		slog.Bool("possible", possible),
		slog.Int("displacement", int(d)),
	)
}
