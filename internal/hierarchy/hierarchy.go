// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package hierarchy 基准与测试用的类型层次。空白字段用来把各个子对象错开，让位移不为 0
package hierarchy

import (
	"reflect"
	"sort"

	"github.com/china-tjj/dyncast"
	"go.trai.ch/zerr"
)

// 单继承

type SimpleBase struct {
	dyncast.Object
	_ [16]byte
}

type SimpleDerived struct {
	dyncast.Object
	_ [40]byte
	SimpleBase
	_ [48]byte
}

type SimpleDerivedFromDerived struct {
	dyncast.Object
	_ [72]byte
	SimpleDerived
	_ [88]byte
}

type OtherSimpleDerived struct {
	dyncast.Object
	_ [56]byte
	SimpleBase
	_ [64]byte
}

type OtherSimpleDerivedFinal struct {
	dyncast.Final
	dyncast.Object
	_ [64]byte
	SimpleBase
	_ [56]byte
}

// 虚继承的菱形：B、C 共享同一个 A

type A struct {
	dyncast.Object
	_ [32]byte
}

type B struct {
	dyncast.Object
	_  [40]byte
	*A `dyncast:"virtual"`
	_  [48]byte
}

type C struct {
	dyncast.Object
	_  [56]byte
	*A `dyncast:"virtual"`
	_  [64]byte
}

type D struct {
	dyncast.Object
	_ [72]byte
	B
	_ [88]byte
	C
	_ [96]byte
}

// 非虚继承的菱形：Diamond 里有两个 Root

type Root struct {
	dyncast.Object
	_ [8]byte
}

type Left struct {
	dyncast.Object
	Root
	_ [24]byte
}

type Right struct {
	dyncast.Object
	_ [40]byte
	Root
}

type Diamond struct {
	dyncast.Object
	Left
	Right
}

// ErrUnknownType 名字没有注册
var ErrUnknownType = zerr.New("unknown type")

var types = map[string]reflect.Type{}

func register[T any]() {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	types[typ.Name()] = typ
}

func init() {
	register[SimpleBase]()
	register[SimpleDerived]()
	register[SimpleDerivedFromDerived]()
	register[OtherSimpleDerived]()
	register[OtherSimpleDerivedFinal]()
	register[A]()
	register[B]()
	register[C]()
	register[D]()
	register[Root]()
	register[Left]()
	register[Right]()
	register[Diamond]()
}

// Lookup 按名字查类型
func Lookup(name string) (reflect.Type, error) {
	typ, ok := types[name]
	if !ok {
		return nil, zerr.With(zerr.Wrap(ErrUnknownType, "no such type in the hierarchy"), "name", name)
	}
	return typ, nil
}

// Names 已注册的类型名，按字典序
func Names() []string {
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewByName 构造名为 name 的完整对象
func NewByName(name string) (reflect.Value, error) {
	typ, err := Lookup(name)
	if err != nil {
		return reflect.Value{}, err
	}
	return dyncast.NewOf(typ)
}
