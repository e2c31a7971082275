// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"reflect"
	"strconv"
	"sync"
	"unsafe"
)

func isVirtualBase(f *reflect.StructField) bool {
	return f.Anonymous && f.Type.Kind() == reflect.Pointer && f.Type.Elem().Kind() == reflect.Struct &&
		f.Tag.Get(TagKey) == tagVirtual
}

// isBase 以值嵌入的结构体是基类，Object 与 Final 只是标记，不算
func isBase(f *reflect.StructField) bool {
	return f.Anonymous && f.Type.Kind() == reflect.Struct && f.Type != objectType && f.Type != finalType
}

// typeInfo 类型的静态信息，与具体对象无关，算一次就够了
type typeInfo struct {
	polymorphic bool
	closed      bool
	header      uintptr // 对象头相对类型起点的偏移
}

var typeInfos sync.Map // map[unsafe.Pointer]*typeInfo

func getTypeInfo(typ reflect.Type) *typeInfo {
	key := typePtr(typ)
	if v, ok := typeInfos.Load(key); ok {
		return v.(*typeInfo)
	}
	info := &typeInfo{}
	if typ.Kind() == reflect.Struct {
		info.header, info.polymorphic = findHeader(typ)
		n := typ.NumField()
		for i := 0; i < n; i++ {
			f := typ.Field(i)
			if f.Anonymous && f.Type == finalType {
				info.closed = true
				break
			}
		}
	}
	v, _ := typeInfos.LoadOrStore(key, info)
	return v.(*typeInfo)
}

// findHeader 广度优先找最浅的对象头，同一深度有多个也无妨，它们都指向同一个完整对象
func findHeader(typ reflect.Type) (uintptr, bool) {
	type item struct {
		typ    reflect.Type
		offset uintptr
	}
	queue := []item{{typ, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := cur.typ.NumField()
		for i := 0; i < n; i++ {
			f := cur.typ.Field(i)
			if f.Anonymous && f.Type == objectType {
				return cur.offset + f.Offset, true
			}
		}
		for i := 0; i < n; i++ {
			f := cur.typ.Field(i)
			if isBase(&f) {
				queue = append(queue, item{f.Type, cur.offset + f.Offset})
			}
		}
	}
	return 0, false
}

func checkPolymorphic(typ reflect.Type) error {
	if typ == nil || !getTypeInfo(typ).polymorphic {
		return notPolymorphicErr(typ)
	}
	return nil
}

type virtualSlot struct {
	slot   uintptr // 虚基类指针字段的偏移
	target uintptr // 共享实例的偏移
}

// layout 构造一个完整对象所需的信息。虚基类的共享实例与完整对象分配在同一块内存里，
// 紧跟在完整对象之后，所以到它们的位移对同一个类型是常量
type layout struct {
	typ      reflect.Type
	alloc    reflect.Type
	headers  []uintptr
	virtuals []virtualSlot
}

type layoutResult struct {
	layout *layout
	err    error
}

var layouts sync.Map // map[unsafe.Pointer]*layoutResult

func getLayout(typ reflect.Type) (*layout, error) {
	key := typePtr(typ)
	if v, ok := layouts.Load(key); ok {
		r := v.(*layoutResult)
		return r.layout, r.err
	}
	l, err := newLayout(typ)
	v, _ := layouts.LoadOrStore(key, &layoutResult{l, err})
	r := v.(*layoutResult)
	return r.layout, r.err
}

func newLayout(typ reflect.Type) (*layout, error) {
	if err := checkPolymorphic(typ); err != nil {
		return nil, err
	}
	var vbases []reflect.Type
	seen := make(map[reflect.Type]bool)
	var collect func(t reflect.Type, stack []reflect.Type) error
	collect = func(t reflect.Type, stack []reflect.Type) error {
		n := t.NumField()
		for i := 0; i < n; i++ {
			f := t.Field(i)
			switch {
			case isBase(&f):
				if getTypeInfo(f.Type).closed {
					return closedBaseErr(t, f.Type)
				}
				if err := collect(f.Type, stack); err != nil {
					return err
				}
			case isVirtualBase(&f):
				vt := f.Type.Elem()
				if getTypeInfo(vt).closed {
					return closedBaseErr(t, vt)
				}
				for _, s := range stack {
					if s == vt {
						return virtualCycleErr(vt)
					}
				}
				if seen[vt] {
					continue
				}
				seen[vt] = true
				vbases = append(vbases, vt)
				if err := collect(vt, append(stack, vt)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := collect(typ, []reflect.Type{typ}); err != nil {
		return nil, err
	}

	l := &layout{typ: typ, alloc: typ}
	instances := map[reflect.Type]uintptr{typ: 0}
	if len(vbases) > 0 {
		fields := make([]reflect.StructField, 0, len(vbases)+1)
		fields = append(fields, reflect.StructField{Name: "Value", Type: typ})
		for i, vt := range vbases {
			fields = append(fields, reflect.StructField{Name: "V" + strconv.Itoa(i), Type: vt})
		}
		l.alloc = reflect.StructOf(fields)
		for i, vt := range vbases {
			instances[vt] = l.alloc.Field(i + 1).Offset
		}
	}

	var wire func(t reflect.Type, offset uintptr)
	wire = func(t reflect.Type, offset uintptr) {
		n := t.NumField()
		for i := 0; i < n; i++ {
			f := t.Field(i)
			switch {
			case f.Anonymous && f.Type == objectType:
				l.headers = append(l.headers, offset+f.Offset)
			case isBase(&f):
				wire(f.Type, offset+f.Offset)
			case isVirtualBase(&f):
				l.virtuals = append(l.virtuals, virtualSlot{slot: offset + f.Offset, target: instances[f.Type.Elem()]})
			}
		}
	}
	wire(typ, 0)
	for _, vt := range vbases {
		wire(vt, instances[vt])
	}
	return l, nil
}

func (l *layout) instantiate() unsafe.Pointer {
	base := reflect.New(l.alloc).UnsafePointer()
	self := reflect.NewAt(l.typ, base).Interface()
	for _, offset := range l.headers {
		(*Object)(unsafe.Add(base, offset)).self = self
	}
	for _, v := range l.virtuals {
		*(*unsafe.Pointer)(unsafe.Add(base, v.slot)) = unsafe.Add(base, v.target)
	}
	return base
}

// New 构造一个完整对象：对象内所有的对象头都指向它，所有虚基类指针都指向同一块内存里的共享实例。
// T 不是多态类型、嵌入了 Final 类型作为基类、或虚基类成环时 panic
func New[T any]() *T {
	l, err := getLayout(typeFor[T]())
	if err != nil {
		panic(err)
	}
	return (*T)(l.instantiate())
}

// NewOf 以反射的方式构造完整对象，返回指向它的指针
func NewOf(typ reflect.Type) (reflect.Value, error) {
	if typ == nil {
		return reflect.Value{}, notPolymorphicErr(nil)
	}
	l, err := getLayout(typ)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.NewAt(typ, l.instantiate()), nil
}

// Subobject 完整对象里的一个子对象
type Subobject struct {
	Type    reflect.Type
	Offset  uintptr // 相对完整对象起点
	Bases   []int   // 直接基类在结果中的下标
	Virtual bool    // 是否是共享的虚基类实例
}

// Describe 列出类型为 typ 的完整对象的所有子对象，第一个是完整对象本身，共享的虚基类只出现一次
func Describe(typ reflect.Type) ([]Subobject, error) {
	obj, err := NewOf(typ)
	if err != nil {
		return nil, err
	}
	base := obj.UnsafePointer()
	g := buildGraph(typ, base)
	out := make([]Subobject, len(g.nodes))
	for i, node := range g.nodes {
		out[i] = Subobject{
			Type:    node.typ,
			Offset:  uintptr(node.addr) - uintptr(base),
			Bases:   node.bases,
			Virtual: node.virtual,
		}
	}
	return out, nil
}

type nodeKey struct {
	typePtr unsafe.Pointer
	addr    unsafe.Pointer
}

type subobject struct {
	typ     reflect.Type
	addr    unsafe.Pointer
	bases   []int
	virtual bool
}

// subobjectGraph 完整对象的子对象图，边由派生类指向直接基类
type subobjectGraph struct {
	nodes []subobject
	index map[nodeKey]int
}

// buildGraph 每次都从内存里现读虚基类指针，不做任何缓存
func buildGraph(typ reflect.Type, obj unsafe.Pointer) *subobjectGraph {
	g := &subobjectGraph{index: make(map[nodeKey]int)}
	g.add(typ, obj, false)
	return g
}

func (g *subobjectGraph) add(typ reflect.Type, addr unsafe.Pointer, virtual bool) int {
	key := nodeKey{typePtr(typ), addr}
	if i, ok := g.index[key]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, subobject{typ: typ, addr: addr, virtual: virtual})
	g.index[key] = i
	n := typ.NumField()
	for j := 0; j < n; j++ {
		f := typ.Field(j)
		var child int
		switch {
		case isBase(&f):
			child = g.add(f.Type, unsafe.Add(addr, f.Offset), false)
		case isVirtualBase(&f):
			p := *(*unsafe.Pointer)(unsafe.Add(addr, f.Offset))
			if p == nil {
				continue
			}
			child = g.add(f.Type.Elem(), p, true)
		default:
			continue
		}
		g.nodes[i].bases = append(g.nodes[i].bases, child)
	}
	return i
}

func (g *subobjectGraph) find(typ reflect.Type, addr unsafe.Pointer) int {
	if i, ok := g.index[nodeKey{typePtr(typ), addr}]; ok {
		return i
	}
	return -1
}

func (g *subobjectGraph) ofType(typ reflect.Type) []int {
	var out []int
	for i := range g.nodes {
		if g.nodes[i].typ == typ {
			out = append(out, i)
		}
	}
	return out
}

// derives 判断 from 是否以 to 为（直接或间接）基类，自身也算
func (g *subobjectGraph) derives(from, to int) bool {
	if from == to {
		return true
	}
	visited := make([]bool, len(g.nodes))
	stack := []int{from}
	visited[from] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, b := range g.nodes[cur].bases {
			if b == to {
				return true
			}
			if !visited[b] {
				visited[b] = true
				stack = append(stack, b)
			}
		}
	}
	return false
}
