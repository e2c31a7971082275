// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"reflect"
	"sort"
	"sync"
	"unsafe"
)

// conversionKey 第一层的键：能否转换只取决于目标类型与运行时类型
type conversionKey struct {
	toTypePtr      unsafe.Pointer
	dynamicTypePtr unsafe.Pointer
}

type displacement struct {
	declaredType reflect.Type
	value        int32
}

// cacheEntry possible 为 false 时 displacements 永远为空
type cacheEntry struct {
	toType        reflect.Type
	dynamicType   reflect.Type
	possible      bool
	displacements map[unsafe.Pointer]displacement // 第二层：声明类型 => 位移
}

// cache 两层的转换缓存，只增不删，直到 reset
type cache struct {
	entries map[conversionKey]*cacheEntry
	mu      sync.RWMutex // 读多写少的场景，sync.RWMutex的效率比sync.Map更高
}

func newCache() *cache {
	return &cache{
		entries: make(map[conversionKey]*cacheEntry),
	}
}

func (c *cache) lookup(key conversionKey, declaredTypePtr unsafe.Pointer) (outcome, int32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return outcomeUnresolved, 0
	}
	if !entry.possible {
		return outcomeImpossible, 0
	}
	d, ok := entry.displacements[declaredTypePtr]
	if !ok {
		return outcomeUnresolved, 0
	}
	return outcomePossible, d.value
}

func (c *cache) recordImpossible(key conversionKey, toType, dynamicType reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		c.entries[key] = &cacheEntry{toType: toType, dynamicType: dynamicType}
		return
	}
	if entry.possible {
		panic(inconsistentErr(toType, dynamicType, "recorded impossible after possible"))
	}
}

func (c *cache) recordPossible(key conversionKey, toType, dynamicType, declaredType reflect.Type, value int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &cacheEntry{
			toType:        toType,
			dynamicType:   dynamicType,
			possible:      true,
			displacements: make(map[unsafe.Pointer]displacement, 1),
		}
		c.entries[key] = entry
	} else if !entry.possible {
		panic(inconsistentErr(toType, dynamicType, "recorded possible after impossible"))
	}
	declaredTypePtr := typePtr(declaredType)
	if d, ok := entry.displacements[declaredTypePtr]; ok {
		if d.value != value {
			panic(inconsistentErr(toType, dynamicType, "displacement changed for "+declaredType.String()))
		}
		return
	}
	entry.displacements[declaredTypePtr] = displacement{declaredType: declaredType, value: value}
}

func (c *cache) reset() {
	c.mu.Lock()
	c.entries = make(map[conversionKey]*cacheEntry)
	c.mu.Unlock()
}

// len 返回记录数：每个不可能的 (目标类型, 运行时类型) 算一条，每个已知位移算一条
func (c *cache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, entry := range c.entries {
		if entry.possible {
			n += len(entry.displacements)
		} else {
			n++
		}
	}
	return n
}

// Entry 缓存里的一条记录，Possible 为 false 时 DeclaredType 为 nil
type Entry struct {
	ToType       reflect.Type
	DynamicType  reflect.Type
	DeclaredType reflect.Type
	Possible     bool
	Displacement int32
}

func (e Entry) sortKey() string {
	return getTypeString(e.ToType) + "|" + getTypeString(e.DynamicType) + "|" + getTypeString(e.DeclaredType)
}

// snapshot 按类型名排序，结果与插入顺序无关
func (c *cache) snapshot() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if !entry.possible {
			out = append(out, Entry{ToType: entry.toType, DynamicType: entry.dynamicType})
			continue
		}
		for _, d := range entry.displacements {
			out = append(out, Entry{
				ToType:       entry.toType,
				DynamicType:  entry.dynamicType,
				DeclaredType: d.declaredType,
				Possible:     true,
				Displacement: d.value,
			})
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].sortKey() < out[j].sortKey()
	})
	return out
}
