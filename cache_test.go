package dyncast

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	tokenTo       struct{}
	tokenDynamic  struct{}
	tokenDeclared struct{}
	tokenOther    struct{}
)

var (
	toType       = reflect.TypeFor[tokenTo]()
	dynamicType  = reflect.TypeFor[tokenDynamic]()
	declaredType = reflect.TypeFor[tokenDeclared]()
	otherType    = reflect.TypeFor[tokenOther]()
	testKey      = conversionKey{toTypePtr: typePtr(toType), dynamicTypePtr: typePtr(dynamicType)}
)

func recoverErr(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	f()
	return nil
}

func TestCacheLookupEmpty(t *testing.T) {
	c := newCache()
	o, d := c.lookup(testKey, typePtr(declaredType))
	assert.Equal(t, outcomeUnresolved, o)
	assert.Zero(t, d)
	assert.Zero(t, c.len())
}

func TestCacheRecordPossible(t *testing.T) {
	c := newCache()
	c.recordPossible(testKey, toType, dynamicType, declaredType, -24)

	o, d := c.lookup(testKey, typePtr(declaredType))
	assert.Equal(t, outcomePossible, o)
	assert.Equal(t, int32(-24), d)

	// 另一个声明类型还没有位移
	o, _ = c.lookup(testKey, typePtr(otherType))
	assert.Equal(t, outcomeUnresolved, o)

	c.recordPossible(testKey, toType, dynamicType, otherType, 40)
	o, d = c.lookup(testKey, typePtr(otherType))
	assert.Equal(t, outcomePossible, o)
	assert.Equal(t, int32(40), d)
	assert.Equal(t, 2, c.len())
}

func TestCacheRecordIdempotent(t *testing.T) {
	c := newCache()
	c.recordPossible(testKey, toType, dynamicType, declaredType, 8)
	c.recordPossible(testKey, toType, dynamicType, declaredType, 8)
	assert.Equal(t, 1, c.len())

	key := conversionKey{toTypePtr: typePtr(otherType), dynamicTypePtr: typePtr(dynamicType)}
	c.recordImpossible(key, otherType, dynamicType)
	c.recordImpossible(key, otherType, dynamicType)
	assert.Equal(t, 2, c.len())
}

func TestCacheImpossibleIgnoresDeclaredType(t *testing.T) {
	c := newCache()
	c.recordImpossible(testKey, toType, dynamicType)
	for _, declared := range []reflect.Type{declaredType, otherType} {
		o, d := c.lookup(testKey, typePtr(declared))
		assert.Equal(t, outcomeImpossible, o)
		assert.Zero(t, d)
	}
}

func TestCacheInconsistentRecords(t *testing.T) {
	t.Run("displacement changed", func(t *testing.T) {
		c := newCache()
		c.recordPossible(testKey, toType, dynamicType, declaredType, 8)
		err := recoverErr(func() { c.recordPossible(testKey, toType, dynamicType, declaredType, 16) })
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInconsistentCache))

		// 原记录不被覆盖
		_, d := c.lookup(testKey, typePtr(declaredType))
		assert.Equal(t, int32(8), d)
	})

	t.Run("impossible after possible", func(t *testing.T) {
		c := newCache()
		c.recordPossible(testKey, toType, dynamicType, declaredType, 8)
		err := recoverErr(func() { c.recordImpossible(testKey, toType, dynamicType) })
		assert.ErrorIs(t, err, ErrInconsistentCache)
	})

	t.Run("possible after impossible", func(t *testing.T) {
		c := newCache()
		c.recordImpossible(testKey, toType, dynamicType)
		err := recoverErr(func() { c.recordPossible(testKey, toType, dynamicType, declaredType, 0) })
		assert.ErrorIs(t, err, ErrInconsistentCache)

		o, _ := c.lookup(testKey, typePtr(declaredType))
		assert.Equal(t, outcomeImpossible, o)
	})
}

func TestCacheReset(t *testing.T) {
	c := newCache()
	c.recordPossible(testKey, toType, dynamicType, declaredType, 8)
	c.reset()
	o, _ := c.lookup(testKey, typePtr(declaredType))
	assert.Equal(t, outcomeUnresolved, o)
	assert.Zero(t, c.len())

	// reset 之后可以记录与之前不同的结果
	c.recordImpossible(testKey, toType, dynamicType)
	o, _ = c.lookup(testKey, typePtr(declaredType))
	assert.Equal(t, outcomeImpossible, o)
}

func TestCacheSnapshotSorted(t *testing.T) {
	c := newCache()
	c.recordPossible(testKey, toType, dynamicType, otherType, 4)
	c.recordPossible(testKey, toType, dynamicType, declaredType, 12)
	c.recordImpossible(conversionKey{toTypePtr: typePtr(otherType), dynamicTypePtr: typePtr(dynamicType)}, otherType, dynamicType)

	entries := c.snapshot()
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].sortKey(), entries[i].sortKey())
	}
	for _, e := range entries {
		if !e.Possible {
			assert.Equal(t, otherType, e.ToType)
			assert.Nil(t, e.DeclaredType)
			assert.Zero(t, e.Displacement)
		}
	}
}

func TestCacheConcurrentRecords(t *testing.T) {
	c := newCache()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if o, _ := c.lookup(testKey, typePtr(declaredType)); o == outcomeUnresolved {
					c.recordPossible(testKey, toType, dynamicType, declaredType, 72)
				}
			}
		}()
	}
	wg.Wait()
	o, d := c.lookup(testKey, typePtr(declaredType))
	assert.Equal(t, outcomePossible, o)
	assert.Equal(t, int32(72), d)
	assert.Equal(t, 1, c.len())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "unresolved", outcomeUnresolved.String())
	assert.Equal(t, "impossible", outcomeImpossible.String())
	assert.Equal(t, "possible", outcomePossible.String())
}
