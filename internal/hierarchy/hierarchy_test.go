package hierarchy_test

import (
	"reflect"
	"sort"
	"testing"

	"github.com/china-tjj/dyncast"
	"github.com/china-tjj/dyncast/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	typ, err := hierarchy.Lookup("D")
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[hierarchy.D](), typ)

	_, err = hierarchy.Lookup("E")
	assert.ErrorIs(t, err, hierarchy.ErrUnknownType)
}

func TestNames(t *testing.T) {
	names := hierarchy.Names()
	assert.Len(t, names, 13)
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "SimpleDerivedFromDerived")
	assert.Contains(t, names, "Diamond")
}

func TestEveryTypeBuilds(t *testing.T) {
	for _, name := range hierarchy.Names() {
		t.Run(name, func(t *testing.T) {
			v, err := hierarchy.NewByName(name)
			require.NoError(t, err)
			self := v.Interface()
			header, ok := self.(interface{ Self() any })
			require.True(t, ok)
			assert.Equal(t, self, header.Self())
		})
	}
	_, err := hierarchy.NewByName("nope")
	assert.ErrorIs(t, err, hierarchy.ErrUnknownType)
}

// 填充字段让每个基类都不在派生类的起点
func TestBasesAreShifted(t *testing.T) {
	obj := dyncast.New[hierarchy.SimpleDerivedFromDerived]()
	assert.NotEqual(t, reflect.ValueOf(obj).Pointer(), reflect.ValueOf(&obj.SimpleDerived).Pointer())
	assert.NotEqual(t, reflect.ValueOf(&obj.SimpleDerived).Pointer(), reflect.ValueOf(&obj.SimpleBase).Pointer())

	d := dyncast.New[hierarchy.D]()
	assert.NotEqual(t, reflect.ValueOf(d).Pointer(), reflect.ValueOf(&d.B).Pointer())
	assert.NotEqual(t, reflect.ValueOf(&d.B).Pointer(), reflect.ValueOf(&d.C).Pointer())
}
