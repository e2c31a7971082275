package dyncast_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/china-tjj/dyncast"
	"github.com/china-tjj/dyncast/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func castAll(s *dyncast.Scope, d *hierarchy.D) {
	dyncast.CastWithScope[hierarchy.B](s, d.B.A)
	dyncast.CastWithScope[hierarchy.C](s, &d.B)
	dyncast.CastWithScope[hierarchy.D](s, &d.C)
	dyncast.CastWithScope[hierarchy.OtherSimpleDerived](s, &dyncast.New[hierarchy.SimpleDerived]().SimpleBase)
}

func TestConcurrentCasts(t *testing.T) {
	s := dyncast.NewScope()
	const workers, rounds = 16, 500

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < rounds; j++ {
				d := dyncast.New[hierarchy.D]()
				if dyncast.CastWithScope[hierarchy.B](s, d.B.A) != &d.B {
					t.Error("A -> B")
				}
				if dyncast.CastWithScope[hierarchy.C](s, &d.B) != &d.C {
					t.Error("B -> C")
				}
				if dyncast.CastWithScope[hierarchy.D](s, &d.C) != d {
					t.Error("C -> D")
				}
				b := dyncast.New[hierarchy.B]()
				if dyncast.CastWithScope[hierarchy.C](s, b.A) != nil {
					t.Error("A -> C on B")
				}
				if j%100 == 0 {
					s.Reset()
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	stats := s.Stats()
	assert.Equal(t, uint64(workers*rounds*4), stats.Hits+stats.Misses)
	assert.Equal(t, stats.Misses, stats.Resolutions)
	assert.LessOrEqual(t, stats.Entries, 4)
}

func TestFingerprint(t *testing.T) {
	empty := dyncast.NewScope().Fingerprint()

	s1, s2 := dyncast.NewScope(), dyncast.NewScope()
	castAll(s1, dyncast.New[hierarchy.D]())
	// 顺序不同、对象不同，缓存内容相同
	d := dyncast.New[hierarchy.D]()
	dyncast.CastWithScope[hierarchy.OtherSimpleDerived](s2, &dyncast.New[hierarchy.SimpleDerived]().SimpleBase)
	dyncast.CastWithScope[hierarchy.D](s2, &d.C)
	dyncast.CastWithScope[hierarchy.C](s2, &d.B)
	dyncast.CastWithScope[hierarchy.B](s2, d.B.A)

	assert.Equal(t, 4, s1.Len())
	assert.Equal(t, s1.Entries(), s2.Entries())
	assert.Equal(t, s1.Fingerprint(), s2.Fingerprint())
	assert.NotEqual(t, empty, s1.Fingerprint())

	s1.Reset()
	assert.Equal(t, empty, s1.Fingerprint())
}

func TestStatsSurviveReset(t *testing.T) {
	s := dyncast.NewScope()
	castAll(s, dyncast.New[hierarchy.D]())
	castAll(s, dyncast.New[hierarchy.D]())
	before := s.Stats()
	assert.Equal(t, uint64(4), before.Resolutions)
	assert.Equal(t, uint64(4), before.Hits)
	assert.Equal(t, 4, before.Entries)

	s.Reset()
	after := s.Stats()
	assert.Equal(t, before.Resolutions, after.Resolutions)
	assert.Zero(t, after.Entries)
}

func TestScopeLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := dyncast.NewScope(dyncast.WithLogger(logger), dyncast.WithLogger(nil), dyncast.WithOracle(nil))

	castAll(s, dyncast.New[hierarchy.D]())
	assert.Contains(t, buf.String(), "dyncast: resolved")
	assert.Contains(t, buf.String(), "possible=false")
	assert.NotContains(t, buf.String(), "not cached")

	dia := dyncast.New[hierarchy.Diamond]()
	dyncast.CastWithScope[hierarchy.Left](s, &dia.Right.Root)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "not cached")
}
