// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"github.com/cespare/xxhash/v2"
)

// Scope 持有一张转换缓存，以及缓存未命中时使用的真值能力。
// 同一个 Scope 可被任意多个 goroutine 并发使用
type Scope struct {
	cache  *cache
	oracle Oracle
	logger *slog.Logger
	frozen bool

	hits        atomix.Uint64
	misses      atomix.Uint64
	resolutions atomix.Uint64
	shortcuts   atomix.Uint64
	uncacheable atomix.Uint64
}

type ScopeOption func(s *Scope)

// NewScope 创建新的作用域，缓存为空
func NewScope(options ...ScopeOption) *Scope {
	scope := &Scope{
		cache:  newCache(),
		oracle: LayoutOracle{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(scope)
	}
	scope.frozen = true
	return scope
}

// WithOracle 替换真值能力，主要用于测试
func WithOracle(oracle Oracle) ScopeOption {
	return func(s *Scope) {
		if s.frozen || oracle == nil {
			return
		}
		s.oracle = oracle
	}
}

// WithLogger 慢路径的解析以 debug 级别记录，无法缓存的解析以 warn 级别记录
func WithLogger(logger *slog.Logger) ScopeOption {
	return func(s *Scope) {
		if s.frozen || logger == nil {
			return
		}
		s.logger = logger
	}
}

var defaultScope atomic.Pointer[Scope]

func init() {
	defaultScope.Store(NewScope())
}

// DefaultScope 返回包级函数使用的作用域
func DefaultScope() *Scope {
	return defaultScope.Load()
}

// SetDefaultScope ！！慎用！！替换默认作用域，旧作用域里的缓存随之失效
func SetDefaultScope(s *Scope) {
	if s == nil {
		return
	}
	defaultScope.Store(s)
}

// Reset 清空默认作用域的缓存
func Reset() {
	DefaultScope().Reset()
}

// Reset 清空全部缓存，之后的每个转换都会重新走一次慢路径
func (s *Scope) Reset() {
	s.cache.reset()
}

// Stats 作用域的计数，Entries 之外的计数不受 Reset 影响
type Stats struct {
	Hits        uint64 // 命中缓存
	Misses      uint64 // 未命中缓存
	Resolutions uint64 // 调用真值转换的次数
	Shortcuts   uint64 // 不查缓存直接得出结果的次数（同类型、静态可达的基类、Final 类型）
	Uncacheable uint64 // 结果无法缓存的解析次数
	Entries     int
}

func (s *Scope) Stats() Stats {
	return Stats{
		Hits:        s.hits.LoadAcquire(),
		Misses:      s.misses.LoadAcquire(),
		Resolutions: s.resolutions.LoadAcquire(),
		Shortcuts:   s.shortcuts.LoadAcquire(),
		Uncacheable: s.uncacheable.LoadAcquire(),
		Entries:     s.cache.len(),
	}
}

// Len 缓存里的记录数
func (s *Scope) Len() int {
	return s.cache.len()
}

// Entries 按类型名排序的全部缓存记录
func (s *Scope) Entries() []Entry {
	return s.cache.snapshot()
}

// Fingerprint 对全部缓存记录求哈希，内容相同的缓存指纹相同，与记录写入的先后无关
func (s *Scope) Fingerprint() uint64 {
	d := xxhash.New()
	for _, e := range s.cache.snapshot() {
		_, _ = d.WriteString(e.sortKey())
		if e.Possible {
			_, _ = d.WriteString("|possible|")
			_, _ = d.WriteString(strconv.FormatInt(int64(e.Displacement), 10))
		} else {
			_, _ = d.WriteString("|impossible")
		}
		_, _ = d.WriteString("\n")
	}
	return d.Sum64()
}
