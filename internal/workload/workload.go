// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package workload 描述并执行一组转换，用来对比缓存路径与真值转换
package workload

import (
	"os"

	"github.com/china-tjj/dyncast"
	"github.com/china-tjj/dyncast/internal/hierarchy"
	"github.com/spf13/cast"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidWorkload 工作负载文件内容不合法
	ErrInvalidWorkload = zerr.New("invalid workload")
)

const (
	defaultWorkers = 4
	defaultRounds  = 1000
)

// Conversion 一个转换：构造 Object 类型的完整对象，以 Via 类型持有，转为 To 类型
type Conversion struct {
	Object   string
	Via      string
	To       string
	Succeeds *bool // nil 表示不检查，只与真值转换对比
	Repeat   int
}

type Workload struct {
	Workers     int
	Rounds      int
	Conversions []Conversion
}

// Load 读取 YAML 工作负载文件
func Load(path string) (*Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read workload"), "path", path)
	}
	return Parse(data)
}

// Parse 解析 YAML 工作负载。数值与布尔字段允许写成字符串
func Parse(data []byte) (*Workload, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal workload")
	}
	w := &Workload{Workers: defaultWorkers, Rounds: defaultRounds}
	var err error
	if v, ok := raw["workers"]; ok {
		if w.Workers, err = cast.ToIntE(v); err != nil {
			return nil, fieldErr("workers", err)
		}
	}
	if v, ok := raw["rounds"]; ok {
		if w.Rounds, err = cast.ToIntE(v); err != nil {
			return nil, fieldErr("rounds", err)
		}
	}
	items, err := cast.ToSliceE(raw["conversions"])
	if err != nil {
		return nil, fieldErr("conversions", err)
	}
	for i, item := range items {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, zerr.With(fieldErr("conversions", err), "index", i)
		}
		c, err := parseConversion(m)
		if err != nil {
			return nil, zerr.With(err, "index", i)
		}
		w.Conversions = append(w.Conversions, c)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func parseConversion(m map[string]any) (Conversion, error) {
	c := Conversion{Repeat: 1}
	var err error
	if c.Object, err = cast.ToStringE(m["object"]); err != nil {
		return c, fieldErr("object", err)
	}
	if c.Via, err = cast.ToStringE(m["via"]); err != nil {
		return c, fieldErr("via", err)
	}
	if c.Via == "" {
		c.Via = c.Object
	}
	if c.To, err = cast.ToStringE(m["to"]); err != nil {
		return c, fieldErr("to", err)
	}
	if v, ok := m["succeeds"]; ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return c, fieldErr("succeeds", err)
		}
		c.Succeeds = &b
	}
	if v, ok := m["repeat"]; ok {
		if c.Repeat, err = cast.ToIntE(v); err != nil {
			return c, fieldErr("repeat", err)
		}
	}
	return c, nil
}

func fieldErr(field string, err error) error {
	return zerr.With(zerr.Wrap(ErrInvalidWorkload, err.Error()), "field", field)
}

// Validate 检查数值范围与类型名
func (w *Workload) Validate() error {
	if w.Workers <= 0 {
		return zerr.With(zerr.Wrap(ErrInvalidWorkload, "workers must be positive"), "workers", w.Workers)
	}
	if w.Rounds <= 0 {
		return zerr.With(zerr.Wrap(ErrInvalidWorkload, "rounds must be positive"), "rounds", w.Rounds)
	}
	if len(w.Conversions) == 0 {
		return zerr.Wrap(ErrInvalidWorkload, "no conversions")
	}
	for i, c := range w.Conversions {
		for _, name := range []string{c.Object, c.Via, c.To} {
			if _, err := hierarchy.Lookup(name); err != nil {
				return zerr.With(zerr.With(zerr.Wrap(ErrInvalidWorkload, "unknown type"), "name", name), "index", i)
			}
		}
		if c.Repeat <= 0 {
			return zerr.With(zerr.Wrap(ErrInvalidWorkload, "repeat must be positive"), "index", i)
		}
	}
	return nil
}

// Default 覆盖全部已注册类型的组合：每种完整对象、以它的每个可达基类持有、转为每个类型
func Default() *Workload {
	w := &Workload{Workers: defaultWorkers, Rounds: defaultRounds}
	scope := dyncast.NewScope()
	names := hierarchy.Names()
	for _, object := range names {
		for _, via := range names {
			if _, err := view(scope, object, via); err != nil {
				continue
			}
			for _, to := range names {
				w.Conversions = append(w.Conversions, Conversion{Object: object, Via: via, To: to, Repeat: 1})
			}
		}
	}
	return w
}
