// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package workload

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"time"
	"unsafe"

	"code.hybscloud.com/atomix"
	"github.com/china-tjj/dyncast"
	"github.com/china-tjj/dyncast/internal/hierarchy"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnreachableVia 完整对象里没有唯一的 Via 子对象
	ErrUnreachableVia = zerr.New("via type is not a base of the object")

	// ErrMismatch 缓存路径的结果与真值转换或预期不一致
	ErrMismatch = zerr.New("conversion mismatch")
)

// Report 一次执行的结果
type Report struct {
	Conversions uint64        // 经缓存路径执行的转换次数
	Failed      uint64        // 其中结果为不可转换的次数
	Mismatches  uint64        // 与真值或预期不一致的次数
	Cached      time.Duration // 缓存路径耗时（所有 worker 累加）
	Uncached    time.Duration // 真值转换耗时（所有 worker 累加）
	Stats       dyncast.Stats
	Fingerprint uint64
}

// prepared 一个已构造好的转换：源指针与预期结果
type prepared struct {
	conv    Conversion
	from    reflect.Value
	toType  reflect.Type // 指针类型
	want    unsafe.Pointer
	viaType reflect.Type
}

// view 构造 object 类型的完整对象，并取得其中 via 类型的子对象
func view(scope *dyncast.Scope, object, via string) (reflect.Value, error) {
	obj, err := hierarchy.NewByName(object)
	if err != nil {
		return reflect.Value{}, err
	}
	viaType, err := hierarchy.Lookup(via)
	if err != nil {
		return reflect.Value{}, err
	}
	v, err := dyncast.ReflectCastWithScope(scope, obj, reflect.PointerTo(viaType))
	if err != nil {
		return reflect.Value{}, zerr.With(zerr.With(zerr.Wrap(ErrUnreachableVia, err.Error()), "object", object), "via", via)
	}
	return v, nil
}

func prepare(scope *dyncast.Scope, c Conversion) (*prepared, error) {
	from, err := view(scope, c.Object, c.Via)
	if err != nil {
		return nil, err
	}
	toElem, err := hierarchy.Lookup(c.To)
	if err != nil {
		return nil, err
	}
	p := &prepared{conv: c, from: from, toType: reflect.PointerTo(toElem), viaType: from.Type().Elem()}
	p.want, err = groundTruth(p)
	if err != nil {
		return nil, err
	}
	if c.Succeeds != nil && *c.Succeeds != (p.want != nil) {
		return nil, zerr.With(zerr.With(zerr.Wrap(ErrMismatch, "ground truth disagrees with the expectation"),
			"object", c.Object), "to", c.To)
	}
	return p, nil
}

func groundTruth(p *prepared) (unsafe.Pointer, error) {
	var oracle dyncast.LayoutOracle
	src, err := oracle.Identify(p.from.UnsafePointer(), p.viaType)
	if err != nil {
		return nil, err
	}
	res, err := oracle.Resolve(src, p.toType.Elem())
	if err != nil {
		return nil, err
	}
	return res.Addr, nil
}

// Run 在 w.Workers 个 goroutine 上各执行 w.Rounds 轮，每轮依次执行全部转换，
// 每次转换都与真值转换的结果对比
func Run(ctx context.Context, scope *dyncast.Scope, w *Workload, logger *slog.Logger) (*Report, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	items := make([]*prepared, 0, len(w.Conversions))
	for _, c := range w.Conversions {
		p, err := prepare(scope, c)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	logger.Info("workload prepared", slog.Int("conversions", len(items)), slog.Int("workers", w.Workers), slog.Int("rounds", w.Rounds))

	var conversions, failed, mismatches, cachedNs, uncachedNs atomix.Int64
	g, ctx := errgroup.WithContext(ctx)
	for worker := 0; worker < w.Workers; worker++ {
		g.Go(func() error {
			for round := 0; round < w.Rounds; round++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, p := range items {
					start := time.Now()
					for i := 0; i < p.conv.Repeat; i++ {
						got, err := dyncast.ReflectCastWithScope(scope, p.from, p.toType)
						conversions.AddAcqRel(1)
						var gotPtr unsafe.Pointer
						switch {
						case err == nil:
							gotPtr = got.UnsafePointer()
						case errors.Is(err, dyncast.ErrInvalidConversion):
							failed.AddAcqRel(1)
						default:
							return err
						}
						if gotPtr != p.want {
							mismatches.AddAcqRel(1)
							logger.Error("conversion mismatch",
								slog.String("object", p.conv.Object),
								slog.String("via", p.conv.Via),
								slog.String("to", p.conv.To),
							)
						}
					}
					cachedNs.AddAcqRel(int64(time.Since(start)))

					start = time.Now()
					for i := 0; i < p.conv.Repeat; i++ {
						if _, err := groundTruth(p); err != nil {
							return err
						}
					}
					uncachedNs.AddAcqRel(int64(time.Since(start)))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Conversions: uint64(conversions.LoadRelaxed()),
		Failed:      uint64(failed.LoadRelaxed()),
		Mismatches:  uint64(mismatches.LoadRelaxed()),
		Cached:      time.Duration(cachedNs.LoadRelaxed()),
		Uncached:    time.Duration(uncachedNs.LoadRelaxed()),
		Stats:       scope.Stats(),
		Fingerprint: scope.Fingerprint(),
	}
	if report.Mismatches > 0 {
		return report, zerr.With(zerr.Wrap(ErrMismatch, "cached results differ from the ground truth"), "mismatches", report.Mismatches)
	}
	return report, nil
}
