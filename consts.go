// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dyncast

import (
	"math"
)

const (
	minOffset = math.MinInt32
	maxOffset = math.MaxInt32
)

// TagKey 结构体标签的键，`dyncast:"virtual"` 标记共享（虚）基类
const TagKey = "dyncast"

const tagVirtual = "virtual"

var (
	objectType = typeFor[Object]()
	finalType  = typeFor[Final]()
)
