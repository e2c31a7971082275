package dyncast

// outcome 查缓存的结果
type outcome uint8

const (
	outcomeUnresolved outcome = iota // 缓存里还没有，需要走慢路径
	outcomeImpossible                // 该运行时类型不可能转为目标类型
	outcomePossible                  // 可以转换，附带位移
)

func (o outcome) String() string {
	switch o {
	case outcomeImpossible:
		return "impossible"
	case outcomePossible:
		return "possible"
	default:
		return "unresolved"
	}
}
