package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：可恢复/告警类（渲染退化为占位节点、输入被替换为默认值，流程继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK               = 0
	InvalidColor     = 4001
	ResourceMissing  = 4004
	UnknownTheme     = 4005
	UnknownSection   = 4220
	MalformedSection = 4221
	SystemError      = 5000
)

// Text 返回错误码的简短说明。
func Text(code int) string {
	switch code {
	case OK:
		return "ok"
	case InvalidColor:
		return "invalid color"
	case ResourceMissing:
		return "resource missing"
	case UnknownTheme:
		return "unknown theme"
	case UnknownSection:
		return "unknown section type"
	case MalformedSection:
		return "malformed section data"
	case SystemError:
		return "system error"
	default:
		return "unknown error"
	}
}
