package domain

// TagCategory 是 release 标签的三个互斥类别。
// 声明顺序即输出顺序（pick.ExtractTags 依赖该顺序）。
type TagCategory int

const (
	TagResolution TagCategory = iota
	TagEdition
	TagType
)

func (c TagCategory) String() string {
	switch c {
	case TagResolution:
		return "resolution"
	case TagEdition:
		return "edition"
	case TagType:
		return "type"
	default:
		return "unknown"
	}
}

// Tag 是从 release 文件名里识别出的一个标签。
// 同一输入每个类别至多产出一个 Tag。
type Tag struct {
	Category TagCategory
	Value    string // 命中的原文片段（保留原大小写）
}
