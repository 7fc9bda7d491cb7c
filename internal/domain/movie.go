package domain

// Movie 是一次查询的唯一主键：片名 + 四位年份。
//
// 约束：要么从文件名解析出唯一 (title, year)，要么失败；
// 宁可 unmatched，也不允许拿错误的片名去搜索。
type Movie struct {
	Title string
	Year  string // 恒为四位数字，如 "2019"
}

// MovieFile 描述一次扫描得到的电影文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 扫描阶段只做 stat，不读文件内容
type MovieFile struct {
	AbsPath string
	RelPath string
	Base    string // filename without ext
	Ext     string // ".mp4"
	Size    int64
	ModUnix int64
}

// Unmatched 描述无法解析出唯一 (title, year) 的输入文件。
// 用于 report 的 unmatched 条目（含 ambiguous 候选列表）。
type Unmatched struct {
	File       MovieFile
	Kind       string // "no_match" | "ambiguous"
	Candidates []Movie // 仅 ambiguous 时非空（已排序）
}

// WorkItem 把声称同一 (title, year) 的多个文件归并为一次查询。
// 只存 file index，文件切片由调用方持有。
type WorkItem struct {
	Movie   Movie
	FileIdx []int
}

// Key 返回分组用的稳定键（title 原样 + 年份）。
func (m Movie) Key() string { return m.Title + " (" + m.Year + ")" }
