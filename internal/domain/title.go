package domain

// Title 是搜索结果页解析出的一条片名记录。
//
// Name 是页面原样展示的文本（空白已折叠），通常仍带 " (YYYY)" 后缀；
// 年份拆分由 resolve 层负责，extract 层不做语义解释。
type Title struct {
	URL  string // 已按 base 解析为绝对 URL
	Name string
}

// SearchResults 把片名记录按站点的三个栏目分类。
//
// 约束：
// - nil 切片表示该栏目在页面中不存在；非 nil 空切片表示栏目存在但没有条目。
//   调用方必须区分这两种情况（站点行为：popular 只在 exact/close 都缺席时出现）。
// - popular 永远不是可选匹配，只是“什么都没找到”时的趋势推荐。
type SearchResults struct {
	Exact   []Title
	Close   []Title
	Popular []Title
}

// Empty 表示三个栏目全部缺席（整页无结果）。
func (r SearchResults) Empty() bool {
	return r.Exact == nil && r.Close == nil && r.Popular == nil
}
