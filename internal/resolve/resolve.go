// Package resolve 从一次搜索的结果里挑出唯一的片名，或宣告无匹配。
//
// 约束：
// - popular 栏目永远不参与匹配（那是“什么都没找到”时的趋势推荐）
// - exact 多条而年份全不匹配时，直接 NoMatch，不回落到 close 的模糊打分
//   （源站会把重拍片折叠在相同展示文本下，年份是唯一可靠的区分信号）
package resolve

import (
	"regexp"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/John-Robertt/SubDL/internal/domain"
)

// 展示片名的年份后缀：".+ (YYYY)"，年份限定 1000–2999。
var displayTitleRE = regexp.MustCompile(`^(.+)\s+\(([12][0-9]{3})\)$`)

// SplitDisplay 把展示片名拆为纯片名与年份。
// 无年份后缀时原样返回片名，年份为空串。
func SplitDisplay(name string) (title, year string) {
	m := displayTitleRE.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return strings.TrimSpace(name), ""
	}
	return m[1], m[2]
}

// Resolve 按固定次序选出唯一匹配：
//
//  1. exact 恰好一条：无条件返回（不校验年份）
//  2. exact 多条：返回第一条年份等于查询年份的；全不匹配 => NoMatch
//  3. close 非空：先用年份做硬过滤，再对片名做 Jaro-Winkler 打分取最高；
//     同分取先出现者
//  4. 其余情况 => NoMatch
//
// 年份在模糊打分之前做硬过滤：close 本身就有噪音，宁可牺牲召回换精确。
func Resolve(m domain.Movie, res domain.SearchResults) (domain.Title, bool) {
	if len(res.Exact) == 1 {
		return res.Exact[0], true
	}

	if len(res.Exact) > 1 {
		for _, t := range res.Exact {
			if _, year := SplitDisplay(t.Name); year == m.Year {
				return t, true
			}
		}
		return domain.Title{}, false
	}

	if len(res.Close) > 0 {
		var (
			best  domain.Title
			score float64
			found bool
		)
		want := strings.ToLower(m.Title)
		for _, t := range res.Close {
			name, year := SplitDisplay(t.Name)
			if year != m.Year {
				continue
			}
			s := smetrics.JaroWinkler(want, strings.ToLower(name), 0.7, 4)
			if !found || s > score {
				best, score, found = t, s, true
			}
		}
		if found {
			return best, true
		}
	}

	return domain.Title{}, false
}

// Candidates 列出本次搜索里“本可以匹配”的展示片名（exact + close），
// 用于 no_match 条目的解释性输出。popular 不在其中。
func Candidates(res domain.SearchResults) []string {
	out := make([]string, 0, len(res.Exact)+len(res.Close))
	for _, t := range res.Exact {
		out = append(out, t.Name)
	}
	for _, t := range res.Close {
		out = append(out, t.Name)
	}
	return out
}
