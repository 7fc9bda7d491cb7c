// Package moviename 从文件名解析查询主键 (title, year)。
//
// 只接受严格的 "Title (YYYY)" 形态（文件 Base 或父目录名）：
// 宁可 unmatched，也不允许从 release 文件名里猜片名去搜索。
package moviename

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/John-Robertt/SubDL/internal/domain"
)

// 年份限定 1000–2999，且必须是结尾的括号段；
// 片名内部的括号段（原名/别名）不受影响。
var movieNameRE = regexp.MustCompile(`^(.+)\s+\(([12][0-9]{3})\)$`)

type UnmatchedError struct {
	// Kind: "no_match" 或 "ambiguous"
	Kind string
	// Candidates 仅在 ambiguous 时返回（已排序，保证稳定）。
	Candidates []domain.Movie
}

func (e *UnmatchedError) Error() string {
	switch e.Kind {
	case "no_match":
		return `无法从文件名或父目录解析出 "Title (YYYY)"`
	case "ambiguous":
		parts := make([]string, 0, len(e.Candidates))
		for _, m := range e.Candidates {
			parts = append(parts, m.Key())
		}
		return "文件名与父目录给出不同的 (title, year)（ambiguous）：" + strings.Join(parts, ", ")
	default:
		return "unmatched"
	}
}

// Extract 从 MovieFile 的文件名与父目录名中提取唯一 (title, year)。
// 若提取失败，返回 *UnmatchedError（no_match / ambiguous）。
func Extract(f domain.MovieFile) (domain.Movie, error) {
	m := map[domain.Movie]struct{}{}

	addCandidate(m, f.Base)

	parent := filepath.Base(filepath.Dir(f.AbsPath))
	addCandidate(m, parent)

	if len(m) == 0 {
		return domain.Movie{}, &UnmatchedError{Kind: "no_match"}
	}
	if len(m) > 1 {
		cands := make([]domain.Movie, 0, len(m))
		for c := range m {
			cands = append(cands, c)
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].Key() < cands[j].Key() })
		return domain.Movie{}, &UnmatchedError{Kind: "ambiguous", Candidates: cands}
	}
	for c := range m {
		return c, nil
	}
	return domain.Movie{}, &UnmatchedError{Kind: "no_match"}
}

func addCandidate(dst map[domain.Movie]struct{}, s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	m := movieNameRE.FindStringSubmatch(s)
	if m == nil {
		return
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return
	}
	dst[domain.Movie{Title: title, Year: m[2]}] = struct{}{}
}
