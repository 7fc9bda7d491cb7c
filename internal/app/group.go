package app

import (
	"errors"
	"sort"

	"github.com/John-Robertt/SubDL/internal/domain"
	"github.com/John-Robertt/SubDL/internal/moviename"
)

// GroupByMovie 把电影文件按 (title, year) 分组为 WorkItem（WorkItem 只存 file index）。
// 同一部电影的多个文件（不同容器/版本）只查询一次。
//
// - items 稳定排序：按 Movie.Key() 字典序
// - item 内 FileIdx 稳定排序：按 RelPath 字典序
func GroupByMovie(files []domain.MovieFile) (items []domain.WorkItem, unmatched []domain.Unmatched, err error) {
	index := make(map[domain.Movie]int, 128)
	items = make([]domain.WorkItem, 0, 128)
	unmatched = make([]domain.Unmatched, 0, 32)

	for i := range files {
		m, e := moviename.Extract(files[i])
		if e != nil {
			var ue *moviename.UnmatchedError
			if errors.As(e, &ue) {
				u := domain.Unmatched{
					File: files[i],
					Kind: ue.Kind,
				}
				if len(ue.Candidates) > 0 {
					u.Candidates = append([]domain.Movie(nil), ue.Candidates...)
				}
				unmatched = append(unmatched, u)
				continue
			}
			return nil, nil, e
		}

		if idx, ok := index[m]; ok {
			items[idx].FileIdx = append(items[idx].FileIdx, i)
			continue
		}
		index[m] = len(items)
		items = append(items, domain.WorkItem{
			Movie:   m,
			FileIdx: []int{i},
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Movie.Key() < items[j].Movie.Key() })
	for i := range items {
		sort.Slice(items[i].FileIdx, func(a, b int) bool {
			ia := items[i].FileIdx[a]
			ib := items[i].FileIdx[b]
			return files[ia].RelPath < files[ib].RelPath
		})
	}
	return items, unmatched, nil
}
