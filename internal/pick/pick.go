// Package pick 在同语言字幕候选里做过滤：片源预设 + release 标签 + 社区评分。
//
// 约束：
// - 自由标签过滤是合取（AND）；片源预设是组内析取（OR）——同一 release
//   名最多出现组里的一个 token，组内 AND 永远选不出任何结果
// - 不改变候选顺序：extract 产出的顺序（站点自身的排序）就是隐式的
//   优先级信号，过滤后的第一条即管线的最终选择
package pick

import (
	"strings"

	"github.com/John-Robertt/SubDL/internal/domain"
)

// Select 返回同时满足三个条件的子集（保持原顺序）：
// - name 包含 source 组里的任一标签（组为空放行一切）
// - name 包含每一个给定标签（大小写不敏感的子串匹配；空标签列表放行一切）
// - rating >= minRating（全序 bad < neutral < positive）
func Select(subs []domain.Subtitle, tags, source []string, minRating domain.Rating) []domain.Subtitle {
	out := make([]domain.Subtitle, 0, len(subs))
	for _, s := range subs {
		if s.Rating < minRating {
			continue
		}
		if !containsAny(s.Name, source) {
			continue
		}
		if !containsAll(s.Name, tags) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func containsAny(name string, group []string) bool {
	low := strings.ToLower(name)
	empty := true
	for _, tag := range group {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		empty = false
		if strings.Contains(low, strings.ToLower(tag)) {
			return true
		}
	}
	return empty
}

func containsAll(name string, tags []string) bool {
	low := strings.ToLower(name)
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.Contains(low, strings.ToLower(tag)) {
			return false
		}
	}
	return true
}

// SourceTags 把来源预设展开为一个析取标签组（与源站常见 release 命名对应）：
// 命中组里任一 token 即视为该片源。未知预设返回 ok=false，由 config 层拒绝。
func SourceTags(source string) ([]string, bool) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "":
		return nil, true
	case "bluray":
		return []string{"bluray", "brrip", "bdrip"}, true
	case "web":
		return []string{"webrip", "web-dl"}, true
	default:
		return nil, false
	}
}
