package pick

import (
	"regexp"

	"github.com/John-Robertt/SubDL/internal/domain"
)

// 三类互不重叠的 release 标签，各自独立匹配，每类至多取一个。
// 顺序即输出顺序（与 domain.TagCategory 的声明序一致）。
//
// type 里的 ts（telesync 缩写）靠 \b 排除 TSC 之类的组名片段：
// RE2 没有负向断言，但 "TSC" 的 S 与 C 之间没有词边界，\bts\b 天然不命中。
var tagPatterns = []struct {
	cat domain.TagCategory
	re  *regexp.Regexp
}{
	{domain.TagResolution, regexp.MustCompile(`(?i)\b(\d{3,4}p|4k)\b`)},
	{domain.TagEdition, regexp.MustCompile(`(?i)\b(unrated|director'?s[ ._-]?cut|extended|3d|2d|nf)\b`)},
	{domain.TagType, regexp.MustCompile(`(?i)\b(hdcam|cam|telesync|hd-?ts|ts|dvdscr|screener|scr|dvdrip|bdrip|brrip|blu-?ray|webrip|web-?dl|hdrip|hdtv)\b`)},
}

// ExtractTags 从 release 文件名里抽取标签：每类至多一个（取最先出现的），
// 无命中的类省略，输出按类的声明序排列。Value 保留原串大小写。
func ExtractTags(name string) []domain.Tag {
	tags := make([]domain.Tag, 0, len(tagPatterns))
	for _, p := range tagPatterns {
		if m := p.re.FindString(name); m != "" {
			tags = append(tags, domain.Tag{Category: p.cat, Value: m})
		}
	}
	return tags
}
