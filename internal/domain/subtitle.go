package domain

import (
	"fmt"
	"strings"
)

// Rating 是站点的三档社区评分，带全序 bad < neutral < positive。
//
// 显式用整型序号承载顺序，让 ">=" 过滤与单调性一目了然；
// 不要用字符串比较（字典序与语义序不一致）。
type Rating int

const (
	RatingBad Rating = iota
	RatingNeutral
	RatingPositive
)

func (r Rating) String() string {
	switch r {
	case RatingBad:
		return "bad"
	case RatingNeutral:
		return "neutral"
	case RatingPositive:
		return "positive"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// ParseRating 解析评分 token（大小写不敏感）。
// 未知 token 返回 ok=false：调用方必须把它当成页面结构漂移，不允许静默跳过。
func ParseRating(s string) (Rating, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bad":
		return RatingBad, true
	case "neutral":
		return RatingNeutral, true
	case "positive":
		return RatingPositive, true
	default:
		return 0, false
	}
}

// MarshalJSON 把评分输出为站点原语（"bad"/"neutral"/"positive"），
// 保证 report 与 golden 文件可读且稳定。
func (r Rating) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON 接受 MarshalJSON 的输出（其余输入视为非法）。
func (r *Rating) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, ok := ParseRating(s)
	if !ok {
		return fmt.Errorf("未知的 rating：%q", s)
	}
	*r = v
	return nil
}

// Subtitle 是片名页解析出的一条字幕记录。
// Name 携带自由文本的 release 信息（分辨率/来源/版本），站点并不结构化它。
type Subtitle struct {
	URL    string // 字幕详情页（已按 base 解析为绝对 URL）
	Name   string
	Rating Rating
}
