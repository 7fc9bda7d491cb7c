// Package extract 把源站的三种页面形态解析为结构化记录。
//
// 约束（与 provider 解析层相同）：
// - 所有函数都是纯函数：相同输入 => 相同输出，不做网络、不做缓存
// - 每次解析前必须先做限流签名检测（优先级高于一切结构解析）
// - 结构存在但内容不符合子模式（如未知评分 class）是 MalformedPage，
//   表示源站改版，不允许静默跳过
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/SubDL/internal/domain"
)

// 限流页签名：大小写不敏感，单词之间允许任意内容（含标签/换行）。
// 源站的限流页没有稳定结构，只有这句话是契约。
var throttleRE = regexp.MustCompile(`(?is)too?.+?many.+?requests`)

// 评分 icon class 的子模式：任意前缀 + token + 字面量 "-icon"。
var ratingClassRE = regexp.MustCompile(`(?i)^.*?(positive|neutral|bad)-icon`)

// RateLimitedError 表示源站正在限流。
//
// 产品契约：限流是整次运行的致命条件——不重试、不退避（源站没有任何
// 文档化的 backoff 约定），由上层中止全部后续请求。
type RateLimitedError struct{}

func (*RateLimitedError) Error() string {
	return "源站限流（Too many requests）；本次运行中止，请稍后再试"
}

// MalformedPageError 表示页面结构存在但内容违反预期子模式。
// 出现该错误意味着源站改版，extract 需要更新；上层映射为 parse_failed。
type MalformedPageError struct {
	Page   string // "search" | "title" | "subtitle"
	Detail string
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("页面结构异常（%s）：%s", e.Page, e.Detail)
}

// CheckThrottle 扫描限流签名。任何页面解析的第一步。
func CheckThrottle(html []byte) error {
	if throttleRE.Match(html) {
		return &RateLimitedError{}
	}
	return nil
}

// SearchResults 解析搜索结果页。
//
// 三个栏目各由 marker class（exact/close/popular）标识，栏目内容是
// “紧跟 marker 元素之后的 ul”。页面中缺席的栏目在结果里保持 nil 切片；
// 存在但为空的栏目是非 nil 空切片（调用方必须区分这两种情况）。
func SearchResults(html []byte, baseURL string) (domain.SearchResults, error) {
	if err := CheckThrottle(html); err != nil {
		return domain.SearchResults{}, err
	}

	doc, base, err := parse(html, baseURL)
	if err != nil {
		return domain.SearchResults{}, err
	}

	var out domain.SearchResults
	sections := []struct {
		class string
		dst   *[]domain.Title
	}{
		{"exact", &out.Exact},
		{"close", &out.Close},
		{"popular", &out.Popular},
	}

	var perr error
	for _, sec := range sections {
		marker := doc.Find(".search-result ." + sec.class).First()
		if marker.Length() == 0 {
			continue
		}

		titles := make([]domain.Title, 0, 8)
		marker.NextFiltered("ul").Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
			a := li.Find(".title a").First()
			if a.Length() == 0 {
				perr = &MalformedPageError{Page: "search", Detail: fmt.Sprintf("%s 栏目存在缺少 .title a 的条目", sec.class)}
				return false
			}
			href, _ := a.Attr("href")
			titles = append(titles, domain.Title{
				URL:  resolveRef(base, href),
				Name: normSpace(a.Text()),
			})
			return true
		})
		if perr != nil {
			return domain.SearchResults{}, perr
		}
		*sec.dst = titles
	}
	return out, nil
}

// TitlePage 解析片名页的字幕列表。
//
// 显式的“无结果”标记优先于一切行枚举：即使页面其它位置（广告等）存在
// 形似字幕行的内容，也必须返回空列表（非 nil）。
func TitlePage(html []byte, baseURL string) ([]domain.Subtitle, error) {
	if err := CheckThrottle(html); err != nil {
		return nil, err
	}

	doc, base, err := parse(html, baseURL)
	if err != nil {
		return nil, err
	}

	if doc.Find(".subtitles.byFilm tbody tr td.empty").Length() > 0 {
		return []domain.Subtitle{}, nil
	}

	subs := make([]domain.Subtitle, 0, 32)
	var perr error
	doc.Find(".subtitles.byFilm tbody td.a1").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		a := td.Find("a").First()
		if a.Length() == 0 {
			perr = &MalformedPageError{Page: "title", Detail: "字幕行缺少链接"}
			return false
		}
		href, _ := a.Attr("href")

		name := normSpace(td.Find("span:last-child").First().Text())

		class, ok := td.Find("span:first-child").First().Attr("class")
		if !ok {
			perr = &MalformedPageError{Page: "title", Detail: "字幕行缺少评分 icon class"}
			return false
		}
		m := ratingClassRE.FindStringSubmatch(class)
		if m == nil {
			perr = &MalformedPageError{Page: "title", Detail: fmt.Sprintf("无法识别的评分 icon class：%q", class)}
			return false
		}
		rating, ok := domain.ParseRating(m[1])
		if !ok {
			perr = &MalformedPageError{Page: "title", Detail: fmt.Sprintf("无法识别的评分 token：%q", m[1])}
			return false
		}

		subs = append(subs, domain.Subtitle{
			URL:    resolveRef(base, href),
			Name:   name,
			Rating: rating,
		})
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return subs, nil
}

// DownloadLink 解析字幕详情页的下载链接。
// 缺失是合法结果（返回空串，不是错误）——是否致命由调用方决定。
func DownloadLink(html []byte, baseURL string) (string, error) {
	if err := CheckThrottle(html); err != nil {
		return "", err
	}

	doc, base, err := parse(html, baseURL)
	if err != nil {
		return "", err
	}

	a := doc.Find(".download a").First()
	if a.Length() == 0 {
		return "", nil
	}
	href, ok := a.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", nil
	}
	return resolveRef(base, href), nil
}

func parse(html []byte, baseURL string) (*goquery.Document, *url.URL, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("base URL 无效：%w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, nil, err
	}
	return doc, base, nil
}

// resolveRef 按 RFC 3986 把 href 解析为绝对 URL（query/fragment/".." 均按标准处理）。
// href 不可解析时原样返回（保底可追溯，与 provider 层的 resolveURL 一致）。
func resolveRef(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
