// Package site 封装对源站的四类请求，产出 extract 解析后的结构化记录。
//
// 约束：
// - 一个 Session 只服务一条流水线：过滤 cookie 与反爬 cookie 都是会话态，
//   并发流水线必须各持独立 Session
// - Referer 链按站点表单行为模拟：片名页带搜索页、详情页带片名页、
//   下载带详情页
// - 不做缓存/限速；限流由 extract 的签名检测上抛，整次运行中止
package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/SubDL/internal/domain"
	"github.com/John-Robertt/SubDL/internal/extract"
	"github.com/John-Robertt/SubDL/internal/infra/httpx"
)

const searchPath = "/subtitles/searchbytitle"

// HIFlag 是站点的听障（HI）字幕过滤值，作为 HearingImpaired cookie 发送。
type HIFlag int

const (
	HINone HIFlag = 0 // 排除 HI 字幕
	HIOnly HIFlag = 1 // 只要 HI 字幕
	HIAny  HIFlag = 2 // 不过滤
)

// Filter 是片名页请求的站点侧过滤器。
// 过滤发生在源站：同一片名页在不同 Filter 下返回不同的字幕列表。
type Filter struct {
	LanguageID  int
	HI          HIFlag
	ForeignOnly bool
}

func (f Filter) cookies() []*http.Cookie {
	return []*http.Cookie{
		{Name: "LanguageFilter", Value: strconv.Itoa(f.LanguageID)},
		{Name: "HearingImpaired", Value: strconv.Itoa(int(f.HI))},
		{Name: "ForeignOnly", Value: strconv.FormatBool(f.ForeignOnly)},
		// 固定按相关性排序；按日期排序会破坏“列表序即优先级”的选择契约。
		{Name: "SortSubtitlesByDate", Value: "false"},
	}
}

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// 上层据此生成更可操作的 error_msg（映射为 fetch_failed）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// Session 是一条流水线的站点会话：独立 cookie jar + 共享 Transport。
type Session struct {
	client *http.Client
	base   *url.URL
}

// NewSession 基于共享 Transport 新建会话。baseURL 指向站点或其镜像根。
func NewSession(rt http.RoundTripper, baseURL string) (*Session, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("base URL 不能为空")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("base URL 无效：%w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL 必须是绝对地址：%q", baseURL)
	}

	c, err := httpx.NewSessionClient(rt)
	if err != nil {
		return nil, err
	}
	return &Session{client: c, base: base}, nil
}

func (s *Session) searchURL() string {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + searchPath
	return u.String()
}

// SearchTitles 按片名全文搜索。
// 表单带一个空值的 "l" 字段以匹配站点搜索表单（缺失会改变结果页形态）。
func (s *Session) SearchTitles(ctx context.Context, query string) (domain.SearchResults, error) {
	form := url.Values{
		"query": {query},
		"l":     {""},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.searchURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return domain.SearchResults{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	b, err := s.do(req)
	if err != nil {
		return domain.SearchResults{}, err
	}
	return extract.SearchResults(b, s.base.String())
}

// TitlePage 拉取片名页并解析字幕列表。Filter 以请求 cookie 形式下发，
// 必须在本请求内完整带上（不能依赖 jar 的上一次状态）。
func (s *Session) TitlePage(ctx context.Context, titleURL string, f Filter) ([]domain.Subtitle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, titleURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", s.searchURL())
	for _, ck := range f.cookies() {
		req.AddCookie(ck)
	}

	b, err := s.do(req)
	if err != nil {
		return nil, err
	}
	return extract.TitlePage(b, s.base.String())
}

// SubtitlePage 拉取字幕详情页并解析下载链接（缺失返回空串）。
// Referer 是片名页：详情页 URL 去掉最后两段（语言/数字 ID）即得。
func (s *Session) SubtitlePage(ctx context.Context, subtitleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subtitleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Referer", trimPathSegments(subtitleURL, 2))

	b, err := s.do(req)
	if err != nil {
		return "", err
	}
	return extract.DownloadLink(b, s.base.String())
}

// Download 拉取压缩包原始字节。referer 是对应的字幕详情页。
func (s *Session) Download(ctx context.Context, zipURL, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, zipURL, nil)
	if err != nil {
		return nil, err
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return s.do(req)
}

func (s *Session) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Location:   strings.TrimSpace(resp.Header.Get("Location")),
		}
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}

// trimPathSegments 去掉 URL path 末尾 n 段。解析失败时原样返回（保底可追溯）。
func trimPathSegments(raw string, n int) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	segs := strings.Split(strings.TrimSuffix(u.Path, "/"), "/")
	if len(segs) <= n {
		return raw
	}
	u.Path = strings.Join(segs[:len(segs)-n], "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
