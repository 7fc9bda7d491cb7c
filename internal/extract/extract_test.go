package extract

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const baseURL = "https://subscene.com"

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestSearchResults_Exact(t *testing.T) {
	res, err := SearchResults(readFixture(t, "search-exact.html"), baseURL)
	if err != nil {
		t.Fatalf("SearchResults 失败：%v", err)
	}

	if res.Close != nil || res.Popular != nil {
		t.Fatalf("缺席栏目必须是 nil：close=%v popular=%v", res.Close, res.Popular)
	}
	if len(res.Exact) != 1 {
		t.Fatalf("期望 1 条 exact，实际 %d", len(res.Exact))
	}
	got := res.Exact[0]
	if got.URL != baseURL+"/subtitles/official-secrets" {
		t.Fatalf("URL 解析错误：%q", got.URL)
	}
	// 锚文本内的换行 + 缩进必须折叠为单个空格。
	if got.Name != "Official Secrets (2019)" {
		t.Fatalf("Name 空白折叠错误：%q", got.Name)
	}
}

func TestSearchResults_MultiExactAndClose(t *testing.T) {
	res, err := SearchResults(readFixture(t, "search-multi-exact.html"), baseURL)
	if err != nil {
		t.Fatalf("SearchResults 失败：%v", err)
	}

	if len(res.Exact) != 2 {
		t.Fatalf("期望 2 条 exact，实际 %d", len(res.Exact))
	}
	if res.Exact[0].Name != "The Parent Trap (1998)" || res.Exact[1].Name != "The Parent Trap (1961)" {
		t.Fatalf("exact 顺序/内容错误：%+v", res.Exact)
	}
	if len(res.Close) != 1 || res.Close[0].Name != "The Parent Trap II (1986)" {
		t.Fatalf("close 解析错误：%+v", res.Close)
	}
	if res.Popular != nil {
		t.Fatalf("popular 应缺席（nil），实际 %+v", res.Popular)
	}
}

func TestSearchResults_PopularOnly(t *testing.T) {
	res, err := SearchResults(readFixture(t, "search-popular.html"), baseURL)
	if err != nil {
		t.Fatalf("SearchResults 失败：%v", err)
	}

	if res.Exact != nil || res.Close != nil {
		t.Fatalf("exact/close 应缺席（nil）")
	}
	if len(res.Popular) != 3 {
		t.Fatalf("期望 3 条 popular，实际 %d", len(res.Popular))
	}
	if res.Popular[0].URL != baseURL+"/subtitles/a-match-made-in-heaven-rab-ne-bana-di-jodi" {
		t.Fatalf("popular URL 错误：%q", res.Popular[0].URL)
	}
}

func TestSearchResults_Empty(t *testing.T) {
	res, err := SearchResults(readFixture(t, "search-empty.html"), baseURL)
	if err != nil {
		t.Fatalf("SearchResults 失败：%v", err)
	}
	if !res.Empty() {
		t.Fatalf("三个栏目全缺席时 Empty() 必须为 true：%+v", res)
	}
}

func TestRateLimited_WinsOverStructure(t *testing.T) {
	html := readFixture(t, "rate-limit.html")

	// 限流签名优先于一切结构解析：三种 kind 都必须返回 RateLimitedError，
	// 即使页面同时包含结构良好的 search-result。
	var rl *RateLimitedError

	if _, err := SearchResults(html, baseURL); !errors.As(err, &rl) {
		t.Fatalf("SearchResults 应返回 RateLimitedError，实际：%v", err)
	}
	if _, err := TitlePage(html, baseURL); !errors.As(err, &rl) {
		t.Fatalf("TitlePage 应返回 RateLimitedError，实际：%v", err)
	}
	if _, err := DownloadLink(html, baseURL); !errors.As(err, &rl) {
		t.Fatalf("DownloadLink 应返回 RateLimitedError，实际：%v", err)
	}
}

func TestTitlePage_Golden(t *testing.T) {
	subs, err := TitlePage(readFixture(t, "title.html"), baseURL)
	if err != nil {
		t.Fatalf("TitlePage 失败：%v", err)
	}

	got, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	got = append(got, '\n')

	goldenPath := filepath.Join("golden", "title.json")
	if os.Getenv("UPDATE_GOLDEN") == "1" {
		if err := os.WriteFile(goldenPath, got, 0o644); err != nil {
			t.Fatalf("写入 golden 失败：%v", err)
		}
		return
	}

	want, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("读取 golden 失败：%v（可用 UPDATE_GOLDEN=1 生成）", err)
	}
	if string(want) != string(got) {
		t.Fatalf("golden 不匹配：%s\n--- got ---\n%s", goldenPath, got)
	}
}

func TestTitlePage_AdRowIgnored(t *testing.T) {
	subs, err := TitlePage(readFixture(t, "title.html"), baseURL)
	if err != nil {
		t.Fatalf("TitlePage 失败：%v", err)
	}
	// fixture 中夹了一行广告（无 td.a1）：必须被跳过而不是报错。
	if len(subs) != 3 {
		t.Fatalf("期望 3 条字幕，实际 %d", len(subs))
	}
}

func TestTitlePage_EmptyMarkerBeatsDecoyRows(t *testing.T) {
	subs, err := TitlePage(readFixture(t, "title-empty.html"), baseURL)
	if err != nil {
		t.Fatalf("TitlePage 失败：%v", err)
	}
	if subs == nil || len(subs) != 0 {
		t.Fatalf("无结果标记必须优先：期望非 nil 空列表，实际 %+v", subs)
	}
}

func TestTitlePage_UnknownRatingIsMalformed(t *testing.T) {
	_, err := TitlePage(readFixture(t, "title-bad-rating.html"), baseURL)

	var mp *MalformedPageError
	if !errors.As(err, &mp) {
		t.Fatalf("未知评分 class 必须是 MalformedPageError，实际：%v", err)
	}
	if mp.Page != "title" {
		t.Fatalf("MalformedPageError.Page 错误：%q", mp.Page)
	}
}

func TestDownloadLink(t *testing.T) {
	link, err := DownloadLink(readFixture(t, "subtitle.html"), baseURL)
	if err != nil {
		t.Fatalf("DownloadLink 失败：%v", err)
	}
	if link != baseURL+"/subtitles/arabic-text/tb-75H99hPT5akNHyzyJla9ZN" {
		t.Fatalf("下载链接错误：%q", link)
	}
}

func TestDownloadLink_AbsentIsNotError(t *testing.T) {
	link, err := DownloadLink(readFixture(t, "subtitle-nolink.html"), baseURL)
	if err != nil {
		t.Fatalf("缺失下载链接不是错误，实际：%v", err)
	}
	if link != "" {
		t.Fatalf("期望空链接，实际 %q", link)
	}
}

func TestResolveRef_RFC3986(t *testing.T) {
	html := []byte(`<div class="download"><a href="../files/sub.zip?v=2#frag">Download</a></div>`)
	link, err := DownloadLink(html, "https://subscene.com/subtitles/official-secrets/arabic/123")
	if err != nil {
		t.Fatalf("DownloadLink 失败：%v", err)
	}
	// ".." 段、query、fragment 必须按 RFC 3986 处理。
	if link != "https://subscene.com/subtitles/official-secrets/files/sub.zip?v=2#frag" {
		t.Fatalf("相对路径解析不符合 RFC 3986：%q", link)
	}
}
