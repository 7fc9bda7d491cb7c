package resolve

import (
	"testing"

	"github.com/John-Robertt/SubDL/internal/domain"
)

func TestSplitDisplay(t *testing.T) {
	cases := []struct {
		in    string
		title string
		year  string
	}{
		{"Official Secrets (2019)", "Official Secrets", "2019"},
		{"Parasite (Gisaengchung / 기생충) (2019)", "Parasite (Gisaengchung / 기생충)", "2019"},
		{"Ne Zha", "Ne Zha", ""},
		{"  The Parent Trap (1961) ", "The Parent Trap", "1961"},
	}
	for _, c := range cases {
		title, year := SplitDisplay(c.in)
		if title != c.title || year != c.year {
			t.Fatalf("SplitDisplay(%q) = (%q, %q)，期望 (%q, %q)", c.in, title, year, c.title, c.year)
		}
	}
}

func TestResolve_SingleExactIgnoresYear(t *testing.T) {
	res := domain.SearchResults{
		Exact: []domain.Title{{URL: "u1", Name: "Official Secrets (2019)"}},
	}

	// 唯一 exact 必须无条件返回，即使年份与查询不一致。
	got, ok := Resolve(domain.Movie{Title: "Official Secrets", Year: "1999"}, res)
	if !ok || got.URL != "u1" {
		t.Fatalf("唯一 exact 应无条件命中：ok=%v got=%+v", ok, got)
	}
}

func TestResolve_MultiExactPicksMatchingYear(t *testing.T) {
	res := domain.SearchResults{
		Exact: []domain.Title{
			{URL: "u1998", Name: "The Parent Trap (1998)"},
			{URL: "u1961", Name: "The Parent Trap (1961)"},
		},
	}

	got, ok := Resolve(domain.Movie{Title: "The Parent Trap", Year: "1961"}, res)
	if !ok || got.URL != "u1961" {
		t.Fatalf("应命中年份一致的 exact：ok=%v got=%+v", ok, got)
	}
}

func TestResolve_MultiExactNoYearIsNoMatch(t *testing.T) {
	res := domain.SearchResults{
		Exact: []domain.Title{
			{URL: "u1998", Name: "The Parent Trap (1998)"},
			{URL: "u1961", Name: "The Parent Trap (1961)"},
		},
		// 即使 close 里有年份完全一致的候选，也不允许回落。
		Close: []domain.Title{{URL: "uclose", Name: "The Parent Trap (2020)"}},
	}

	if _, ok := Resolve(domain.Movie{Title: "The Parent Trap", Year: "2020"}, res); ok {
		t.Fatalf("exact 多条且年份全不匹配时必须 NoMatch（不回落到 close）")
	}
}

func TestResolve_CloseYearFilterBeatsRawScore(t *testing.T) {
	res := domain.SearchResults{
		Close: []domain.Title{
			// 与查询片名几乎相同但年份不对：打分再高也不允许命中。
			{URL: "uwrong", Name: "Blade Runner (1982)"},
			{URL: "uright", Name: "Blade Runner 2049 (2017)"},
		},
	}

	got, ok := Resolve(domain.Movie{Title: "Blade Runner", Year: "2017"}, res)
	if !ok || got.URL != "uright" {
		t.Fatalf("年份硬过滤必须先于打分：ok=%v got=%+v", ok, got)
	}
}

func TestResolve_CloseHighestScoreWinsTiesToFirst(t *testing.T) {
	res := domain.SearchResults{
		Close: []domain.Title{
			{URL: "u1", Name: "Paradise (2019)"},
			{URL: "u2", Name: "Parasite (2019)"},
			{URL: "u3", Name: "Parasite (2019)"}, // 与 u2 同分：必须取先出现的 u2
		},
	}

	got, ok := Resolve(domain.Movie{Title: "Parasite", Year: "2019"}, res)
	if !ok || got.URL != "u2" {
		t.Fatalf("最高分/同分取先出现者：ok=%v got=%+v", ok, got)
	}
}

func TestResolve_PopularNeverMatches(t *testing.T) {
	res := domain.SearchResults{
		Popular: []domain.Title{{URL: "upop", Name: "Parasite (2019)"}},
	}

	if _, ok := Resolve(domain.Movie{Title: "Parasite", Year: "2019"}, res); ok {
		t.Fatalf("popular 永远不是可选匹配")
	}

	if got := Candidates(res); len(got) != 0 {
		t.Fatalf("popular 不应出现在候选解释里：%v", got)
	}
}

func TestResolve_EmptyIsNoMatch(t *testing.T) {
	if _, ok := Resolve(domain.Movie{Title: "Ne Zha", Year: "2019"}, domain.SearchResults{}); ok {
		t.Fatalf("空结果必须 NoMatch")
	}
}
