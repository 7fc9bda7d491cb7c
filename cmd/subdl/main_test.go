package main

import "testing"

func TestParseRunArgs(t *testing.T) {
	ra, err := parseRunArgs([]string{"movies", "--language=pt-br", "--source", "web", "--min-rating=positive", "--apply"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ra.Path != "movies" {
		t.Fatalf("path 解析错误：%q", ra.Path)
	}
	if !ra.LanguageSet || ra.Language != "pt-br" {
		t.Fatalf("language 解析错误：%+v", ra)
	}
	if !ra.SourceSet || ra.Source != "web" {
		t.Fatalf("source 解析错误：%+v", ra)
	}
	if !ra.MinRatingSet || ra.MinRating != "positive" {
		t.Fatalf("min-rating 解析错误：%+v", ra)
	}
	if !ra.ApplySet || !ra.Apply {
		t.Fatalf("apply 解析错误：%+v", ra)
	}
}

func TestParseRunArgs_ApplyFalseIsExplicit(t *testing.T) {
	// --apply=false 必须记录“显式指定”，否则无法覆盖配置中的 apply=true。
	ra, err := parseRunArgs([]string{"--apply=false"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !ra.ApplySet || ra.Apply {
		t.Fatalf("期望 ApplySet=true Apply=false：%+v", ra)
	}
}

func TestParseRunArgs_Rejects(t *testing.T) {
	cases := [][]string{
		{"--source", "vhs"},
		{"--source"},
		{"--min-rating=great"},
		{"--apply=maybe"},
		{"--language="},
		{"--unknown"},
		{"a", "b"},
	}
	for _, args := range cases {
		if _, err := parseRunArgs(args); err == nil {
			t.Fatalf("%v 应被拒绝", args)
		}
	}
}
