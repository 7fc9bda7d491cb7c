package app

import (
	"path/filepath"
	"testing"

	"github.com/John-Robertt/SubDL/internal/domain"
)

func TestGroupByMovie_MergeSameMovie(t *testing.T) {
	sep := string(filepath.Separator)
	files := []domain.MovieFile{
		{AbsPath: filepath.Join(sep, "lib", "x", "Parasite (2019).mp4"), RelPath: "b.mp4", Base: "Parasite (2019)"},
		{AbsPath: filepath.Join(sep, "lib", "x", "Parasite (2019).mkv"), RelPath: "a.mkv", Base: "Parasite (2019)"},
	}

	items, unmatched, err := GroupByMovie(files)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(unmatched) != 0 {
		t.Fatalf("不期望 unmatched：%v", unmatched)
	}
	if len(items) != 1 {
		t.Fatalf("同一 (title, year) 必须归并为一次查询，实际 %d", len(items))
	}
	if items[0].Movie.Key() != "Parasite (2019)" {
		t.Fatalf("期望 Parasite (2019)，实际 %q", items[0].Movie.Key())
	}
	// item 内必须按 RelPath 排序：a.mkv 在 b.mp4 之前。
	if len(items[0].FileIdx) != 2 || items[0].FileIdx[0] != 1 || items[0].FileIdx[1] != 0 {
		t.Fatalf("FileIdx 排序不稳定：%v", items[0].FileIdx)
	}
}

func TestGroupByMovie_StableItemOrder(t *testing.T) {
	sep := string(filepath.Separator)
	files := []domain.MovieFile{
		{AbsPath: filepath.Join(sep, "lib", "Okja (2017).mp4"), RelPath: "Okja (2017).mp4", Base: "Okja (2017)"},
		{AbsPath: filepath.Join(sep, "lib", "Ne Zha (2019).mp4"), RelPath: "Ne Zha (2019).mp4", Base: "Ne Zha (2019)"},
	}

	items, _, err := GroupByMovie(files)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(items) != 2 || items[0].Movie.Title != "Ne Zha" {
		t.Fatalf("items 必须按 Movie.Key() 排序：%+v", items)
	}
}

func TestGroupByMovie_Unmatched(t *testing.T) {
	sep := string(filepath.Separator)
	files := []domain.MovieFile{
		{AbsPath: filepath.Join(sep, "lib", "downloads", "hello.mp4"), RelPath: "hello.mp4", Base: "hello"},
		{AbsPath: filepath.Join(sep, "lib", "downloads", "Parasite (2019).mp4"), RelPath: "Parasite (2019).mp4", Base: "Parasite (2019)"},
	}

	items, unmatched, err := GroupByMovie(files)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(items) != 1 {
		t.Fatalf("期望 1 个 item，实际 %d", len(items))
	}
	if len(unmatched) != 1 || unmatched[0].Kind != "no_match" {
		t.Fatalf("期望 1 个 no_match unmatched，实际 %+v", unmatched)
	}
}
