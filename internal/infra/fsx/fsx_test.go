package fsx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicReplace_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicReplace(dir, "report.json", []byte("{}")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	// 覆盖写必须成功（report.json 可重建）。
	if err := WriteFileAtomicReplace(dir, "report.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("覆盖写失败：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != `{"v":2}` {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomicNoOverwrite_ExistingIsErrExist(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicNoOverwrite(dir, "movie.ar.srt", []byte("v1")); err != nil {
		t.Fatalf("首次写入失败：%v", err)
	}

	err := WriteFileAtomicNoOverwrite(dir, "movie.ar.srt", []byte("v2"))
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("已存在的字幕必须返回 os.ErrExist，实际：%v", err)
	}

	// 原内容不允许被动过。
	b, _ := os.ReadFile(filepath.Join(dir, "movie.ar.srt"))
	if string(b) != "v1" {
		t.Fatalf("已存在文件被改写：%q", b)
	}
}

func TestWriteFileAtomicNoOverwrite_TargetConflictDir(t *testing.T) {
	dir := t.TempDir()

	// 目标路径是目录：应返回 PathTypeConflictError，而不是 os.ErrExist。
	if err := os.Mkdir(filepath.Join(dir, "movie.ar.srt"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteFileAtomicNoOverwrite(dir, "movie.ar.srt", []byte("x"))
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestWriteFileAtomicNoOverwrite_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "movies")

	if err := WriteFileAtomicNoOverwrite(dir, "movie.ar.srt", []byte("x")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "movie.ar.srt")); err != nil {
		t.Fatalf("目标文件不存在：%v", err)
	}
}
