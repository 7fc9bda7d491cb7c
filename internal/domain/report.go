package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusUnmatched = "unmatched"
)

const (
	FileStatusPlanned = "planned"
	FileStatusWritten = "written"
	FileStatusSkipped = "skipped"
	FileStatusFailed  = "failed"
)

// 错误码分两层：
// - unmatched 状态（预期内的“没找到”）：unmatched_movie / no_match / no_subtitles /
//   none_after_filter / no_download_link / multi_file_pack
// - failed 状态（与源站契约被破坏，或本地故障）：rate_limited / parse_failed /
//   fetch_failed / decode_failed / io_failed / config_*
const (
	ErrCodeUnmatchedMovie  = "unmatched_movie"
	ErrCodeNoMatch         = "no_match"
	ErrCodeNoSubtitles     = "no_subtitles"
	ErrCodeNoneAfterFilter = "none_after_filter"
	ErrCodeNoDownloadLink  = "no_download_link"
	ErrCodeMultiFilePack   = "multi_file_pack"

	ErrCodeRateLimited  = "rate_limited"
	ErrCodeParseFailed  = "parse_failed"
	ErrCodeFetchFailed  = "fetch_failed"
	ErrCodeDecodeFailed = "decode_failed"
	ErrCodeIOFailed     = "io_failed"

	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path     string `json:"path"`
	DryRun   bool   `json:"dry_run"`
	Language string `json:"language"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Unmatched int `json:"unmatched"`
}

type ItemResult struct {
	Movie string `json:"movie"` // "Title (YYYY)"；合成条目为空串

	TitleURL     string `json:"title_url"`     // resolve 命中的片名页
	SubtitleURL  string `json:"subtitle_url"`  // 最终选中的字幕详情页
	SubtitleName string `json:"subtitle_name"` // 选中字幕的 release 名

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	// Candidates 用于解释 no_match / ambiguous：把看到的候选片名列出来，
	// 让用户能自行判断是改文件名还是换语言。
	Candidates []string     `json:"candidates"`
	Files      []FileResult `json:"files"`
}

type FileResult struct {
	Src    string `json:"src"` // 电影文件（相对 path）
	Dst    string `json:"dst"` // 字幕文件（相对 path）
	Status string `json:"status"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 movie 字典序；movie=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Movie
		b := r.Items[j].Movie
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusUnmatched:
			s.Unmatched++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
