package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/SubDL/internal/domain"
	"github.com/John-Robertt/SubDL/internal/language"
	"github.com/John-Robertt/SubDL/internal/pick"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 subdl.json。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// DefaultLanguage 是语言的最终默认值（当 CLI 与配置文件都未指定时）。
	DefaultLanguage = "ar"
	// DefaultMinRating 是评分下限的内置默认值。
	DefaultMinRating = "neutral"
	// DefaultHI 是听障字幕过滤的内置默认值（排除 HI 字幕）。
	DefaultHI = "none"
	// DefaultBaseURL 指向源站；被墙时可在配置里换镜像。
	DefaultBaseURL = "https://subscene.com"
	// DefaultConcurrency 是并发的内置默认值（当配置未指定时）。
	DefaultConcurrency = 4
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Language    string
	LanguageSet bool

	Source    string
	SourceSet bool

	MinRating    string
	MinRatingSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 subdl.json 的解析结构。
type FileConfig struct {
	Path        string       `json:"path"`
	Language    string       `json:"language"`
	Source      string       `json:"source"`
	Tags        []string     `json:"tags"`
	MinRating   string       `json:"min_rating"`
	HI          string       `json:"hi"`
	ForeignOnly bool         `json:"foreign_only"`
	Apply       *bool        `json:"apply"`
	Concurrency int          `json:"concurrency"`
	Proxy       *ProxyConfig `json:"proxy"`
	ExcludeDirs []string     `json:"exclude_dirs"`
	BaseURL     string       `json:"base_url"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
//（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	Language language.Language
	// Tags 是自由标签（合取：全部命中才通过）。
	Tags []string
	// SourceTags 是片源预设展开出的析取组（命中任一即通过；空组不过滤）。
	SourceTags []string
	MinRating  domain.Rating

	HI          string // "none" | "only" | "any"
	ForeignOnly bool
	Apply       bool

	Concurrency int
	ProxyURL    string
	ExcludeDirs []string

	// BaseURL 允许在源站不可达/被阻断时切换到可用镜像域名（可选）。
	// 该字段属于高级能力，仅通过 subdl.json 配置，不暴露 CLI 参数。
	BaseURL string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按文档约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/subdl.json（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/subdl.json（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - language / source / min-rating：CLI > config > 默认
// - apply：CLI --apply/--apply=false > config > 默认 false
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/subdl.json。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath = filepath.Join(absPath, "subdl.json")

		fc, _, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}

		return merge(absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/subdl.json，且其中必须包含 path。
	cfgPath = filepath.Join(cwdAbs, "subdl.json")
	var exists bool
	fc, exists, err = readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(absPath, cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// language：CLI > config > 默认
	langRaw := DefaultLanguage
	if cli.LanguageSet {
		langRaw = cli.Language
	} else if strings.TrimSpace(fc.Language) != "" {
		langRaw = fc.Language
	}
	lang, ok := language.Parse(langRaw)
	if !ok {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("language 不是可用的语言代码或站点数字 ID：%q", langRaw)}
	}

	// source：CLI > config > 空（不过滤来源）
	source := ""
	if cli.SourceSet {
		source = cli.Source
	} else if strings.TrimSpace(fc.Source) != "" {
		source = fc.Source
	}
	sourceTags, ok := pick.SourceTags(source)
	if !ok {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("source 只能是 bluray 或 web，实际是 %q", source)}
	}

	// 预设组与自由标签分开携带：组内析取、组间与自由标签合取（pick.Select）。
	tags := make([]string, 0, len(fc.Tags))
	for _, t := range fc.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	// min-rating：CLI > config > 默认 neutral
	ratingRaw := DefaultMinRating
	if cli.MinRatingSet {
		ratingRaw = cli.MinRating
	} else if strings.TrimSpace(fc.MinRating) != "" {
		ratingRaw = fc.MinRating
	}
	minRating, ok := domain.ParseRating(strings.ToLower(strings.TrimSpace(ratingRaw)))
	if !ok {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("min_rating 只能是 bad/neutral/positive，实际是 %q", ratingRaw)}
	}

	hi := DefaultHI
	if strings.TrimSpace(fc.HI) != "" {
		hi = strings.ToLower(strings.TrimSpace(fc.HI))
	}
	switch hi {
	case "none", "only", "any":
	default:
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("hi 只能是 none/only/any，实际是 %q", hi)}
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 文档约定：范围建议 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > 32 {
		concurrency = 32
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("proxy.url 无效：%w", err)}
		}
	}

	baseURL := strings.TrimSpace(fc.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("base_url 无效：%q", baseURL)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("base_url 必须是 http/https：%q", baseURL)}
	}

	return EffectiveConfig{
		Path:        absPath,
		Language:    lang,
		Tags:        tags,
		SourceTags:  append([]string(nil), sourceTags...),
		MinRating:   minRating,
		HI:          hi,
		ForeignOnly: fc.ForeignOnly,
		Apply:       apply,
		Concurrency: concurrency,
		ProxyURL:    proxyURL,
		ExcludeDirs: append([]string(nil), fc.ExcludeDirs...),
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
