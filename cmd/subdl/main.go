package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/SubDL/internal/app/run"
	"github.com/John-Robertt/SubDL/internal/config"
	"github.com/John-Robertt/SubDL/internal/domain"
	"github.com/John-Robertt/SubDL/internal/infra/fsx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Path:         ra.Path,
		Language:     ra.Language,
		LanguageSet:  ra.LanguageSet,
		Source:       ra.Source,
		SourceSet:    ra.SourceSet,
		MinRating:    ra.MinRating,
		MinRatingSet: ra.MinRatingSet,
		Apply:        ra.Apply,
		ApplySet:     ra.ApplySet,
	})
	if err != nil {
		rr := reportForConfigError(cwdAbs, ra, err)
		emitReport(rr)
		return 1
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(context.Background(), eff, obs)

	// apply：必须写入 <path>/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Path, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive && eff.Apply {
		fmt.Fprintf(progressW, "report: %s\n", filepath.Join(eff.Path, "report.json"))
	}
	if rr.Summary.Failed == 0 && rr.Summary.Unmatched == 0 {
		return 0
	}
	return 1
}

type runArgs struct {
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

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	takeValue := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--language":
			v, err := takeValue(&i, "--language")
			if err != nil {
				return runArgs{}, err
			}
			ra.Language = v
			ra.LanguageSet = true
		case strings.HasPrefix(a, "--language="):
			ra.Language = strings.TrimPrefix(a, "--language=")
			ra.LanguageSet = true
		case a == "--source":
			v, err := takeValue(&i, "--source")
			if err != nil {
				return runArgs{}, err
			}
			ra.Source = v
			ra.SourceSet = true
		case strings.HasPrefix(a, "--source="):
			ra.Source = strings.TrimPrefix(a, "--source=")
			ra.SourceSet = true
		case a == "--min-rating":
			v, err := takeValue(&i, "--min-rating")
			if err != nil {
				return runArgs{}, err
			}
			ra.MinRating = v
			ra.MinRatingSet = true
		case strings.HasPrefix(a, "--min-rating="):
			ra.MinRating = strings.TrimPrefix(a, "--min-rating=")
			ra.MinRatingSet = true
		case a == "--apply":
			ra.Apply = true
			ra.ApplySet = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ra.Apply = true
			case "false":
				ra.Apply = false
			default:
				return runArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
			ra.ApplySet = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Path != "" {
				return runArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ra.Path, a)
			}
			ra.Path = a
		}
	}

	if ra.LanguageSet && strings.TrimSpace(ra.Language) == "" {
		return runArgs{}, fmt.Errorf("--language 不能为空")
	}
	if ra.SourceSet {
		switch ra.Source {
		case "bluray", "web":
			// ok
		case "":
			return runArgs{}, fmt.Errorf("--source 不能为空")
		default:
			return runArgs{}, fmt.Errorf("--source 只能是 bluray 或 web，实际是 %q", ra.Source)
		}
	}
	if ra.MinRatingSet {
		switch ra.MinRating {
		case "bad", "neutral", "positive":
			// ok
		default:
			return runArgs{}, fmt.Errorf("--min-rating 只能是 bad/neutral/positive，实际是 %q", ra.MinRating)
		}
	}

	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  subdl run [path] [--language <code|id>] [--source bluray|web] [--min-rating bad|neutral|positive] [--apply[=true|false]]

命令：
  run    扫描 path 下的电影文件并为每部电影定位/下载字幕（默认 dry-run）

使用 "subdl run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  subdl run [path] [--language <code|id>] [--source bluray|web] [--min-rating bad|neutral|positive] [--apply[=true|false]]

参数：
  --language    字幕语言：ISO 代码（ar/en/pt-br/...）或站点数字 ID（默认 ar）
  --source      片源预设：bluray（bluray/brrip/bdrip）或 web（webrip/web-dl）
  --min-rating  评分下限：bad|neutral|positive（默认 neutral）
  --apply       下载并写入字幕文件（默认 dry-run 只验证流程）；
                支持 --apply=false 覆盖配置中的 apply=true
  -h, --help    显示帮助

path 未指定时从 ./subdl.json 的 path 字段读取。
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：processed=%d skipped=%d failed=%d unmatched=%d\n",
			rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unmatched,
		)
		if rr.Summary.Failed > 0 || rr.Summary.Unmatched > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed && it.Status != domain.StatusUnmatched {
					continue
				}
				key := it.Movie
				if key == "" && len(it.Files) > 0 {
					// unmatched/config 等合成条目：用首个输入文件路径做定位锚点。
					key = it.Files[0].Src
				}
				if key == "" {
					key = "<unknown>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：processed=%d skipped=%d failed=%d unmatched=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unmatched,
	)
}

func reportForConfigError(cwdAbs string, ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Path:       cwdAbs,
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Movie:      "",
			Status:     domain.StatusFailed,
			ErrorCode:  config.Code(err),
			ErrorMsg:   err.Error(),
			Candidates: []string{},
			Files:      []domain.FileResult{},
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(root string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(root, "report.json", b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
