package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/SubDL/internal/app"
	"github.com/John-Robertt/SubDL/internal/config"
	"github.com/John-Robertt/SubDL/internal/domain"
	"github.com/John-Robertt/SubDL/internal/extract"
	"github.com/John-Robertt/SubDL/internal/infra/fsx"
	"github.com/John-Robertt/SubDL/internal/infra/httpx"
	"github.com/John-Robertt/SubDL/internal/payload"
	"github.com/John-Robertt/SubDL/internal/pick"
	"github.com/John-Robertt/SubDL/internal/resolve"
	"github.com/John-Robertt/SubDL/internal/scan"
	"github.com/John-Robertt/SubDL/internal/site"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级失败（单条失败不影响其他）——
// 唯一例外是限流：首个 rate_limited 结果会中止整次运行的剩余请求。
func Execute(ctx context.Context, eff config.EffectiveConfig) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    !eff.Apply,
		Language:  eff.Language.Ext(),
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 128),
	}

	tr, err := httpx.NewSiteTransport(eff.ProxyURL)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	scanStarted := time.Now()
	files, err := scan.ScanMovies(eff.Path, eff.ExcludeDirs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	scanDur := time.Since(scanStarted)

	groupStarted := time.Now()
	items, unmatched, err := app.GroupByMovie(files)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("分组失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	groupDur := time.Since(groupStarted)

	if obs != nil {
		// scan 行同时展示 files + unmatched（unmatched 来自分组阶段）。
		obs.OnPhaseDone("scan", map[string]any{
			"files":     len(files),
			"unmatched": len(unmatched),
		}, scanDur)
		obs.OnPhaseDone("group", map[string]any{
			"movies": len(items),
		}, groupDur)
	}

	// unmatched：每个输入文件单独形成一条 item（更可解释，便于用户逐个修复）。
	for _, u := range unmatched {
		rr.Items = append(rr.Items, unmatchedItem(u))
	}

	// 执行阶段：按电影并发（worker pool），item 内串行；
	// 每个 item 一条独立站点会话（过滤 cookie 是会话态，绝不共享）。
	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(items),
		}, 0)
	}

	// 限流是整次运行的致命条件：首个 rate_limited 结果触发 cancel，
	// 尚未派发的 item 直接合成 rate_limited 条目（不再发起任何请求）。
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type execResult struct {
		movie string
		res   domain.ItemResult
		dur   time.Duration
	}

	jobs := make(chan domain.WorkItem)
	results := make(chan execResult, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				oneStarted := time.Now()
				r := execOne(runCtx, eff, it, files, tr)
				if r.ErrorCode == domain.ErrCodeRateLimited {
					cancel()
				}
				results <- execResult{
					movie: it.Movie.Key(),
					res:   r,
					dur:   time.Since(oneStarted),
				}
			}
		}()
	}

	go func() {
		for _, it := range items {
			select {
			case jobs <- it:
			case <-runCtx.Done():
				results <- execResult{
					movie: it.Movie.Key(),
					res:   abortedItem(eff, it, files),
				}
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, len(items), it.movie, it.res, it.dur)
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func unmatchedItem(u domain.Unmatched) domain.ItemResult {
	item := domain.ItemResult{
		Movie:      "",
		Status:     domain.StatusUnmatched,
		ErrorCode:  domain.ErrCodeUnmatchedMovie,
		Candidates: []string{},
		Files: []domain.FileResult{{
			Src:    u.File.RelPath,
			Dst:    "",
			Status: domain.FileStatusFailed,
		}},
	}

	switch u.Kind {
	case "ambiguous":
		item.Candidates = make([]string, 0, len(u.Candidates))
		for _, m := range u.Candidates {
			item.Candidates = append(item.Candidates, m.Key())
		}
		item.ErrorMsg = fmt.Sprintf("文件名与父目录给出不同的 (title, year)：%v；请统一命名后重试", item.Candidates)
	default:
		item.ErrorMsg = `无法从文件名或父目录解析出 "Title (YYYY)"；请按该格式重命名文件或其所在目录`
	}
	return item
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Movie:      "",
		Status:     domain.StatusFailed,
		ErrorCode:  code,
		ErrorMsg:   msg,
		Candidates: []string{},
		Files:      []domain.FileResult{},
	}
}

// abortedItem 合成“因限流未派发”的条目。
func abortedItem(eff config.EffectiveConfig, it domain.WorkItem, files []domain.MovieFile) domain.ItemResult {
	item := newItem(eff, it, files)
	item.Status = domain.StatusFailed
	item.ErrorCode = domain.ErrCodeRateLimited
	item.ErrorMsg = "本次运行已因源站限流中止；该条目未发起任何请求"
	failAllFiles(&item)
	return item
}

func newItem(eff config.EffectiveConfig, it domain.WorkItem, files []domain.MovieFile) domain.ItemResult {
	item := domain.ItemResult{
		Movie:      it.Movie.Key(),
		Status:     domain.StatusProcessed, // 失败时覆盖
		Candidates: []string{},
		Files:      make([]domain.FileResult, 0, len(it.FileIdx)),
	}
	for _, idx := range it.FileIdx {
		if idx < 0 || idx >= len(files) {
			continue
		}
		f := files[idx]
		item.Files = append(item.Files, domain.FileResult{
			Src:    f.RelPath,
			Dst:    subtitleRelPath(eff, f),
			Status: domain.FileStatusPlanned,
		})
	}
	return item
}

// subtitleRelPath 给出与电影文件同目录的字幕输出路径：
// "<base>.<lang>.srt"（lang 为语言代码，无代码条目退回数字 ID）。
func subtitleRelPath(eff config.EffectiveConfig, f domain.MovieFile) string {
	name := f.Base + "." + eff.Language.Ext() + ".srt"
	dir := filepath.Dir(f.RelPath)
	if dir == "." {
		return name
	}
	return filepath.Join(dir, name)
}

func failAllFiles(item *domain.ItemResult) {
	for i := range item.Files {
		if item.Files[i].Status == domain.FileStatusPlanned {
			item.Files[i].Status = domain.FileStatusFailed
		}
	}
}

func execOne(ctx context.Context, eff config.EffectiveConfig, it domain.WorkItem, files []domain.MovieFile, tr *httpx.Transport) domain.ItemResult {
	// 派发与 cancel 存在竞争：已取消就不再发起任何请求。
	if ctx.Err() != nil {
		return abortedItem(eff, it, files)
	}

	item := newItem(eff, it, files)

	// 全部目标字幕已存在：整条跳过，不发起任何请求。
	allExist := len(item.Files) > 0
	for i := range item.Files {
		if _, err := os.Stat(filepath.Join(eff.Path, item.Files[i].Dst)); err == nil {
			item.Files[i].Status = domain.FileStatusSkipped
		} else {
			allExist = false
		}
	}
	if allExist {
		item.Status = domain.StatusSkipped
		return item
	}

	sess, err := site.NewSession(tr, eff.BaseURL)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeConfigInvalid
		item.ErrorMsg = err.Error()
		failAllFiles(&item)
		return item
	}

	// 1) 搜索片名。
	res, err := sess.SearchTitles(ctx, it.Movie.Title)
	if err != nil {
		fillSiteError(&item, "搜索", err)
		failAllFiles(&item)
		return item
	}

	// 2) 唯一匹配或 NoMatch（popular 永不参与；exact 多条年份全不符不回落）。
	title, ok := resolve.Resolve(it.Movie, res)
	if !ok {
		item.Status = domain.StatusUnmatched
		item.ErrorCode = domain.ErrCodeNoMatch
		item.Candidates = append(item.Candidates, resolve.Candidates(res)...)
		if len(item.Candidates) > 0 {
			item.ErrorMsg = fmt.Sprintf("搜索结果里没有唯一匹配 %q；候选见 candidates", it.Movie.Key())
		} else {
			item.ErrorMsg = fmt.Sprintf("源站搜不到 %q", it.Movie.Key())
		}
		failAllFiles(&item)
		return item
	}
	item.TitleURL = title.URL

	// 3) 片名页 + 站点侧过滤。
	subs, err := sess.TitlePage(ctx, title.URL, siteFilter(eff))
	if err != nil {
		fillSiteError(&item, "片名页", err)
		failAllFiles(&item)
		return item
	}
	if len(subs) == 0 {
		item.Status = domain.StatusUnmatched
		item.ErrorCode = domain.ErrCodeNoSubtitles
		item.ErrorMsg = fmt.Sprintf("%q 在该语言下没有任何字幕", it.Movie.Key())
		failAllFiles(&item)
		return item
	}

	// 4) 本地过滤：片源组析取 + 标签合取 + 评分下限；列表序即优先级，取第一条。
	selected := pick.Select(subs, eff.Tags, eff.SourceTags, eff.MinRating)
	if len(selected) == 0 {
		item.Status = domain.StatusUnmatched
		item.ErrorCode = domain.ErrCodeNoneAfterFilter
		item.ErrorMsg = fmt.Sprintf("%d 条字幕全部被片源/标签/评分过滤排除（source=%v, tags=%v, min_rating=%s）", len(subs), eff.SourceTags, eff.Tags, eff.MinRating)
		failAllFiles(&item)
		return item
	}
	chosen := selected[0]
	item.SubtitleURL = chosen.URL
	item.SubtitleName = chosen.Name

	// 5) 详情页 -> 下载链接。缺失是软失败（条目可能已下架）。
	link, err := sess.SubtitlePage(ctx, chosen.URL)
	if err != nil {
		fillSiteError(&item, "详情页", err)
		failAllFiles(&item)
		return item
	}
	if link == "" {
		item.Status = domain.StatusUnmatched
		item.ErrorCode = domain.ErrCodeNoDownloadLink
		item.ErrorMsg = "详情页没有下载链接（条目可能已下架）"
		failAllFiles(&item)
		return item
	}

	// dry-run：流水线验证到下载链接为止；不下载、不落盘。
	if !eff.Apply {
		return item
	}

	// 6) 下载 + 解包 + 解码。
	raw, err := sess.Download(ctx, link, chosen.URL)
	if err != nil {
		fillSiteError(&item, "下载", err)
		failAllFiles(&item)
		return item
	}

	_, body, err := payload.Unzip(raw)
	if err != nil {
		var mf *payload.MultiFilePackError
		if errors.As(err, &mf) {
			item.Status = domain.StatusUnmatched
			item.ErrorCode = domain.ErrCodeMultiFilePack
			item.ErrorMsg = err.Error()
		} else {
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeDecodeFailed
			item.ErrorMsg = err.Error()
		}
		failAllFiles(&item)
		return item
	}

	text, err := payload.Decode(body, eff.Language.IsArabic())
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeDecodeFailed
		item.ErrorMsg = err.Error()
		failAllFiles(&item)
		return item
	}

	// 7) 写盘：原子 + 不覆盖；已存在记 skipped。
	for i := range item.Files {
		if item.Files[i].Status == domain.FileStatusSkipped {
			continue
		}
		dstAbs := filepath.Join(eff.Path, item.Files[i].Dst)
		werr := fsx.WriteFileAtomicNoOverwrite(filepath.Dir(dstAbs), filepath.Base(dstAbs), text)
		switch {
		case werr == nil:
			item.Files[i].Status = domain.FileStatusWritten
		case errors.Is(werr, os.ErrExist):
			item.Files[i].Status = domain.FileStatusSkipped
		default:
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeIOFailed
			item.ErrorMsg = fmt.Sprintf("写入字幕失败：%v", werr)
			item.Files[i].Status = domain.FileStatusFailed
		}
	}
	return item
}

func siteFilter(eff config.EffectiveConfig) site.Filter {
	f := site.Filter{
		LanguageID:  eff.Language.ID,
		ForeignOnly: eff.ForeignOnly,
	}
	switch eff.HI {
	case "only":
		f.HI = site.HIOnly
	case "any":
		f.HI = site.HIAny
	default:
		f.HI = site.HINone
	}
	return f
}

func fillSiteError(item *domain.ItemResult, stage string, err error) {
	item.Status = domain.StatusFailed

	var rl *extract.RateLimitedError
	if errors.As(err, &rl) {
		item.ErrorCode = domain.ErrCodeRateLimited
		item.ErrorMsg = rl.Error()
		return
	}

	var mp *extract.MalformedPageError
	if errors.As(err, &mp) {
		item.ErrorCode = domain.ErrCodeParseFailed
		item.ErrorMsg = fmt.Sprintf("%s解析失败（站点结构可能变化）：%v", stage, mp)
		return
	}

	var hs *site.HTTPStatusError
	if errors.As(err, &hs) {
		item.ErrorCode = domain.ErrCodeFetchFailed
		item.ErrorMsg = humanizeHTTPError(stage, hs)
		return
	}

	if errors.Is(err, context.Canceled) {
		// 整次运行因限流 cancel：把被打断的条目归为 rate_limited（而非误导性的 fetch_failed）。
		item.ErrorCode = domain.ErrCodeRateLimited
		item.ErrorMsg = "本次运行已因源站限流中止；该条目被中途取消"
		return
	}

	item.ErrorCode = domain.ErrCodeFetchFailed
	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		item.ErrorMsg = fmt.Sprintf("%s超时。建议检查网络/代理，或降低并发后重试。", stage)
		return
	}
	item.ErrorMsg = fmt.Sprintf("%s失败：%v", stage, err)
}

func humanizeHTTPError(stage string, hs *site.HTTPStatusError) string {
	switch hs.StatusCode {
	case 403, 429:
		return fmt.Sprintf("%s返回 HTTP %d（可能触发反爬/限流）。建议降低并发或配置 proxy.url。", stage, hs.StatusCode)
	case 404:
		return fmt.Sprintf("%s返回 HTTP 404（条目可能已下架）。", stage)
	default:
		loc := strings.TrimSpace(hs.Location)
		if loc != "" {
			return fmt.Sprintf("%s返回 HTTP %d（重定向）：%s", stage, hs.StatusCode, loc)
		}
		return fmt.Sprintf("%s返回 HTTP %d。", stage, hs.StatusCode)
	}
}
