// Package language 维护源站语言过滤器的静态映射：
// ISO 语言代码 <-> 站点内部数字 ID。
//
// 表是手抄自站点过滤页的固定清单，不做任何远程发现。
// 个别数字 ID（双语包、遗留编码）没有对应语言代码，只能按 ID 直取。
package language

import (
	"strconv"
	"strings"

	xlang "golang.org/x/text/language"
)

// Language 是一条已解析的语言过滤项。
// Code 为规范化后的代码；仅按 ID 取到的无代码条目 Code 为空。
type Language struct {
	ID   int
	Code string
}

// IsArabic 报告该语言是否为阿拉伯语（站点 ID 2）。
// payload 的编码回退链只对阿拉伯语启用。
func (l Language) IsArabic() bool { return l.ID == 2 }

// Ext 返回用于输出文件名的语言片段：优先代码，无代码时用数字 ID。
func (l Language) Ext() string {
	if l.Code != "" {
		return l.Code
	}
	return strconv.Itoa(l.ID)
}

// 代码一律取最短规范形式（有 2 字母码用 2 字母，否则 3 字母）。
// 巴西葡萄牙语没有 ISO 代码，用 IETF 区域标签 pt-br 单列。
var byCode = map[string]int{
	"sq": 1, "ar": 2, "bg": 5, "hr": 8, "cs": 9,
	"da": 10, "nl": 11, "en": 13, "et": 16, "fi": 17,
	"fr": 18, "de": 19, "el": 21, "he": 22, "hu": 23,
	"is": 25, "it": 26, "ja": 27, "ko": 28, "lv": 29,
	"no": 30, "pl": 31, "pt": 32, "ro": 33, "ru": 34,
	"sr": 35, "sk": 36, "sl": 37, "es": 38, "sv": 39,
	"th": 40, "tr": 41, "ur": 42, "lt": 43, "id": 44,
	"vi": 45, "fa": 46, "eo": 47, "mk": 48, "ca": 49,
	"ms": 50, "hi": 51, "ku": 52, "tl": 53, "bn": 54,
	"az": 55, "uk": 56, "kl": 57, "si": 58, "ta": 59,
	"bs": 60, "my": 61, "ka": 62, "te": 63, "ml": 64,
	"mni": 65, "pa": 66, "ps": 67, "be": 68, "so": 70,
	"yo": 71, "mn": 72, "hy": 73, "eu": 74, "sw": 75,
	"su": 76, "kn": 78, "km": 79, "ne": 80,
}

// 只有数字 ID、没有语言代码的条目：
//
//	3  Big 5 code
//	6  Bulgarian/English
//	7  Chinese BG code
//	12 Dutch/English
//	15 English/German
//	24 Hungarian/English
//
// 双语包条目在站点侧行为未定义，但按 ID 请求是允许的。
var codelessIDs = map[int]struct{}{
	3: {}, 6: {}, 7: {}, 12: {}, 15: {}, 24: {},
}

// ISO 639-2/B（书目码）与 639-2/T 不同拼法的条目。
// B 码不是 BCP 47 子标签，x/text 的 Parse 不认，必须单独映射；
// 只列表内语言，其余 3 字母码走 BCP 47 规范化。
var byBiblioCode = map[string]string{
	"alb": "sq", "arm": "hy", "baq": "eu", "bur": "my",
	"cze": "cs", "dut": "nl", "fre": "fr", "geo": "ka",
	"ger": "de", "gre": "el", "ice": "is", "mac": "mk",
	"may": "ms", "per": "fa", "rum": "ro", "slo": "sk",
}

var codeByID = func() map[int]string {
	m := make(map[int]string, len(byCode)+1)
	for code, id := range byCode {
		m[id] = code
	}
	m[4] = "pt-br"
	return m
}()

// ByCode 按语言代码查找。接受 ISO 639-1 两字母码、639-2/B 书目码
//（fre/ger/dut 等），以及可规范化的 639-2/T 三字母码（经 BCP 47
// 规范化，含弃用码如 iw -> he）。pt-br / pt_br 是唯一的非 ISO 特例。
// 无代码条目查不到。
func ByCode(code string) (Language, bool) {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		return Language{}, false
	}
	if c == "pt-br" || c == "pt_br" {
		return Language{ID: 4, Code: "pt-br"}, true
	}
	if id, ok := byCode[c]; ok {
		return Language{ID: id, Code: c}, true
	}
	if base, ok := byBiblioCode[c]; ok {
		return Language{ID: byCode[base], Code: base}, true
	}
	tag, err := xlang.Parse(c)
	if err != nil {
		return Language{}, false
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return Language{}, false
	}
	if id, ok := byCode[base.String()]; ok {
		return Language{ID: id, Code: base.String()}, true
	}
	return Language{}, false
}

// ByID 按站点数字 ID 直取。无代码条目也可达（Code 为空）。
func ByID(id int) (Language, bool) {
	if code, ok := codeByID[id]; ok {
		return Language{ID: id, Code: code}, true
	}
	if _, ok := codelessIDs[id]; ok {
		return Language{ID: id}, true
	}
	return Language{}, false
}

// Parse 接受用户输入：纯数字按 ID，否则按代码。
func Parse(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return ByID(id)
	}
	return ByCode(s)
}
