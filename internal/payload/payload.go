// Package payload 处理下载回来的字幕压缩包：选出唯一的字幕条目，
// 并把未知编码的正文解码为 UTF-8。
//
// 约束：
// - 压缩包里恰好一个可用条目才继续；多条目（剧集包/多版本包）拒绝整包，
//   绝不猜测该用哪一个
// - 编码回退链只对阿拉伯语启用（Windows-1256 / UTF-16 是该语种字幕的
//   历史遗留主流）；其它语言只接受 UTF-8
package payload

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// 站点压缩包内可用的字幕条目后缀（大小写敏感，与站点打包习惯一致）。
var subtitleSuffixes = []string{
	".srt", ".srt.style", ".sub", ".txt", ".ssa", ".ass", ".smi",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MultiFilePackError 表示压缩包含多个字幕条目。
// 这是预期内的软失败：整包拒绝，由上层记为 multi_file_pack。
type MultiFilePackError struct {
	Names []string
}

func (e *MultiFilePackError) Error() string {
	return fmt.Sprintf("压缩包含 %d 个字幕条目，拒绝猜测：%s", len(e.Names), strings.Join(e.Names, ", "))
}

// BadArchiveError 表示压缩包本身不可用（打不开或没有任何字幕条目）。
type BadArchiveError struct {
	Detail string
}

func (e *BadArchiveError) Error() string {
	return "压缩包不可用：" + e.Detail
}

// DecodeError 表示正文无法解码为 UTF-8（含回退链全部失败）。
type DecodeError struct {
	Detail string
}

func (e *DecodeError) Error() string {
	return "字幕正文解码失败：" + e.Detail
}

// Unzip 从压缩包里取出唯一的字幕条目。
// 非字幕后缀的条目（nfo、图片、目录项）直接忽略，不计数。
func Unzip(raw []byte) (name string, body []byte, err error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", nil, &BadArchiveError{Detail: err.Error()}
	}

	var picked []*zip.File
	for _, f := range zr.File {
		if hasSubtitleSuffix(f.Name) {
			picked = append(picked, f)
		}
	}

	switch len(picked) {
	case 0:
		return "", nil, &BadArchiveError{Detail: "没有任何字幕条目"}
	case 1:
	default:
		names := make([]string, 0, len(picked))
		for _, f := range picked {
			names = append(names, f.Name)
		}
		return "", nil, &MultiFilePackError{Names: names}
	}

	rc, err := picked[0].Open()
	if err != nil {
		return "", nil, &BadArchiveError{Detail: err.Error()}
	}
	defer rc.Close()

	body, err = io.ReadAll(rc)
	if err != nil {
		return "", nil, &BadArchiveError{Detail: err.Error()}
	}
	return picked[0].Name, body, nil
}

func hasSubtitleSuffix(name string) bool {
	for _, s := range subtitleSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Decode 把字幕正文解码为 UTF-8（无 BOM）。
//
// 回退链（仅 arabic=true 时启用后两步）：
//  1. UTF-8（剥 BOM 后校验）
//  2. Windows-1256
//  3. UTF-16（按 BOM 判序，缺省小端）
//
// Windows-1256 是单字节编码，任何字节序列都能“解出来”，失败只能靠
// 替换符（U+FFFD）探测：出现替换符即视为该步失败。
func Decode(raw []byte, arabic bool) ([]byte, error) {
	plain := bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(plain) {
		return plain, nil
	}

	if !arabic {
		return nil, &DecodeError{Detail: "正文不是合法 UTF-8"}
	}

	// UTF-16 BOM 必须先于 Windows-1256 检查：cp1256 几乎全字节可映射，
	// 任何 UTF-16 字节流都会被它“成功”解成乱码。
	if !hasUTF16BOM(raw) {
		if out, err := charmap.Windows1256.NewDecoder().Bytes(raw); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
			return out, nil
		}
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	if out, err := dec.Bytes(raw); err == nil && utf8.Valid(out) && !bytes.ContainsRune(out, utf8.RuneError) {
		return out, nil
	}

	return nil, &DecodeError{Detail: "UTF-8 / Windows-1256 / UTF-16 全部失败"}
}

func hasUTF16BOM(b []byte) bool {
	return len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF))
}
