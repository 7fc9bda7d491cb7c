package language

import "testing"

func TestByCode(t *testing.T) {
	cases := []struct {
		in   string
		id   int
		code string
		ok   bool
	}{
		{"ar", 2, "ar", true},
		{"AR", 2, "ar", true},
		{"ara", 2, "ar", true},  // 639-2/T 三字母码规范化为两字母
		{"ger", 19, "de", true}, // 639-2/B 书目码（BCP 47 不认，走别名表）
		{"fre", 18, "fr", true},
		{"dut", 11, "nl", true},
		{"slo", 36, "sk", true},
		{"deu", 19, "de", true}, // 同一语言的 T 码仍走规范化
		{"iw", 22, "he", true},  // 弃用码规范化
		{"mni", 65, "mni", true}, // 无两字母码的条目保持三字母
		{"pt", 32, "pt", true},
		{"pt-BR", 4, "pt-br", true},
		{"pt_br", 4, "pt-br", true},
		{"zz", 0, "", false},
		{"", 0, "", false},
	}
	for _, c := range cases {
		got, ok := ByCode(c.in)
		if ok != c.ok || got.ID != c.id || got.Code != c.code {
			t.Fatalf("ByCode(%q) = (%+v, %v)，期望 (id=%d code=%q, %v)", c.in, got, ok, c.id, c.code, c.ok)
		}
	}
}

func TestByID(t *testing.T) {
	if got, ok := ByID(2); !ok || got.Code != "ar" {
		t.Fatalf("ByID(2) 应返回 ar：%+v %v", got, ok)
	}
	// 无代码条目：ID 可达，Code 为空，文件名片段退回数字。
	if got, ok := ByID(6); !ok || got.Code != "" || got.Ext() != "6" {
		t.Fatalf("ByID(6) 应返回无代码条目：%+v %v", got, ok)
	}
	if _, ok := ByID(999); ok {
		t.Fatalf("未知 ID 必须查不到")
	}
}

func TestCodelessNotReachableByCode(t *testing.T) {
	// 双语包/遗留编码条目只允许按 ID 直取。
	for _, id := range []int{3, 6, 7, 12, 15, 24} {
		l, ok := ByID(id)
		if !ok || l.Code != "" {
			t.Fatalf("ID %d 应为无代码条目：%+v %v", id, l, ok)
		}
	}
}

func TestParse(t *testing.T) {
	if got, ok := Parse("65"); !ok || got.ID != 65 || got.Code != "mni" {
		t.Fatalf("Parse(\"65\") 应按 ID 解析：%+v %v", got, ok)
	}
	if got, ok := Parse(" en "); !ok || got.ID != 13 {
		t.Fatalf("Parse(\" en \") 应按代码解析：%+v %v", got, ok)
	}
	if _, ok := Parse("69"); ok {
		t.Fatalf("表中不存在的数字 ID 必须失败")
	}
}

func TestIsArabic(t *testing.T) {
	ar, _ := ByCode("ar")
	en, _ := ByCode("en")
	if !ar.IsArabic() || en.IsArabic() {
		t.Fatalf("IsArabic 判定错误")
	}
}
