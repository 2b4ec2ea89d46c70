package security

import (
	"strings"
	"testing"
)

// TestSanitize_AllowedTags は許可タグが正しく通過することを検証する。
func TestSanitize_AllowedTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		// want に含まれるべき部分文字列
		wantContains []string
	}{
		{
			name:         "h2タグが許可される",
			input:        "<h2>授業の概要</h2>",
			wantContains: []string{"<h2>授業の概要</h2>"},
		},
		{
			name:         "pタグが許可される",
			input:        "<p>講義の到達目標を説明する。</p>",
			wantContains: []string{"<p>講義の到達目標を説明する。</p>"},
		},
		{
			name:         "brタグが許可される",
			input:        "前期<br>後期",
			wantContains: []string{"<br>", "前期", "後期"},
		},
		{
			name:         "tableタグ一式が許可される",
			input:        "<table><thead><tr><th>項目</th></tr></thead><tbody><tr><td>内容</td></tr></tbody></table>",
			wantContains: []string{"<table>", "<thead>", "<tr>", "<th>項目</th>", "<tbody>", "<td>内容</td>", "</table>"},
		},
		{
			name:         "セル結合属性が保持される",
			input:        `<table><tr><td colspan="2" rowspan="3">評価方法</td></tr></table>`,
			wantContains: []string{`colspan="2"`, `rowspan="3"`},
		},
		{
			name:         "ulタグとliタグが許可される",
			input:        "<ul><li>出席</li><li>期末試験</li></ul>",
			wantContains: []string{"<ul>", "<li>", "出席", "期末試験", "</li>", "</ul>"},
		},
		{
			name:         "dlタグ一式が許可される",
			input:        "<dl><dt>担当教員</dt><dd>山田太郎</dd></dl>",
			wantContains: []string{"<dl>", "<dt>担当教員</dt>", "<dd>山田太郎</dd>", "</dl>"},
		},
		{
			name:         "divタグとspanタグが許可される",
			input:        `<div><span>第1回</span></div>`,
			wantContains: []string{"<div>", "<span>", "第1回"},
		},
		{
			name:         "strongタグが許可される",
			input:        "<strong>必修科目</strong>",
			wantContains: []string{"<strong>必修科目</strong>"},
		},
		{
			name:         "aタグが許可される",
			input:        `<a href="https://example.ac.jp/syllabus">シラバス</a>`,
			wantContains: []string{"<a", "href", "https://example.ac.jp/syllabus", "シラバス", "</a>"},
		},
		{
			name:         "imgタグがhttps srcで許可される",
			input:        `<img src="https://example.ac.jp/image.png" alt="図">`,
			wantContains: []string{"<img", "src", "https://example.ac.jp/image.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_ForbiddenTags は禁止タグが除去されることを検証する。
func TestSanitize_ForbiddenTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantAbsent   []string
		wantContains []string
	}{
		{
			name:         "scriptタグが除去される",
			input:        `<p>テスト</p><script>alert('xss')</script><p>安全</p>`,
			wantAbsent:   []string{"<script", "</script>", "alert"},
			wantContains: []string{"テスト", "安全"},
		},
		{
			name:         "iframeタグが除去される",
			input:        `<p>テスト</p><iframe src="https://evil.com"></iframe>`,
			wantAbsent:   []string{"<iframe", "</iframe>", "evil.com"},
			wantContains: []string{"テスト"},
		},
		{
			name:         "styleタグが除去される",
			input:        `<p>テスト</p><style>body{display:none}</style>`,
			wantAbsent:   []string{"<style", "</style>", "display:none"},
			wantContains: []string{"テスト"},
		},
		{
			name:       "formタグが除去される",
			input:      `<form action="https://evil.com"><input type="text"></form>`,
			wantAbsent: []string{"<form", "</form>", "<input"},
		},
		{
			name:       "objectタグが除去される",
			input:      `<object data="https://evil.com/flash.swf"></object>`,
			wantAbsent: []string{"<object", "</object>", "flash.swf"},
		},
		{
			name:       "embedタグが除去される",
			input:      `<embed src="https://evil.com/plugin">`,
			wantAbsent: []string{"<embed", "plugin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
		})
	}
}

// TestSanitize_OnEventAttributes はon*イベント属性が除去されることを検証する。
func TestSanitize_OnEventAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "onclickが除去される",
			input:      `<p onclick="alert('xss')">テスト</p>`,
			wantAbsent: []string{"onclick", "alert"},
		},
		{
			name:       "onloadが除去される",
			input:      `<img src="https://example.com/img.png" onload="alert('xss')">`,
			wantAbsent: []string{"onload", "alert"},
		},
		{
			name:       "onerrorが除去される",
			input:      `<img src="https://example.com/img.png" onerror="alert('xss')">`,
			wantAbsent: []string{"onerror", "alert"},
		},
		{
			name:       "onmouseoverが除去される",
			input:      `<td onmouseover="alert('xss')">成績評価</td>`,
			wantAbsent: []string{"onmouseover", "alert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

// TestSanitize_ImgHTTPSOnly はimgタグのsrc属性がhttpsスキームのみ許可されることを検証する。
func TestSanitize_ImgHTTPSOnly(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantAbsent   []string
	}{
		{
			name:         "https imgが許可される",
			input:        `<img src="https://example.com/image.png" alt="安全な画像">`,
			wantContains: []string{"<img", "https://example.com/image.png"},
		},
		{
			name:       "http imgが拒否される",
			input:      `<img src="http://example.com/image.png" alt="危険な画像">`,
			wantAbsent: []string{"http://example.com/image.png"},
		},
		{
			name:       "javascript imgが拒否される",
			input:      `<img src="javascript:alert('xss')" alt="XSS">`,
			wantAbsent: []string{"javascript:", "alert"},
		},
		{
			name:       "data URI imgが拒否される",
			input:      `<img src="data:image/png;base64,abc" alt="データ">`,
			wantAbsent: []string{"data:image"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("Sanitize(%q) = %q, expected to contain %q", tt.input, got, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Sanitize(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
		})
	}
}

// TestSanitize_AnchorAttributes はaタグにtarget="_blank"とrel="noopener noreferrer"が自動付与されることを検証する。
func TestSanitize_AnchorAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<a href="https://example.ac.jp" target="_self" rel="nofollow">大学サイト</a>`
	got := sanitizer.Sanitize(input)

	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("aタグにtarget=\"_blank\"が付与されていない: %q", got)
	}
	if strings.Contains(got, `target="_self"`) {
		t.Errorf("target=\"_self\"が残っている: %q", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("relにnoopener noreferrerが付与されていない: %q", got)
	}
}

// TestSanitize_EmptyInput は空文字列の入力を安全に処理できることを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Sanitize("")
	if got != "" {
		t.Errorf("Sanitize(\"\") = %q, expected empty string", got)
	}
}

// TestSanitize_PlainText はプレーンテキストがそのまま通過することを検証する。
func TestSanitize_PlainText(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := "これはプレーンテキストです。HTMLタグを含みません。"
	got := sanitizer.Sanitize(input)
	if got != input {
		t.Errorf("Sanitize(%q) = %q, expected unchanged", input, got)
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力（冪等性）を検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<h2>成績評価</h2><table><tr><td>試験</td><td>70%</td></tr></table><a href="https://example.ac.jp">詳細</a>`

	result1 := sanitizer.Sanitize(input)
	result2 := sanitizer.Sanitize(input)
	result3 := sanitizer.Sanitize(result1) // 二重サニタイズ

	if result1 != result2 {
		t.Errorf("冪等性違反: 1回目=%q, 2回目=%q", result1, result2)
	}
	if result1 != result3 {
		t.Errorf("二重サニタイズで結果が変わった: 1回目=%q, 二重=%q", result1, result3)
	}
}

// TestSanitize_SyllabusPage はシラバスページ風の複合HTMLのサニタイズを検証する。
func TestSanitize_SyllabusPage(t *testing.T) {
	sanitizer := NewContentSanitizer()

	input := `<div class="syllabus">
<h1>データベース論</h1>
<table>
<tr><th>担当教員</th><td>山田太郎</td></tr>
<tr><th>開講時期</th><td>前期 月曜３限</td></tr>
</table>
<script>document.cookie</script>
<h2>授業の到達目標</h2>
<p>リレーショナルモデルと<strong>SQL</strong>を理解する。</p>
<img src="https://example.ac.jp/er.png" alt="ER図" onerror="alert('xss')">
<iframe src="https://evil.com"></iframe>
<style>.hidden{display:none}</style>
</div>`

	got := sanitizer.Sanitize(input)

	allowedParts := []string{
		"<h1>データベース論</h1>",
		"<th>担当教員</th>", "<td>山田太郎</td>",
		"前期 月曜３限",
		"<h2>授業の到達目標</h2>",
		"<strong>SQL</strong>",
		"https://example.ac.jp/er.png",
	}
	for _, part := range allowedParts {
		if !strings.Contains(got, part) {
			t.Errorf("結果に %q が含まれていない: %q", part, got)
		}
	}

	forbiddenParts := []string{
		"<script", "</script>",
		"<iframe", "</iframe>",
		"<style", "</style>",
		"onerror",
		"document.cookie",
		"display:none",
		"evil.com",
		`class="syllabus"`,
	}
	for _, part := range forbiddenParts {
		if strings.Contains(got, part) {
			t.Errorf("結果に禁止要素 %q が含まれている: %q", part, got)
		}
	}
}

// TestContentSanitizerInterface はContentSanitizerServiceインターフェースの適合を検証する。
func TestContentSanitizerInterface(t *testing.T) {
	var _ ContentSanitizerService = NewContentSanitizer()
}
