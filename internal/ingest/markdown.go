// Package ingest はシラバスと講義データの取り込みパイプラインを実装する。
package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	blankLinesRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
	spacesRe     = regexp.MustCompile(` +`)
)

// ConvertToMarkdown はシラバスページのHTMLをMarkdownに変換する。
// 見出し、段落、表、リスト、リンク、強調を対応するMarkdown記法に
// 置き換え、script等の非コンテンツ要素は捨てる。
func ConvertToMarkdown(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	renderNode(&b, doc)

	md := b.String()
	md = blankLinesRe.ReplaceAllString(md, "\n\n")
	md = spacesRe.ReplaceAllString(md, " ")
	return strings.TrimSpace(md), nil
}

func renderNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Button, atom.Form:
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			level := int(n.Data[1] - '0')
			b.WriteString("\n" + strings.Repeat("#", level) + " " + textContent(n) + "\n")
			return
		case atom.P:
			b.WriteString("\n")
			renderChildren(b, n)
			b.WriteString("\n")
			return
		case atom.Table:
			b.WriteString(renderTable(n))
			return
		case atom.Ul:
			b.WriteString(renderList(n, "* "))
			return
		case atom.Ol:
			b.WriteString(renderList(n, "1. "))
			return
		case atom.A:
			href := attrValue(n, "href")
			text := textContent(n)
			if href != "" && text != "" {
				b.WriteString("[" + text + "](" + href + ")")
			} else {
				b.WriteString(text)
			}
			return
		case atom.Strong, atom.B:
			if text := textContent(n); text != "" {
				b.WriteString("**" + text + "**")
			}
			return
		case atom.Em, atom.I:
			if text := textContent(n); text != "" {
				b.WriteString("*" + text + "*")
			}
			return
		case atom.Br:
			b.WriteString("\n")
			return
		}
	}

	renderChildren(b, n)
}

func renderChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, c)
	}
}

// renderTable は表をMarkdownテーブルに変換する。
// 先頭行をヘッダーとして扱い、セルはテキストのみ取り出す。
func renderTable(table *html.Node) string {
	var rows [][]string
	for _, tr := range findAll(table, atom.Tr) {
		var row []string
		for _, cell := range findAll(tr, atom.Th, atom.Td) {
			row = append(row, textContent(cell))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return ""
	}

	var lines []string
	lines = append(lines, "| "+strings.Join(rows[0], " | ")+" |")

	separators := make([]string, len(rows[0]))
	for i := range separators {
		separators[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(separators, " | ")+" |")

	for _, row := range rows[1:] {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}

	return "\n" + strings.Join(lines, "\n") + "\n"
}

// renderList は直下のli要素を1行ずつの箇条書きに変換する。
func renderList(list *html.Node, marker string) string {
	var lines []string
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			lines = append(lines, marker+textContent(c))
		}
	}

	if len(lines) == 0 {
		return ""
	}
	return "\n" + strings.Join(lines, "\n") + "\n"
}

// textContent はノード配下の全テキストを連結し、前後の空白を除いて返す。
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

// findAll はノード配下から指定タグの要素を文書順で収集する。
func findAll(n *html.Node, atoms ...atom.Atom) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range atoms {
				if n.DataAtom == a {
					found = append(found, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return found
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
