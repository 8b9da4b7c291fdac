// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	uistyles "github.com/codebrain/codebrain-tui/internal/ui/styles"
)

// RenderCodeBlock syntax-highlights a code snippet for terminal display.
// lang may be empty; the lexer is then guessed from the content.
func RenderCodeBlock(theme *uistyles.Theme, code, lang string, width int) string {
	styleName := theme.SyntaxTheme
	if styleName == "" {
		styleName = "monokai"
	}
	highlighted := highlight(code, lang, styleName)

	var sb strings.Builder
	if lang != "" {
		sb.WriteString(theme.CodeLangBadge.Render(lang))
		sb.WriteString("\n")
	}
	sb.WriteString(theme.CodeBlock.Width(width - 2).Render(highlighted))
	return sb.String()
}

// highlight runs chroma over the snippet, falling back to plain text.
func highlight(code, lang, styleName string) string {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	style := styles.Get(styleName)
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return code
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(sb.String(), "\n")
}
