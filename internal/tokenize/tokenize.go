package tokenize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// BreakMarker is the explicit line-break marker carried inside subtitle
// text (ASS convention, preserved by the loaders for all formats).
const BreakMarker = "\\N"

// Token is a contiguous sub-span of a line's text. Sep holds the separator
// run that followed the token in the source, so joining Text+Sep across a
// token range reconstructs the original text.
type Token struct {
	Text  string
	Sep   string
	Start int // byte offset of Text within the line
	End   int
}

// Line is the tokenization of one subtitle line. Leading captures
// whitespace preceding the first token.
type Line struct {
	Leading string
	Tokens  []Token
}

// Join reassembles the original line text from the token sequence.
func (l Line) Join() string {
	var sb strings.Builder
	sb.WriteString(l.Leading)
	for _, tok := range l.Tokens {
		sb.WriteString(tok.Text)
		sb.WriteString(tok.Sep)
	}
	return sb.String()
}

// Texts returns just the token texts.
func (l Line) Texts() []string {
	out := make([]string, len(l.Tokens))
	for i, tok := range l.Tokens {
		out[i] = tok.Text
	}
	return out
}

func isBoundaryPunct(r rune) bool {
	switch r {
	case '.', '!', '?', ',', ';', ':', '…',
		'。', '！', '？', '，', '、', '；', '：':
		return true
	}
	return false
}

// Split tokenizes a line under the given rule. Empty input yields no
// tokens. Consecutive punctuation or whitespace collapses into a single
// boundary; no empty tokens are emitted.
func Split(text string, spaceSeparated bool) Line {
	var line Line
	if text == "" {
		return line
	}

	pos := 0
	// Leading whitespace belongs to no token.
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	line.Leading = text[:pos]

	tokStart := pos
	flush := func(end, sepEnd int) {
		if end > tokStart {
			line.Tokens = append(line.Tokens, Token{
				Text:  text[tokStart:end],
				Sep:   text[end:sepEnd],
				Start: tokStart,
				End:   end,
			})
		} else if sepEnd > end && len(line.Tokens) > 0 {
			// Separator with no new token extends the previous one.
			line.Tokens[len(line.Tokens)-1].Sep += text[end:sepEnd]
		}
		tokStart = sepEnd
	}

	// A break marker becomes a trailing marker on the token before it, not
	// a token of its own, unless nothing precedes it.
	attachMarker := func(end int) {
		sepEnd := skipSpace(text, end)
		if pos == tokStart && len(line.Tokens) > 0 {
			prev := &line.Tokens[len(line.Tokens)-1]
			prev.Text += prev.Sep + text[pos:end]
			prev.Sep = text[end:sepEnd]
			prev.End = end
			tokStart = sepEnd
		} else {
			flush(end, sepEnd)
		}
		pos = sepEnd
	}

	for pos < len(text) {
		if strings.HasPrefix(text[pos:], BreakMarker) {
			attachMarker(pos + len(BreakMarker))
			continue
		}
		r, size := utf8.DecodeRuneInString(text[pos:])
		switch {
		case r == '\n':
			attachMarker(pos + size)
		case isBoundaryPunct(r):
			// Consume the whole punctuation run, then trailing whitespace.
			end := pos + size
			for end < len(text) {
				nr, nsize := utf8.DecodeRuneInString(text[end:])
				if !isBoundaryPunct(nr) {
					break
				}
				end += nsize
			}
			sepEnd := skipSpace(text, end)
			flush(end, sepEnd)
			pos = sepEnd
		case unicode.IsSpace(r) && !spaceSeparated:
			sepEnd := skipSpace(text, pos)
			flush(pos, sepEnd)
			pos = sepEnd
		default:
			pos += size
		}
	}
	flush(pos, pos)

	line.Tokens = combineLeadingDash(line.Tokens)
	return line
}

func skipSpace(text string, pos int) int {
	for pos < len(text) {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if !unicode.IsSpace(r) || r == '\n' {
			break
		}
		pos += size
	}
	return pos
}

// combineLeadingDash merges a dialogue dash token with the token that
// follows it, so "- Hello." stays one unit.
func combineLeadingDash(tokens []Token) []Token {
	out := tokens[:0]
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if i+1 < len(tokens) && isDialogueDash(tok.Text) {
			next := tokens[i+1]
			tok = Token{
				Text:  tok.Text + tok.Sep + next.Text,
				Sep:   next.Sep,
				Start: tok.Start,
				End:   next.End,
			}
			i++
		}
		out = append(out, tok)
	}
	return out
}

func isDialogueDash(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == "-" || trimmed == "–" || trimmed == "—"
}

// JoinTokens renders a token-text range as display text: space-joined for
// space-separated languages, directly concatenated otherwise. Break
// markers already embedded in token text are left alone.
func JoinTokens(tokens []string, spaceSeparated bool) string {
	if len(tokens) == 0 {
		return ""
	}
	sep := ""
	if spaceSeparated {
		sep = " "
	}
	return strings.Join(tokens, sep)
}
