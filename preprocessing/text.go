package preprocessing

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// englishStopWords はNLTKの英語ストップワードリストから否定語 "not" を除いたもの。
// 否定はセンチメントを反転させるため語彙に残す。
var englishStopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		i me my myself we our ours ourselves you you're you've you'll you'd your yours
		yourself yourselves he him his himself she she's her hers herself it it's its
		itself they them their theirs themselves what which who whom this that that'll
		these those am is are was were be been being have has had having do does did
		doing a an the and but if or because as until while of at by for with about
		against between into through during before after above below to from up down
		in out on off over under again further then once here there when where why how
		all any both each few more most other some such no nor only own same so than
		too very s t can will just don don't should should've now d ll m o re ve y ain
		aren aren't couldn couldn't didn didn't doesn doesn't hadn hadn't hasn hasn't
		haven haven't isn isn't ma mightn mightn't mustn mustn't needn needn't shan
		shan't shouldn shouldn't wasn wasn't weren weren't won won't wouldn wouldn't`) {
		englishStopWords[w] = struct{}{}
	}
}

// TextPreprocessor はレビュー文をベクトル化の前に正規化する。
//
// 処理内容:
//   - 英字以外を空白に置換し、小文字化する
//   - 英語のストップワードを除去する（"not" は残す）
//   - Snowball (Porter2) ステマーで語幹化する
type TextPreprocessor struct {
	// KeepStopWords が true の場合、ストップワード除去を行わない
	KeepStopWords bool
}

// NewTextPreprocessor はデフォルト設定の TextPreprocessor を作成する
func NewTextPreprocessor() *TextPreprocessor {
	return &TextPreprocessor{}
}

// Process は1件のテキストを正規化する
func (p *TextPreprocessor) Process(text string) string {
	letters := strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	words := strings.Fields(letters)
	out := words[:0]
	for _, w := range words {
		if !p.KeepStopWords {
			if _, stop := englishStopWords[w]; stop {
				continue
			}
		}
		stem, err := snowball.Stem(w, "english", true)
		if err != nil {
			stem = w
		}
		out = append(out, stem)
	}
	return strings.Join(out, " ")
}

// ProcessAll は各テキストに Process を適用する
func (p *TextPreprocessor) ProcessAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = p.Process(t)
	}
	return out
}
