// Package transform はテキスト分類器のロバスト性を検証するためのメタモルフィック変換を提供します。
//
// 各変換は (text, label) を受け取り、変換後の (text, label) を返す純粋な関数です。
// 乱数はすべて呼び出し側から渡される *rand.Rand から引かれ、変換の内部で
// シードを設定することはありません。
package transform

import (
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// 変換名。TSVアーティファクトの読み戻しや評価結果の内訳に使われます。
const (
	NameSynonymReplacement      = "SynonymReplacement"
	NameNegationInversion       = "NegationInversion"
	NameWordOrderShuffle        = "WordOrderShuffle"
	NameIrrelevantInfoInjection = "IrrelevantInfoInjection"
)

const negationToken = "not"

// Transformation は一つのメタモルフィック関係を表します。
type Transformation interface {
	// Name は変換の識別名を返します。
	Name() string
	// InvertsLabel は変換がラベルを反転させるかを返します。
	InvertsLabel() bool
	// Apply は変換を適用します。空文字列は有効な入力です。
	Apply(rng *rand.Rand, text string, label dataset.Label) (string, dataset.Label, error)
}

// Catalog は4つの変換を宣言順（サブセット0から3に対応）で返します。
// lex が nil の場合は NopLexicon が使われます。
func Catalog(lex Lexicon) []Transformation {
	return []Transformation{
		NewSynonymReplacement(lex),
		NegationInversion{},
		WordOrderShuffle{},
		IrrelevantInfoInjection{},
	}
}

// Lookup は名前から変換を探します。
func Lookup(catalog []Transformation, name string) (Transformation, bool) {
	for _, t := range catalog {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Names は catalog の変換名を順番に返します。
func Names(catalog []Transformation) []string {
	names := make([]string, len(catalog))
	for i, t := range catalog {
		names[i] = t.Name()
	}
	return names
}

func validate(op, text string, label dataset.Label) error {
	if !utf8.ValidString(text) {
		return errors.NewInvalidInputError(op, "text is not valid UTF-8", text)
	}
	if !label.Valid() {
		return errors.NewInvalidInputError(op, "label must be 0 or 1", label)
	}
	return nil
}

// ===========================================================================
//
//	SynonymReplacement
//
// ===========================================================================

// SynonymReplacement は各トークンを語彙リソースから選んだ同義語に置き換えます。
// 同義語がない場合は元のトークンを残します。ラベルは変わりません。
type SynonymReplacement struct {
	lexicon Lexicon
}

// NewSynonymReplacement は新しいSynonymReplacementを作成します。
func NewSynonymReplacement(lex Lexicon) *SynonymReplacement {
	if lex == nil {
		lex = NopLexicon{}
	}
	return &SynonymReplacement{lexicon: lex}
}

// Name implements Transformation.
func (s *SynonymReplacement) Name() string { return NameSynonymReplacement }

// InvertsLabel implements Transformation.
func (s *SynonymReplacement) InvertsLabel() bool { return false }

// Apply implements Transformation.
func (s *SynonymReplacement) Apply(rng *rand.Rand, text string, label dataset.Label) (string, dataset.Label, error) {
	if err := validate("SynonymReplacement.Apply", text, label); err != nil {
		return "", label, err
	}
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if cands := candidates(s.lexicon, tok); len(cands) > 0 {
			tokens[i] = cands[rng.Intn(len(cands))]
		}
	}
	return strings.Join(tokens, " "), label, nil
}

// ===========================================================================
//
//	NegationInversion
//
// ===========================================================================

// NegationInversion は否定語 "not" を除去または挿入し、ラベルを反転させます。
//
// トークン "not" が（大文字小文字を区別して）存在する場合、小文字化して "not"
// になるトークンをすべて除去します。存在しない場合は2トークン以上ならインデックス1に、
// それ以外ならインデックス0に "not" を挿入します。
type NegationInversion struct{}

// Name implements Transformation.
func (NegationInversion) Name() string { return NameNegationInversion }

// InvertsLabel implements Transformation.
func (NegationInversion) InvertsLabel() bool { return true }

// Apply implements Transformation. rng は使用しません。
func (NegationInversion) Apply(_ *rand.Rand, text string, label dataset.Label) (string, dataset.Label, error) {
	if err := validate("NegationInversion.Apply", text, label); err != nil {
		return "", label, err
	}
	tokens := strings.Fields(text)

	if containsExact(tokens, negationToken) {
		kept := tokens[:0]
		for _, tok := range tokens {
			if strings.ToLower(tok) != negationToken {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	} else {
		at := 0
		if len(tokens) >= 2 {
			at = 1
		}
		tokens = append(tokens, "")
		copy(tokens[at+1:], tokens[at:])
		tokens[at] = negationToken
	}

	return strings.Join(tokens, " "), label.Invert(), nil
}

func containsExact(tokens []string, word string) bool {
	for _, tok := range tokens {
		if tok == word {
			return true
		}
	}
	return false
}

// ===========================================================================
//
//	WordOrderShuffle
//
// ===========================================================================

// WordOrderShuffle はトークン順序を並べ替えます。
// 4トークン以上なら先頭と末尾を固定して中間のみ、それ以外は全体を並べ替えます。
type WordOrderShuffle struct{}

// Name implements Transformation.
func (WordOrderShuffle) Name() string { return NameWordOrderShuffle }

// InvertsLabel implements Transformation.
func (WordOrderShuffle) InvertsLabel() bool { return false }

// Apply implements Transformation.
func (WordOrderShuffle) Apply(rng *rand.Rand, text string, label dataset.Label) (string, dataset.Label, error) {
	if err := validate("WordOrderShuffle.Apply", text, label); err != nil {
		return "", label, err
	}
	tokens := strings.Fields(text)
	window := tokens
	if len(tokens) > 3 {
		window = tokens[1 : len(tokens)-1]
	}
	rng.Shuffle(len(window), func(i, j int) {
		window[i], window[j] = window[j], window[i]
	})
	return strings.Join(tokens, " "), label, nil
}

// ===========================================================================
//
//	IrrelevantInfoInjection
//
// ===========================================================================

// NeutralPhrases は感情に影響しない固定文のリストです。
var NeutralPhrases = [...]string{
	"I had cereal today.",
	"It's a sunny day.",
	"The sky is blue.",
	"I walked my dog this morning.",
	"I like coffee.",
	"Water boils at 100 degrees Celsius.",
	"The train arrived on time.",
	"I charged my phone last night.",
	"She went to the grocery store.",
	"It's currently Tuesday.",
	"He wore a blue shirt.",
	"There are 24 hours in a day.",
	"My laptop is on the desk.",
	"Birds can fly.",
	"The light turned green.",
	"They are watching a documentary.",
	"The book is on the shelf.",
	"I took the bus to work.",
	"It rained last night.",
	"The meeting starts at 10 a.m.",
}

// IrrelevantInfoInjection は中立的な一文を末尾に追加します。ラベルは変わりません。
type IrrelevantInfoInjection struct{}

// Name implements Transformation.
func (IrrelevantInfoInjection) Name() string { return NameIrrelevantInfoInjection }

// InvertsLabel implements Transformation.
func (IrrelevantInfoInjection) InvertsLabel() bool { return false }

// Apply implements Transformation. 空白のみのテキストには文のみを返します。
func (IrrelevantInfoInjection) Apply(rng *rand.Rand, text string, label dataset.Label) (string, dataset.Label, error) {
	if err := validate("IrrelevantInfoInjection.Apply", text, label); err != nil {
		return "", label, err
	}
	phrase := NeutralPhrases[rng.Intn(len(NeutralPhrases))]
	if strings.TrimSpace(text) == "" {
		return phrase, label, nil
	}
	return text + " " + phrase, label, nil
}
