// Package recorder はテスト・評価結果の指標を JSON ドキュメントに記録します。
//
// ストアは「指標名 → {value, message, category}」の単一ドキュメントで、
// 書き込みのたびに全体を読み込み、該当名を上書きし、全体を書き戻します。
// 書き込みは一時ファイル経由のリネームで行われ、途中で失敗しても既存の
// ドキュメントは壊れません。同時に複数の書き手が存在する場合の整合性は保証しません。
package recorder

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/YuminosukeSato/metamorph/pkg/atomicfile"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/pkg/log"
)

// DefaultPrecision は浮動小数点値を丸める小数点以下の桁数
const DefaultPrecision = 3

// DefaultPath はストアの既定ファイル名
const DefaultPath = "metrics.json"

// Entry はストアの1エントリ。category が null のエントリは Category が空になる。
type Entry struct {
	Value    interface{} `json:"value"`
	Message  string      `json:"message"`
	Category string      `json:"category"`
}

// Document はストア全体
type Document map[string]Entry

// Recorder は指標の書き込み先。評価エンジンはこの能力だけに依存する。
type Recorder interface {
	Record(name string, value interface{}, message, category string) error
}

// Store はファイルに保存される指標ストア
type Store struct {
	Path      string
	Precision int
	Logger    log.Logger
}

// Option は Store の設定関数
type Option func(*Store)

// WithPrecision は丸め桁数を設定する
func WithPrecision(digits int) Option {
	return func(s *Store) {
		s.Precision = digits
	}
}

// WithLogger はロガーを設定する
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		s.Logger = logger
	}
}

// Open は path をストアとして使う Store を作成する。ファイルはまだ存在しなくてよい。
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.NewValidationError("path", "metrics store path must not be empty", path)
	}
	s := &Store{
		Path:      path,
		Precision: DefaultPrecision,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Precision < 0 || s.Precision > 15 {
		return nil, errors.NewValidationError("precision", "must be between 0 and 15", s.Precision)
	}
	if s.Logger == nil {
		s.Logger = log.GetLoggerWithName("recorder")
	}
	return s, nil
}

// Record は指標を1件書き込む（既存の同名エントリは上書きされる）
//
// 値の正規化:
//   - 浮動小数点数は Precision 桁に丸める（NaN と ±Inf は拒否）
//   - bool は "True" / "False" に変換する
//   - 整数と文字列はそのまま保存する
func (s *Store) Record(name string, value interface{}, message, category string) error {
	if name == "" {
		return errors.NewValidationError("name", "metric name must not be empty", name)
	}
	normalized, err := s.normalize(name, value)
	if err != nil {
		return err
	}

	raw, _, err := s.load()
	if err != nil {
		return err
	}
	entry, err := json.Marshal(Entry{Value: normalized, Message: message, Category: category})
	if err != nil {
		return errors.Wrapf(err, "encode metric %s", name)
	}
	// 他のエントリは読み込んだバイト列のまま書き戻す
	raw[name] = entry

	if err := s.write(raw); err != nil {
		s.Logger.Error("Metrics store write failed", err, log.StorePathKey, s.Path)
		return err
	}
	s.Logger.Debug("Metric recorded",
		log.OperationKey, log.OperationRecord,
		log.MetricNameKey, name,
		log.CategoryKey, category,
		log.StorePathKey, s.Path,
	)
	return nil
}

// Load は現在のドキュメントを返す。ファイルがなければ空、解析に失敗した場合は
// CorruptStoreWarning を発行して空として扱う。
func (s *Store) Load() (Document, error) {
	_, doc, err := s.load()
	return doc, err
}

// Get は name のエントリを返す
func (s *Store) Get(name string) (Entry, bool, error) {
	doc, err := s.Load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := doc[name]
	return e, ok, nil
}

// rawDocument はエントリを未解釈のまま保持したドキュメント
type rawDocument map[string]json.RawMessage

func (s *Store) load() (rawDocument, Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return rawDocument{}, Document{}, nil
		}
		return nil, nil, errors.Wrapf(err, "read metrics store %s", s.Path)
	}

	raw, doc, err := decode(data)
	if err != nil {
		errors.Warn(errors.NewCorruptStoreWarning(s.Path, err))
		s.Logger.Warn("Metrics store is corrupt, starting from an empty store", log.StorePathKey, s.Path)
		return rawDocument{}, Document{}, nil
	}
	return raw, doc, nil
}

func decode(data []byte) (rawDocument, Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw rawDocument
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, err
	}
	// ドキュメントの後ろに続くデータは破損として扱う
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after the metrics document")
		}
		return nil, nil, errors.Wrap(err, "trailing data")
	}
	if raw == nil {
		// "null" は空のストアとして扱う
		return rawDocument{}, Document{}, nil
	}

	doc := make(Document, len(raw))
	for name, msg := range raw {
		entryDec := json.NewDecoder(bytes.NewReader(msg))
		entryDec.UseNumber()
		var e Entry
		if err := entryDec.Decode(&e); err != nil {
			return nil, nil, errors.Wrapf(err, "entry %s", name)
		}
		doc[name] = e
	}
	return raw, doc, nil
}

func (s *Store) write(raw rawDocument) error {
	return atomicfile.WriteFile(s.Path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(raw)
	})
}

func (s *Store) normalize(name string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return s.round(name, v)
	case float32:
		return s.round(name, float64(v))
	case bool:
		if v {
			return "True", nil
		}
		return "False", nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, string, json.Number:
		return v, nil
	default:
		return nil, errors.NewValidationError("value", "unsupported metric value type for "+name, value)
	}
}

func (s *Store) round(name string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewValidationError("value", "metric "+name+" must be finite", v)
	}
	scale := math.Pow(10, float64(s.Precision))
	r := math.Round(v*scale) / scale
	if r == 0 {
		// -0 を 0 に正規化する
		r = 0
	}
	return r, nil
}
