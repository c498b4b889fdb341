package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/metamorph/pkg/atomicfile"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// 一時ファイルに書き込んでからリネームするため、途中で失敗しても
// 既存のファイルが壊れることはない。
//
// 使用例:
//
//	nb := naive_bayes.NewMultinomialNB()
//	// ... モデルの学習 ...
//	err := model.SaveModel(nb, "models/v1/v1_Sentiment_Model.gob")
func SaveModel(model interface{}, filename string) error {
	err := atomicfile.WriteFile(filename, 0o644, func(w io.Writer) error {
		return SaveModelToWriter(model, w)
	})
	if err != nil {
		return errors.Wrapf(err, "save model to %s", filename)
	}
	return nil
}

// LoadModel はファイルからモデルを読み込む。
// ファイルが存在しない場合は kind "model" の MissingArtifactError を返す。
//
// 使用例:
//
//	nb := naive_bayes.NewMultinomialNB()
//	err := model.LoadModel(nb, "models/v1/v1_Sentiment_Model.gob")
func LoadModel(model interface{}, filename string) error {
	return LoadArtifact("model", model, filename)
}

// LoadArtifact は任意のgobアーティファクト（モデル、ベクトライザなど）を読み込む。
// kind は欠損時のエラーに記録される。
func LoadArtifact(kind string, v interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewMissingArtifactError(kind, filename)
		}
		return errors.Wrapf(err, "open %s artifact", kind)
	}
	defer file.Close()

	if err := LoadModelFromReader(v, file); err != nil {
		return errors.Wrapf(err, "load %s artifact %s", kind, filename)
	}
	return nil
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.NewModelError("SaveModelToWriter", "failed to encode model", err)
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.NewModelError("LoadModelFromReader", "failed to decode model", err)
	}
	return nil
}
