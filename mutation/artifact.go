package mutation

import (
	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/pkg/log"
	"github.com/YuminosukeSato/metamorph/transform"
)

// 入力コーパスの隣に書き出される成果物のファイル名
const (
	MetamorphicDataFile = "metamorphic_data.tsv"
	MutamorphicDataFile = "mutamorphic_data.tsv"
)

// WriteTSV は変換済みデータセットを4列のTSVとしてアトミックに書き出します。
func WriteTSV(path string, ds *dataset.TransformedDataset) error {
	return dataset.WriteTransformedTSV(path, ds)
}

// ReadTSV は4列のTSVを読み戻します。行位置からサブセットを復元し、
// 標準カタログの変換名を付与します。
func ReadTSV(path string) (*dataset.TransformedDataset, error) {
	return dataset.ReadTransformedTSV(path, transform.Names(transform.Catalog(nil)))
}

// GenerateFile はコーパスファイルを読み、変換済みデータセットを out に書き出します。
func (g *Generator) GenerateFile(corpusPath, out string, seed int64) (*dataset.TransformedDataset, error) {
	corpus, err := dataset.ReadCorpus(corpusPath)
	if err != nil {
		return nil, err
	}
	ds, err := g.Generate(corpus, seed)
	if err != nil {
		return nil, err
	}
	if err := WriteTSV(out, ds); err != nil {
		return nil, err
	}
	g.Logger.Info("Transformed dataset written", log.PathKey, out, log.SamplesKey, ds.Len())
	return ds, nil
}
