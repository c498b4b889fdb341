// Package mutation は入力コーパスを4つのサブセットに分割し、
// サブセットごとに異なる変換を適用して変換済みデータセットを生成します。
package mutation

import (
	"math/rand"

	"github.com/YuminosukeSato/metamorph/dataset"
)

// Partition はコーパスをシード付きでシャッフルし、シャッフル後の位置 i を
// サブセット i mod 4 に割り当てます。
//
// 同じコーパス順序とシードに対しては常に同じ結果を返します。
// サブセットは互いに素で全体を覆い、サイズの差は高々1です。
// 入力スライスは変更されません。
func Partition(corpus []dataset.Example, seed int64) [dataset.NumSubsets][]dataset.Example {
	return partition(rand.New(rand.NewSource(seed)), corpus)
}

func partition(rng *rand.Rand, corpus []dataset.Example) [dataset.NumSubsets][]dataset.Example {
	shuffled := make([]dataset.Example, len(corpus))
	copy(shuffled, corpus)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var subsets [dataset.NumSubsets][]dataset.Example
	sizes := dataset.SubsetSizes(len(shuffled))
	for k := range subsets {
		subsets[k] = make([]dataset.Example, 0, sizes[k])
	}
	for i, ex := range shuffled {
		k := i % dataset.NumSubsets
		subsets[k] = append(subsets[k], ex)
	}
	return subsets
}
