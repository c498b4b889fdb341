// Package metamorph measures how robust a text classifier is to edits of its
// input.
//
// A labelled corpus is shuffled and split into four subsets. Each subset gets
// exactly one transformation: synonym replacement, negation inversion, word
// order shuffle or irrelevant information injection. The classifier is then
// scored on the original and transformed texts, and the resulting robustness
// metrics are upserted into a JSON metrics store.
//
// Metamorphic testing scores a classifier that accepts raw text. Mutamorphic
// testing additionally refits a fresh bag-of-words vectorizer on a reference
// corpus before scoring a feature-based model.
//
// # Installation
//
//	go install github.com/YuminosukeSato/metamorph/cmd/metamorph@latest
//
// # Quick Start
//
//	metamorph generate --input data/a1_RestaurantReviews_HistoricDump.tsv
//	metamorph mutamorphic --input data/a1_RestaurantReviews_HistoricDump.tsv --model-version test_model_dev
//	metamorph report --output metrics.png
//
// As a library:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/metamorph/dataset"
//	    "github.com/YuminosukeSato/metamorph/evaluation"
//	    "github.com/YuminosukeSato/metamorph/mutation"
//	    "github.com/YuminosukeSato/metamorph/recorder"
//	)
//
//	func main() {
//	    corpus, err := dataset.ReadCorpus("reviews.tsv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    ds, err := mutation.NewGenerator().Generate(corpus, 42)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    store, err := recorder.Open("metrics.json")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    res, err := evaluation.NewEngine(store).Evaluate(myClassifier, ds)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = res.WriteSummary(os.Stdout)
//	    fmt.Println("run", res.RunID)
//	}
//
// # Packages
//
//   - transform: the transformation catalog and synonym lexicons
//   - mutation: dataset partitioner and mutation pipeline
//   - evaluation: evaluation engine and feature pipeline
//   - metrics: robustness rates and classification accuracy
//   - recorder: JSON metrics store
//   - report: bar charts of stored metrics
//   - dataset: labels, corpus and transformed-dataset TSV I/O
//   - preprocessing: text normalisation and CountVectorizer
//   - sklearn/naive_bayes, sklearn/linear_model: classifiers loadable as model artifacts
//   - core/model, core/parallel: capability interfaces, persistence, parallel helpers
//
// # License
//
// metamorph is released under the MIT License.
package metamorph
