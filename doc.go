// Package nutriclass classifies food items for people with diabetes into
// "More Often", "In Moderation" and "Less Often" from their nutrition facts.
//
// nutriclass offers a scikit-learn-like API in Go: the same steps a data
// scientist runs in a notebook (read the CSV, explore it, scale the nutrients,
// encode the label, split, fit a multinomial logistic regression and evaluate)
// are plain packages that can also be used on their own.
//
// # Command line
//
// Install and run the analysis on a CSV whose last column is the class label:
//
//	go install github.com/YuminosukeSato/nutriclass/cmd/nutriclass@latest
//	nutriclass --weights-out weights.json food_items.csv
//
// Settings can come from a YAML file (--config) and are overridden by flags.
//
// # Quick Start
//
//	frame, err := dataset.LoadCSV("food_items.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	X, labels, _ := frame.SplitXY()
//
//	Xs, _ := preprocessing.NewMinMaxScalerDefault().FitTransform(X)
//	y, _ := preprocessing.NewLabelEncoder().FitTransform(labels)
//
//	split, _ := model_selection.TrainTestSplit(mat.DenseCopyOf(Xs), y,
//	    model_selection.WithTestSize(0.2),
//	    model_selection.WithStratify(true),
//	    model_selection.WithRandomState(123),
//	)
//
//	model := linear_model.NewLogisticRegression(
//	    linear_model.WithLRMultiClass("multinomial"),
//	    linear_model.WithLRMaxIter(1000),
//	)
//	_ = model.Fit(split.XTrain, preprocessing.CodesToColumn(split.YTrain))
//
// # Packages
//
//   - dataset: CSV loading, dtypes, head, describe, value counts
//   - chart: class distribution bar chart (gonum/plot)
//   - preprocessing: MinMaxScaler, StandardScaler, LabelEncoder
//   - sklearn/model_selection: stratified train_test_split
//   - sklearn/linear_model: LogisticRegression solved with L-BFGS
//   - metrics: accuracy, precision/recall/F1, confusion matrix, report
//   - pipeline: the end-to-end analysis and its YAML config
//   - core/model: estimator interfaces, state management, exported weights
//   - core/parallel: chunked CPU-parallel loops
//   - pkg/errors, pkg/log: structured errors, warnings and zerolog logging
//
// # Performance
//
// Loss and gradient evaluation is split across CPU cores for large training
// sets. Partial results are reduced in a fixed order so that repeated fits
// produce bit-identical coefficients.
package nutriclass
