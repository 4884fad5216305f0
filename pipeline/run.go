// Package pipeline runs the nutrition classification analysis end to end:
// load, explore, scale, encode, split, train and evaluate.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/YuminosukeSato/nutriclass/chart"
	"github.com/YuminosukeSato/nutriclass/core/model"
	"github.com/YuminosukeSato/nutriclass/dataset"
	"github.com/YuminosukeSato/nutriclass/metrics"
	"github.com/YuminosukeSato/nutriclass/pkg/errors"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
	"github.com/YuminosukeSato/nutriclass/preprocessing"
	"github.com/YuminosukeSato/nutriclass/sklearn/linear_model"
	"github.com/YuminosukeSato/nutriclass/sklearn/model_selection"
	"gonum.org/v1/gonum/mat"
)

// Result holds everything a Run produced.
type Result struct {
	Frame           *dataset.Frame
	FeatureColumns  []string
	Scaler          model.InverseTransformer
	Encoder         *preprocessing.LabelEncoder
	Split           *model_selection.Split
	Model           *linear_model.LogisticRegression
	Predictions     []int
	Evaluation      *metrics.Evaluation
	ConfusionMatrix *mat.Dense
	Report          string
}

type runner struct {
	cfg    Config
	out    io.Writer
	logger log.Logger
	res    *Result

	features *mat.Dense
	labels   []string
	scaled   *mat.Dense
	encoded  []int
}

// Run executes every stage in order, printing each view to out. The context
// is checked before each stage.
func Run(ctx context.Context, cfg Config, out io.Writer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &runner{
		cfg:    cfg,
		out:    out,
		logger: log.GetLoggerWithName("pipeline"),
		res:    &Result{},
	}

	stages := []struct {
		name  string
		phase string
		fn    func() error
	}{
		{"load", log.PhaseLoading, r.load},
		{"explore", log.PhaseLoading, r.explore},
		{"chart", log.PhaseLoading, r.chart},
		{"scale", log.PhasePreprocessing, r.scale},
		{"encode", log.PhasePreprocessing, r.encode},
		{"split", log.PhasePreprocessing, r.split},
		{"train", log.PhaseTraining, r.train},
		{"evaluate", log.PhaseEvaluation, r.evaluate},
		{"export", log.PhaseEvaluation, r.export},
	}

	start := time.Now()
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return r.res, errors.Wrapf(err, "pipeline stopped before %s", s.name)
		}
		stageStart := time.Now()
		if err := errors.SafeExecute("pipeline."+s.name, s.fn); err != nil {
			r.logger.Error("Stage failed", err, log.PhaseKey, s.phase, log.OperationKey, s.name)
			return r.res, errors.Wrapf(err, "pipeline stage %s", s.name)
		}
		r.logger.Debug("Stage completed",
			log.PhaseKey, s.phase,
			log.OperationKey, s.name,
			log.DurationMsKey, time.Since(stageStart).Milliseconds(),
		)
	}
	r.logger.Info("Pipeline completed",
		log.AccuracyKey, r.res.Evaluation.Accuracy,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return r.res, nil
}

func (r *runner) load() error {
	frame, err := dataset.LoadCSV(r.cfg.DataPath)
	if err != nil {
		return err
	}
	X, labels, err := frame.SplitXY()
	if err != nil {
		return err
	}
	r.res.Frame = frame
	r.res.FeatureColumns = frame.FeatureColumns()
	r.features, r.labels = X, labels
	return nil
}

func (r *runner) explore() error {
	f := r.res.Frame

	fmt.Fprint(r.out, "\nData types:\n\n")
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, ct := range f.DTypes() {
		fmt.Fprintf(tw, "%s\t%s\n", ct.Name, ct.Kind)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.cfg.Head > 0 {
		fmt.Fprintf(r.out, "\nFirst %d food items:\n\n", r.cfg.Head)
		if _, err := f.Head(r.cfg.Head).WriteTo(r.out); err != nil {
			return err
		}
	}

	fmt.Fprint(r.out, "\nFeature Columns:\n\n")
	fmt.Fprintln(r.out, strings.Join(quoteAll(r.res.FeatureColumns), ", "))

	fmt.Fprint(r.out, "\nDescriptive statistics\n\n")
	desc, err := f.Describe()
	if err != nil {
		return err
	}
	if _, err := desc.WriteTo(r.out); err != nil {
		return err
	}

	counts, err := f.ValueCounts(f.LabelColumn())
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out)
	return dataset.WriteValueCounts(r.out, f.LabelColumn(), counts, true)
}

func (r *runner) chart() error {
	if r.cfg.ChartPath == "" {
		return nil
	}
	f := r.res.Frame
	counts, err := f.ValueCounts(f.LabelColumn())
	if err != nil {
		return err
	}
	p, err := chart.ClassDistribution(counts, chart.WithXLabel(f.LabelColumn()))
	if err != nil {
		return err
	}
	if err := chart.SavePNG(p, r.cfg.ChartPath); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\nClass distribution chart saved to %s\n", r.cfg.ChartPath)
	return nil
}

func (r *runner) scale() error {
	scaler, err := preprocessing.NewScaler(r.cfg.Scaler)
	if err != nil {
		return err
	}
	scaled, err := scaler.FitTransform(r.features)
	if err != nil {
		return err
	}
	r.res.Scaler = scaler
	r.scaled = mat.DenseCopyOf(scaled)
	fmt.Fprintf(r.out, "\nThe range of feature inputs are within %v to %v\n", mat.Min(r.scaled), mat.Max(r.scaled))
	return nil
}

func (r *runner) encode() error {
	enc := preprocessing.NewLabelEncoder()
	codes, err := enc.FitTransform(r.labels)
	if err != nil {
		return err
	}
	counts, err := enc.Counts(codes)
	if err != nil {
		return err
	}
	r.res.Encoder = enc
	r.encoded = codes

	fmt.Fprint(r.out, "\nEncoded classes:\n\n")
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "code\tclass\tcount")
	for code, class := range enc.Classes() {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", code, class, counts[code])
	}
	return tw.Flush()
}

func (r *runner) split() error {
	split, err := model_selection.TrainTestSplit(r.scaled, r.encoded,
		model_selection.WithTestSize(r.cfg.TestSize),
		model_selection.WithRandomState(r.cfg.RandomState),
		model_selection.WithStratify(r.cfg.Stratify),
	)
	if err != nil {
		return err
	}
	r.res.Split = split
	rows, cols := split.XTrain.Dims()
	fmt.Fprintf(r.out, "\nTraining dataset shape, X_train: (%d, %d)\n", rows, cols)
	return nil
}

func (r *runner) train() error {
	m := r.cfg.Model
	lr := linear_model.NewLogisticRegression(
		linear_model.WithLRPenalty(m.Penalty),
		linear_model.WithLRC(m.C),
		linear_model.WithLRMultiClass(m.MultiClass),
		linear_model.WithLRSolver(m.Solver),
		linear_model.WithLRMaxIter(m.MaxIter),
		linear_model.WithLRTol(m.Tol),
		linear_model.WithLRClassWeight(m.ClassWeight),
		linear_model.WithLogisticFitIntercept(m.FitIntercept),
		linear_model.WithLRRandomState(r.cfg.RandomState),
	)
	if err := lr.Fit(r.res.Split.XTrain, preprocessing.CodesToColumn(r.res.Split.YTrain)); err != nil {
		return err
	}
	r.res.Model = lr
	return nil
}

func (r *runner) evaluate() error {
	pred, err := r.res.Model.Predict(r.res.Split.XTest)
	if err != nil {
		return err
	}
	r.res.Predictions = preprocessing.ColumnToCodes(pred)

	yTrue := metrics.IntVector(r.res.Split.YTest)
	yPred, err := metrics.ColumnVector(pred)
	if err != nil {
		return err
	}
	ev, err := metrics.EvaluateMetrics(yTrue, yPred)
	if err != nil {
		return err
	}
	r.res.Evaluation = ev
	fmt.Fprintf(r.out, "\n%s\n", ev)

	classes := r.res.Encoder.Classes()
	labels := make([]int, len(classes))
	for i := range labels {
		labels[i] = i
	}
	cm, err := metrics.ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return err
	}
	r.res.ConfusionMatrix = cm
	fmt.Fprintf(r.out, "\nConfusion matrix:\n\n%v\n", mat.Formatted(cm))

	report, err := metrics.ClassificationReport(yTrue, yPred, classes, metrics.WithLabels(labels...))
	if err != nil {
		return err
	}
	r.res.Report = report
	fmt.Fprintf(r.out, "\n%s", report)
	return nil
}

func (r *runner) export() error {
	if r.cfg.WeightsPath == "" {
		return nil
	}
	w, err := r.res.Model.ExportWeights(r.res.Encoder.Classes(), r.res.FeatureColumns)
	if err != nil {
		return err
	}
	if err := w.WriteFile(r.cfg.WeightsPath); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "\nWeights written to %s\n", r.cfg.WeightsPath)
	return nil
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "'" + n + "'"
	}
	return out
}
