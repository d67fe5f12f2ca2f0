// Command multiboost trains and evaluates multi-class, multi-label boosted ensembles:
// AdaBoost.MH and its arc-gv, FilterBoost, soft-cascade and Viola-Jones-cascade
// variants, plus posteriors/confusion-matrix replay of a saved model.
//
// Grounded on the teacher's cmd/trainer/main.go: a package-level flag var block,
// klog.InitFlags wired into the flag set, must.M/must.M1 for fatal-on-error glue at
// the top level, and a main() that dispatches on which top-level flag was set rather
// than a subcommand framework.
package main

import (
	"context"
	"flag"
	"strings"

	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/janpfeifer/multiboost/internal/profilers"
)

var (
	flagTrain = flag.String("train", "", "dataset file to train a new model on")
	flagTest  = flag.String("test", "", "dataset file for per-iteration test metrics, "+
		"used alongside --train (this is the --traintest form)")
	flagIterations = flag.Int("iterations", 100, "T, number of boosting iterations")
	flagModel      = flag.String("model", "shyp.xml", "output model path for --train, input model path for --posteriors/--cmatrix")
	flagResume     = flag.String("resume", "", "partial model file to resume training from, instead of starting fresh")

	flagStrongLearner = flag.String("stronglearner", "AdaBoostMH",
		"AdaBoostMH|ArcGV|FilterBoost|VJcascade|SoftCascade")
	flagWeightPolicy = flag.String("weightpolicy", "sharepoints",
		"sharepoints|sharelabels|proportional|balanced")
	flagBaseLearner    = flag.String("baselearner", "SingleStump", "weak-learner factory name, see internal/weak.NewDefaultRegistry")
	flagBaseLearnerCfg = flag.String("baselearnerconfig", "", "comma-separated key=value configuration for the weak learner")
	flagEdgeOffset     = flag.Float64("edgeoffset", 0, "theta offset folded into the alpha closed form")
	flagEdgeFloor      = flag.Float64("edgefloor", -1, "iterations with edge <= this are logged and skipped, never abort")
	flagConstant       = flag.Bool("constant", false, "replace h_t with the constant learner whenever its energy is no worse")
	flagTimeLimit      = flag.Int("timelimit", 0, "wall-clock budget in minutes; 0 means no limit")

	flagEarlyStopping   = flag.Int("earlystopping", 0, "minimum iteration before early stopping can trigger; 0 disables it")
	flagEarlyStopBeta   = flag.Float64("earlystopbeta", 0.1, "sliding-window size as a fraction of the current iteration")
	flagEarlyStopLambda = flag.Float64("earlystoplambda", 1.1, "patience multiplier applied to the best iteration seen so far")

	flagPosteriors    = flag.String("posteriors", "", "dataset to classify and emit posteriors for")
	flagPosteriorsOut = flag.String("posteriorsout", "", "output path for --posteriors; empty means stdout")

	flagCMatrix    = flag.String("cmatrix", "", "dataset to classify and build a confusion matrix for")
	flagCMatrixOut = flag.String("cmatrixout", "", "output path for --cmatrix; empty means stdout")

	flagOutputInfo  = flag.String("outputinfo", "", "file to stream per-iteration instrumentation to; empty disables it")
	flagMetricCodes = flag.String("metriccodes", "e01,w01", "comma-separated metric codes, see internal/outinfo.NewDefaultRegistry")

	flagPositiveClass   = flag.Int("positiveclass", 0, "class index cascade variants treat as positive")
	flagTargetDetection = flag.Float64("targetdetection", 0.99, "soft-cascade target detection rate (d-hat)")
	flagExpAlpha        = flag.Float64("expalpha", -1, "soft-cascade rejection-allowance profile bias")
	flagBootstrapPool   = flag.String("bootstrappool", "", "held-out dataset to draw soft-cascade replacement negatives from")
	flagBootstrapRate   = flag.Float64("bootstraprate", 0, "fraction of the current soft-cascade set refilled from --bootstrappool each stage")

	flagValidation    = flag.String("validation", "", "held-out validation dataset for the Viola-Jones cascade's per-stage FPR/TPR check")
	flagFMax          = flag.Float64("fmax", 0.6, "Viola-Jones cascade per-stage max false-positive rate")
	flagDMin          = flag.Float64("dmin", 0.99, "Viola-Jones cascade per-stage min true-positive rate")
	flagMaxStageIters = flag.Int("maxstageiters", 10000, "Viola-Jones cascade max boosting rounds per stage")
	flagNumStages     = flag.Int("numstages", 10, "Viola-Jones cascade number of stages")

	flagSeed = flag.Int64("seed", 1, "RNG seed for FilterBoost's rejection sampling")

	// globalCtx is cancelled when main returns; no interrupt handler cancels it.
	globalCtx = context.Background()
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var cancel func()
	globalCtx, cancel = context.WithCancel(context.Background())
	defer cancel()

	profilers.Setup(globalCtx)
	defer profilers.OnQuit()

	switch {
	case *flagTrain != "":
		must.M(runTrain(globalCtx))
	case *flagPosteriors != "":
		must.M(runPosteriors())
	case *flagCMatrix != "":
		must.M(runCMatrix())
	default:
		klog.Fatalf("nothing to do: set one of --train, --posteriors or --cmatrix")
	}
}

func splitMetricCodes(s string) []string {
	var codes []string
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}
