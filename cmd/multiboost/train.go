package main

import (
	"context"
	"os"
	"strconv"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/multiboost/internal/boosterr"
	"github.com/janpfeifer/multiboost/internal/config"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/datafile"
	"github.com/janpfeifer/multiboost/internal/outinfo"
	"github.com/janpfeifer/multiboost/internal/serialize"
	"github.com/janpfeifer/multiboost/internal/strong"
	"github.com/janpfeifer/multiboost/internal/weak"
)

// runTrain builds the configured strong-learner variant, trains it against --train
// (and optionally --test for per-iteration test metrics, the --traintest form), and
// serializes the result to --model.
func runTrain(ctx context.Context) error {
	ds, err := datafile.Load(*flagTrain)
	if err != nil {
		return err
	}
	var testSet *data.Dataset
	if *flagTest != "" {
		testSet, err = datafile.Load(*flagTest)
		if err != nil {
			return err
		}
	}

	opts := strong.Options{
		Iterations:       *flagIterations,
		BaseLearnerName:  *flagBaseLearner,
		BaseLearnerCfg:   config.NewFromConfigString(*flagBaseLearnerCfg),
		EdgeOffset:       *flagEdgeOffset,
		EdgeFloor:        *flagEdgeFloor,
		UseConstantGate:  *flagConstant,
		TimeLimit:        minutesToDuration(*flagTimeLimit),
		EarlyStopMinIter: *flagEarlyStopping,
		EarlyStopBeta:    *flagEarlyStopBeta,
		EarlyStopLambda:  *flagEarlyStopLambda,
	}
	opts.BaseLearnerCfg["weightpolicy"] = *flagWeightPolicy
	if *flagEdgeOffset != 0 {
		opts.BaseLearnerCfg["edgeoffset"] = strconv.FormatFloat(*flagEdgeOffset, 'g', -1, 64)
	}

	registry := weak.NewDefaultRegistry()

	var infoWriter *outinfo.Writer
	var infoFile *os.File
	if *flagOutputInfo != "" {
		infoFile, err = os.Create(*flagOutputInfo)
		if err != nil {
			return boosterr.WrapLoad(err, "creating --outputinfo file %q", *flagOutputInfo)
		}
		defer infoFile.Close()
		infoWriter = outinfo.NewWriter(infoFile, outinfo.NewDefaultRegistry(), splitMetricCodes(*flagMetricCodes))
	}

	var resume *strong.Ensemble
	var wrapperTag string
	if *flagResume != "" {
		resume, wrapperTag, err = loadModel(*flagResume, registry)
		if err != nil {
			return err
		}
		klog.Infof("resuming from %q (%d hypotheses already trained)", *flagResume, len(resume.Hypotheses))
	}
	if wrapperTag == "" {
		wrapperTag = "multiboost"
		if *flagStrongLearner == "SoftCascade" || *flagStrongLearner == "VJcascade" || *flagStrongLearner == "VJCascade" {
			wrapperTag = "cascade"
		}
	}

	learner, err := buildLearner(ds, testSet, registry, opts, resume, infoWriter)
	if err != nil {
		return err
	}
	klog.Infof("training %s for %d iterations on %q", learner.Name(), opts.Iterations, *flagTrain)

	ensemble, err := learner.Train(ctx)
	if err != nil {
		return err
	}
	return saveModel(ensemble, wrapperTag, *flagModel)
}

// buildLearner dispatches on --stronglearner, wiring in the cascade-specific flags
// only the cascade variants use.
func buildLearner(ds, testSet *data.Dataset, registry *weak.Registry, opts strong.Options, resume *strong.Ensemble, info *outinfo.Writer) (strong.Learner, error) {
	switch *flagStrongLearner {
	case "AdaBoostMH":
		return &strong.AdaBoostMH{Dataset: ds, TestSet: testSet, Registry: registry, Opts: opts, Info: info, Resume: resume}, nil
	case "ArcGV":
		return &strong.ArcGV{
			AdaBoostMH:  strong.AdaBoostMH{Dataset: ds, TestSet: testSet, Registry: registry, Opts: opts, Info: info, Resume: resume},
			MarginFloor: -0.999,
		}, nil
	case "FilterBoost":
		return &strong.FilterBoost{Dataset: ds, TestSet: testSet, Registry: registry, Opts: opts, Info: info, Seed: *flagSeed}, nil
	case "SoftCascade":
		var pool *data.Dataset
		if *flagBootstrapPool != "" {
			p, err := datafile.Load(*flagBootstrapPool)
			if err != nil {
				return nil, err
			}
			pool = p
		}
		return &strong.SoftCascade{
			Dataset:         ds,
			Registry:        registry,
			Opts:            opts,
			PositiveClass:   *flagPositiveClass,
			TargetDetection: *flagTargetDetection,
			ExpAlpha:        *flagExpAlpha,
			BootstrapPool:   pool,
			BootstrapRate:   *flagBootstrapRate,
		}, nil
	case "VJcascade", "VJCascade":
		var validation *data.Dataset
		if *flagValidation != "" {
			v, err := datafile.Load(*flagValidation)
			if err != nil {
				return nil, err
			}
			validation = v
		}
		return &strong.VJCascade{
			Dataset:       ds,
			Validation:    validation,
			Registry:      registry,
			Opts:          opts,
			PositiveClass: *flagPositiveClass,
			FMax:          *flagFMax,
			DMin:          *flagDMin,
			MaxStageIters: *flagMaxStageIters,
			NumStages:     *flagNumStages,
		}, nil
	default:
		return nil, boosterr.NewConfig("unknown --stronglearner %q", *flagStrongLearner)
	}
}

func loadModel(path string, registry *weak.Registry) (*strong.Ensemble, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", boosterr.WrapLoad(err, "opening model %q", path)
	}
	defer f.Close()
	r := serialize.NewReader(f)
	return strong.Deserialize(r, registry)
}

func saveModel(ensemble *strong.Ensemble, wrapperTag, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return boosterr.WrapLoad(err, "creating model %q", path)
	}
	defer f.Close()
	w := serialize.NewWriter(f)
	ensemble.Serialize(w, wrapperTag)
	if err := w.Flush(); err != nil {
		return boosterr.WrapLoad(err, "writing model %q", path)
	}
	klog.Infof("saved model with %d hypotheses to %q", len(ensemble.Hypotheses), path)
	return nil
}

// minutesToDuration converts --timelimit's minutes into the time.Duration
// strong.Options.TimeLimit expects; 0 or negative disables the budget.
func minutesToDuration(minutes int) time.Duration {
	if minutes <= 0 {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}
