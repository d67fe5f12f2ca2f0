package main

import (
	"os"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/multiboost/internal/boosterr"
	"github.com/janpfeifer/multiboost/internal/classify"
	"github.com/janpfeifer/multiboost/internal/datafile"
	"github.com/janpfeifer/multiboost/internal/weak"
)

// runPosteriors replays --model over --posteriors and writes one line per example.
func runPosteriors() error {
	registry := weak.NewDefaultRegistry()
	ensemble, wrapperTag, err := loadModel(*flagModel, registry)
	if err != nil {
		return err
	}
	ds, err := datafile.Load(*flagPosteriors)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *flagPosteriorsOut != "" {
		f, err := os.Create(*flagPosteriorsOut)
		if err != nil {
			return boosterr.WrapLoad(err, "creating --posteriorsout file %q", *flagPosteriorsOut)
		}
		defer f.Close()
		out = f
	}

	c := &classify.Classifier{
		Ensemble:   ensemble,
		NumClasses: ds.NumClasses(),
		Mode:       classify.WinnerTakesAll,
		Cascade:    wrapperTag == "cascade",
		Dataset:    ds,
	}
	classify.Posteriors(out, c, ds)
	return nil
}

// runCMatrix replays --model over --cmatrix and renders a confusion matrix.
func runCMatrix() error {
	registry := weak.NewDefaultRegistry()
	ensemble, wrapperTag, err := loadModel(*flagModel, registry)
	if err != nil {
		return err
	}
	ds, err := datafile.Load(*flagCMatrix)
	if err != nil {
		return err
	}

	out := os.Stdout
	if *flagCMatrixOut != "" {
		f, err := os.Create(*flagCMatrixOut)
		if err != nil {
			return boosterr.WrapLoad(err, "creating --cmatrixout file %q", *flagCMatrixOut)
		}
		defer f.Close()
		out = f
	}

	c := &classify.Classifier{
		Ensemble:   ensemble,
		NumClasses: ds.NumClasses(),
		Mode:       classify.WinnerTakesAll,
		Cascade:    wrapperTag == "cascade",
		Dataset:    ds,
	}
	cm, err := classify.NewConfusionMatrix(c, ds)
	if err != nil {
		return err
	}
	cm.Render(out)
	klog.Infof("accuracy %.4f over %d examples", cm.Accuracy(), ds.NumExamples())
	return nil
}
