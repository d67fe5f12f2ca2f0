// Package datafile loads and saves Dataset values using the same tagged text format
// internal/serialize defines for models, rather than a separate file-format parser.
//
// Grounded on the teacher's cmd/trainer/matches.go Encode/Decode pair: a dataset file
// is just another domain object serialized through the project's own tagged format,
// the way match files are encoded with encoding/gob.
package datafile

import (
	"io"
	"os"

	"github.com/janpfeifer/multiboost/internal/boosterr"
	"github.com/janpfeifer/multiboost/internal/data"
	"github.com/janpfeifer/multiboost/internal/serialize"
)

// Load reads a dataset previously written by Save from path.
func Load(path string) (*data.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, boosterr.WrapLoad(err, "opening dataset %q", path)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes ds to path in the tagged format.
func Save(ds *data.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return boosterr.WrapLoad(err, "creating dataset %q", path)
	}
	defer f.Close()
	return Encode(ds, f)
}

// Encode writes ds to w. <example> blocks carry either a <dense> or <sparse> field,
// never both, mirroring Dataset.Example.IsSparse.
func Encode(ds *data.Dataset, w io.Writer) error {
	wr := serialize.NewWriter(w)
	wr.Open("dataset")
	wr.IntField("numFeatures", ds.NumFeatures)
	wr.StringField("sparse", boolString(ds.Sparse))
	for _, name := range ds.ClassNames {
		wr.StringField("className", name)
	}
	for _, ex := range ds.Examples {
		wr.Open("example")
		wr.StringField("name", ex.Name)
		if ex.IsSparse() {
			indices := make([]float64, len(ex.SparseIdx))
			for i, idx := range ex.SparseIdx {
				indices[i] = float64(idx)
			}
			wr.FloatsField("sparseIdx", indices)
			wr.FloatsField("sparseVal", ex.SparseVal)
		} else {
			wr.FloatsField("dense", ex.Dense)
		}
		ys := make([]float64, len(ex.Labels))
		weights := make([]float64, len(ex.Labels))
		for i, lbl := range ex.Labels {
			ys[i] = float64(lbl.Y)
			weights[i] = lbl.UserWeight
		}
		wr.FloatsField("labelY", ys)
		wr.FloatsField("labelWeight", weights)
		wr.Close("example")
	}
	wr.Close("dataset")
	return wr.Flush()
}

// Decode reads a dataset written by Encode from r.
func Decode(r io.Reader) (*data.Dataset, error) {
	rd := serialize.NewReader(r)
	tok, ok, err := rd.Next()
	if err != nil {
		return nil, err
	}
	if !ok || tok.Tag != "dataset" {
		return nil, boosterr.NewLoad("expected a top-level <dataset> tag")
	}

	var numFeatures int
	var sparse bool
	var classNames []string
	var examples []*data.Example
	for {
		tok, ok, err := rd.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, boosterr.NewLoad("unexpected EOF inside <dataset>")
		}
		if tok.IsClose && tok.Tag == "dataset" {
			break
		}
		switch tok.Tag {
		case "numFeatures":
			numFeatures, err = tok.Int()
			if err != nil {
				return nil, boosterr.WrapLoad(err, "parsing numFeatures")
			}
		case "sparse":
			sparse = tok.Value == "true"
		case "className":
			classNames = append(classNames, tok.Value)
		case "example":
			ex, err := decodeExample(rd)
			if err != nil {
				return nil, err
			}
			examples = append(examples, ex)
		default:
			if !tok.IsLeaf {
				if err := rd.SkipContainer(tok.Tag); err != nil {
					return nil, err
				}
			}
		}
	}

	ds := data.NewDataset(numFeatures, classNames, sparse)
	for _, ex := range examples {
		ds.AddExample(ex)
	}
	return ds, nil
}

func decodeExample(rd *serialize.Reader) (*data.Example, error) {
	ex := &data.Example{}
	var ys, weights []float64
	for {
		tok, ok, err := rd.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, boosterr.NewLoad("unexpected EOF inside <example>")
		}
		if tok.IsClose && tok.Tag == "example" {
			break
		}
		switch tok.Tag {
		case "name":
			ex.Name = tok.Value
		case "dense":
			ex.Dense, err = tok.Floats()
			if err != nil {
				return nil, boosterr.WrapLoad(err, "parsing dense feature vector")
			}
		case "sparseIdx":
			raw, err := tok.Floats()
			if err != nil {
				return nil, boosterr.WrapLoad(err, "parsing sparse indices")
			}
			ex.SparseIdx = make([]int, len(raw))
			for i, v := range raw {
				ex.SparseIdx[i] = int(v)
			}
		case "sparseVal":
			ex.SparseVal, err = tok.Floats()
			if err != nil {
				return nil, boosterr.WrapLoad(err, "parsing sparse values")
			}
		case "labelY":
			ys, err = tok.Floats()
			if err != nil {
				return nil, boosterr.WrapLoad(err, "parsing label signs")
			}
		case "labelWeight":
			weights, err = tok.Floats()
			if err != nil {
				return nil, boosterr.WrapLoad(err, "parsing label weights")
			}
		default:
			if !tok.IsLeaf {
				if err := rd.SkipContainer(tok.Tag); err != nil {
					return nil, err
				}
			}
		}
	}
	ex.Labels = make([]data.Label, len(ys))
	for i := range ex.Labels {
		ex.Labels[i] = data.Label{Y: int8(ys[i]), UserWeight: weights[i]}
	}
	return ex, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
