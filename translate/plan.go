package translate

import (
	"errors"
	"io/fs"
	"os"

	"github.com/minios-linux/loksync/jsontree"
	"github.com/minios-linux/loksync/scan"
)

// DocumentPlan describes the work a run would do for one document without
// calling the backend.
type DocumentPlan struct {
	Path   string
	Flat   jsontree.FlatMap
	Unique int
	Err    error
}

// Keys returns the number of translatable leaves.
func (d DocumentPlan) Keys() int { return len(d.Flat) }

// PlanDocuments reads and flattens every document. Read and parse failures
// are recorded per document as *DocumentError.
func PlanDocuments(docs []string) []DocumentPlan {
	plans := make([]DocumentPlan, 0, len(docs))
	for _, doc := range docs {
		plans = append(plans, planDocument(doc))
	}
	return plans
}

func planDocument(doc string) DocumentPlan {
	data, err := os.ReadFile(doc)
	if err != nil {
		return DocumentPlan{Path: doc, Err: &DocumentError{Path: doc, Op: OpRead, Err: err}}
	}
	root, err := jsontree.Parse(data)
	if err != nil {
		return DocumentPlan{Path: doc, Err: &DocumentError{Path: doc, Op: OpParse, Err: err}}
	}
	flat := jsontree.Flatten(root)
	return DocumentPlan{Path: doc, Flat: flat, Unique: len(flat.UniqueValues())}
}

// OutputStatus describes the existing output of one document for one
// language.
type OutputStatus struct {
	Lang   string
	Path   string
	Exists bool
	// Missing counts source keys absent from the output.
	Missing int
	// Extra counts output keys that are not in the source.
	Extra int
	Err   error
}

// Complete reports whether the output exists and has exactly the source keys.
func (s OutputStatus) Complete() bool {
	return s.Exists && s.Err == nil && s.Missing == 0 && s.Extra == 0
}

// InspectOutputs compares the outputs of a planned document against its
// source keys for each language.
func InspectOutputs(sourceDir, outputDir string, plan DocumentPlan, langs []string) []OutputStatus {
	statuses := make([]OutputStatus, 0, len(langs))
	for _, lang := range langs {
		st := OutputStatus{Lang: lang}
		path, err := scan.OutputPath(sourceDir, outputDir, lang, plan.Path)
		if err != nil {
			st.Err = err
			statuses = append(statuses, st)
			continue
		}
		st.Path = path

		root, err := jsontree.ParseFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			st.Missing = len(plan.Flat)
		case err != nil:
			st.Exists = true
			st.Err = err
		default:
			st.Exists = true
			out := jsontree.Flatten(root)
			for key := range plan.Flat {
				if _, ok := out[key]; !ok {
					st.Missing++
				}
			}
			for key := range out {
				if _, ok := plan.Flat[key]; !ok {
					st.Extra++
				}
			}
		}
		statuses = append(statuses, st)
	}
	return statuses
}
