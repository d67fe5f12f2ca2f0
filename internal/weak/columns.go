package weak

import "github.com/janpfeifer/multiboost/internal/sortedcol"

// ColumnSetter is implemented by every weak learner whose Train needs the
// pre-built sorted-column view of the active Dataset (every variant that performs a
// threshold search: Stump, Haar, Tree, Product, BanditWrapper). Constant is the only
// shipped Learner that does not need one.
type ColumnSetter interface {
	SetColumns(columns *sortedcol.Set)
}

// WireColumns calls SetColumns on l if it implements ColumnSetter, a no-op otherwise.
func WireColumns(l Learner, columns *sortedcol.Set) {
	if cs, ok := l.(ColumnSetter); ok {
		cs.SetColumns(columns)
	}
}
