package domain

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// FieldChange describes one differing leaf between two transfers.
type FieldChange struct {
	Path string `json:"path"`
	Old  any    `json:"old,omitempty"`
	New  any    `json:"new,omitempty"`
}

// DiffTransfers returns the structural differences between a and b.
func DiffTransfers(a, b *Transfer) []FieldChange {
	var r diffReporter
	cmp.Equal(a, b, cmp.Reporter(&r), cmpopts.EquateEmpty())
	return r.changes
}

type diffReporter struct {
	path    cmp.Path
	changes []FieldChange
}

func (r *diffReporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *diffReporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	r.changes = append(r.changes, FieldChange{
		Path: formatPath(r.path),
		Old:  interfaceOf(vx),
		New:  interfaceOf(vy),
	})
}

func (r *diffReporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

func formatPath(path cmp.Path) string {
	var b strings.Builder
	for _, step := range path {
		switch s := step.(type) {
		case cmp.StructField:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.Name())
		case cmp.SliceIndex:
			fmt.Fprintf(&b, "[%d]", s.Key())
		case cmp.MapIndex:
			fmt.Fprintf(&b, "[%v]", s.Key())
		}
	}
	return b.String()
}

func interfaceOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	return v.Interface()
}
