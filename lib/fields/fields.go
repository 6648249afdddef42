/*package fields holds the generic, name-indexed cell-array containers that a
MeshBlock's physics payload is built from. The physics kernels themselves
(Riemann solver, EOS, field integrators) are out of scope (§1); what the mesh
core owns is the data layout those kernels read and write: a named set of
flattened nx1*nx2*nx3 (or, for face-centered field components, one dimension
wider) real-valued arrays per block, plus the generic transfer/restrict/
prolong operations the refinement cycle needs at coarse-fine interfaces and
the restart codec needs to move bytes.

This generalizes the teacher repo's lib/particles package, which maps field
name to a typed, flat array and knows how to Transfer elements between
index-mapped Particles sets. Conservative variables are always float64 here
(no uint32/uint64/vector particle-ID bookkeeping is needed once the unit of
data is a block's cell array rather than a particle set), so the Field
interface collapses to a single concrete type.
*/
package fields

import "fmt"

// Field is one named, flat cell array belonging to a block (a conserved
// variable, a GR primitive, or a face-centered magnetic-field component).
type Field struct {
	Name string
	Data []float64
}

// Set maps field name to Field, the unit of payload a MeshBlock carries and
// a restart record stores.
type Set map[string]*Field

// NewSet builds an empty Set.
func NewSet() Set { return Set{} }

// Add inserts a field, allocating its array if data is nil.
func (s Set) Add(name string, n int, data []float64) *Field {
	if data == nil {
		data = make([]float64, n)
	}
	f := &Field{Name: name, Data: data}
	s[name] = f
	return f
}

// Names returns the field names in a Set, sorted is left to the caller since
// restart needs a stable, recorded order rather than a sorted one.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s { names = append(names, name) }
	return names
}

// Transfer copies the elements of f at indices 'from' into dest's same-named
// field at indices 'to'. from and to must have equal length; dest must
// already contain a field with this name, created by CreateDestination.
func (f *Field) Transfer(dest Set, from, to []int) error {
	if len(from) != len(to) {
		return fmt.Errorf(
			"'from' index array has length %d, but 'to' has length %d",
			len(from), len(to))
	}
	df, ok := dest[f.Name]
	if !ok {
		return fmt.Errorf("destination set does not contain the field '%s'", f.Name)
	}
	for i := range from {
		df.Data[to[i]] = f.Data[from[i]]
	}
	return nil
}

// CreateDestination creates an output field in dest with this field's name
// and the given length, ready to receive a Transfer.
func (f *Field) CreateDestination(dest Set, n int) {
	dest.Add(f.Name, n, nil)
}

// Restrict averages a fine field's cells down onto a coarse field, block by
// block of size 2^dim, the operation a refinement cycle runs at a
// coarse-fine interface when derefining (fine siblings collapse into a
// single coarse leaf) or when computing a coarse ghost value from a finer
// neighbor. fine must have exactly twice as many cells as coarse along
// each active dimension (2^dim times as many in total); dim is the mesh
// dimensionality (1, 2, or 3).
func Restrict(coarse, fine []float64, dim int, nxc, nyc, nzc int) error {
	nxf, nyf, nzf := scaled(nxc, dim >= 1), scaled(nyc, dim >= 2), scaled(nzc, dim >= 3)
	if len(fine) != nxf*nyf*nzf {
		return fmt.Errorf("fine field has %d cells, want %d (%dx%dx%d)",
			len(fine), nxf*nyf*nzf, nxf, nyf, nzf)
	}
	if len(coarse) != nxc*nyc*nzc {
		return fmt.Errorf("coarse field has %d cells, want %d (%dx%dx%d)",
			len(coarse), nxc*nyc*nzc, nxc, nyc, nzc)
	}

	rx, ry, rz := ratio(dim >= 1), ratio(dim >= 2), ratio(dim >= 3)
	vol := float64(rx * ry * rz)

	for k := 0; k < nzc; k++ {
		for j := 0; j < nyc; j++ {
			for i := 0; i < nxc; i++ {
				sum := 0.0
				for dk := 0; dk < rz; dk++ {
					for dj := 0; dj < ry; dj++ {
						for di := 0; di < rx; di++ {
							fi := i*rx + di
							fj := j*ry + dj
							fk := k*rz + dk
							sum += fine[fk*nxf*nyf+fj*nxf+fi]
						}
					}
				}
				coarse[k*nxc*nyc+j*nxc+i] = sum / vol
			}
		}
	}
	return nil
}

// Prolong injects a coarse field's cells up onto a fine field by piecewise-
// constant replication, the inverse of Restrict, run when a refinement
// cycle splits a leaf (the new children start from the parent's value) or
// when prolongating a coarse neighbor's ghost zone into a finer block's halo.
// True physical prolongation (higher-order interpolation) is a physics-layer
// concern (§1 Non-goals); this provides the zeroth-order data this mesh core
// owns and higher-order kernels may refine in place afterward.
func Prolong(fine, coarse []float64, dim int, nxc, nyc, nzc int) error {
	nxf, nyf, nzf := scaled(nxc, dim >= 1), scaled(nyc, dim >= 2), scaled(nzc, dim >= 3)
	if len(fine) != nxf*nyf*nzf {
		return fmt.Errorf("fine field has %d cells, want %d (%dx%dx%d)",
			len(fine), nxf*nyf*nzf, nxf, nyf, nzf)
	}
	if len(coarse) != nxc*nyc*nzc {
		return fmt.Errorf("coarse field has %d cells, want %d (%dx%dx%d)",
			len(coarse), nxc*nyc*nzc, nxc, nyc, nzc)
	}

	rx, ry, rz := ratio(dim >= 1), ratio(dim >= 2), ratio(dim >= 3)

	for k := 0; k < nzc; k++ {
		for j := 0; j < nyc; j++ {
			for i := 0; i < nxc; i++ {
				v := coarse[k*nxc*nyc+j*nxc+i]
				for dk := 0; dk < rz; dk++ {
					for dj := 0; dj < ry; dj++ {
						for di := 0; di < rx; di++ {
							fi, fj, fk := i*rx+di, j*ry+dj, k*rz+dk
							fine[fk*nxf*nyf+fj*nxf+fi] = v
						}
					}
				}
			}
		}
	}
	return nil
}

func ratio(active bool) int {
	if active { return 2 }
	return 1
}

func scaled(n int, active bool) int {
	if active { return n * 2 }
	return n
}
