// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ioh5 implements the HDF5-flavoured dataset I/O named in
// spec.md §6: per-particle `Coordinates`/`Masses`/etc. datasets carrying
// `scale_factor` and `Dimension` attributes on read, and one dataset per
// registered output field plus global simulation-time/box/cosmology
// attributes on write.
//
// No HDF5 binding appears anywhere in the retrieved corpus; the closest
// analog actually used by a pack member is `github.com/ctessum/cdf`
// (`spatialmodel-inmap`'s `sr` and grid-I/O packages), a self-describing
// array format with named variables and attributes that covers the same
// ground spec.md §6 asks for. This package is the adapter: nothing
// outside internal/ioh5 imports cdf directly, so a future HDF5 binding
// could replace it without touching callers. See DESIGN.md for the
// named-substitution note.
package ioh5

import (
	"os"
	"sort"

	"github.com/ctessum/cdf"

	"github.com/cpmech/gort/internal/dimval"
	"github.com/cpmech/gort/internal/rterr"
)

// Reader wraps one opened input file.
type Reader struct {
	f  *os.File
	cf *cdf.File
}

// OpenReader opens path for reading and parses its cdf header.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rterr.New(rterr.DegenerateInput, "ioh5: cannot open %q: %v", path, err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, rterr.New(rterr.DegenerateInput, "ioh5: cannot read header of %q: %v", path, err)
	}
	return &Reader{f: f, cf: cf}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// HasDataset reports whether name is a registered variable in this file,
// used to probe the optional source-catalog datasets (spec.md §6).
func (r *Reader) HasDataset(name string) bool {
	for _, v := range r.cf.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// datasetDimension reads a dataset's Dimension attribute, a 3-int32
// (mass, length, time) exponent triple. A dataset with no such attribute
// is treated as dimensionless rather than an error -- the attribute is
// spec.md §6's safeguard against a unit mismatch, not a universal
// requirement on every auxiliary dataset.
func (r *Reader) datasetDimension(name string) dimval.Dimension {
	raw := r.cf.Header.GetAttribute(name, "Dimension")
	ints, ok := raw.([]int32)
	if !ok || len(ints) != 3 {
		return dimval.DimDimensionless
	}
	return dimval.Dimension{Mass: int8(ints[0]), Length: int8(ints[1]), Time: int8(ints[2])}
}

// scaleFactor reads a dataset's scale_factor attribute, defaulting to 1.
func (r *Reader) scaleFactor(name string) float64 {
	raw := r.cf.Header.GetAttribute(name, "scale_factor")
	if fs, ok := raw.([]float64); ok && len(fs) == 1 {
		return fs[0]
	}
	return 1
}

// ReadDataset reads a flat float64 dataset, validating its Dimension
// attribute against want and applying scale_factor (spec.md §6). Use
// ReadVectors for the 2D `Coordinates`-shaped case.
func (r *Reader) ReadDataset(name string, want dimval.Dimension) ([]float64, error) {
	got := r.datasetDimension(name)
	if got != want {
		return nil, rterr.New(rterr.DimensionMismatch,
			"ioh5: dataset %q has dimension %v, want %v", name, got, want)
	}
	raw, err := r.readRaw(name)
	if err != nil {
		return nil, err
	}
	if scale := r.scaleFactor(name); scale != 1 {
		for i := range raw {
			raw[i] *= scale
		}
	}
	return raw, nil
}

// readRaw reads a variable's full contents and converts to []float64
// regardless of whether it was stored as float32 or float64.
func (r *Reader) readRaw(name string) ([]float64, error) {
	rd := r.cf.Reader(name, nil, nil)
	buf := rd.Zero(-1)
	if _, err := rd.Read(buf); err != nil {
		return nil, rterr.New(rterr.DegenerateInput, "ioh5: reading dataset %q: %v", name, err)
	}
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, rterr.New(rterr.DegenerateInput, "ioh5: dataset %q has unsupported element type %T", name, buf)
	}
}

// ReadVectors reads an N-by-dim dataset (e.g. `Coordinates`) and reshapes
// it into N vectors of length dim, zero-padded if dim < 3.
func (r *Reader) ReadVectors(name string, want dimval.Dimension, dim int) ([][3]float64, error) {
	flat, err := r.ReadDataset(name, want)
	if err != nil {
		return nil, err
	}
	if len(flat)%dim != 0 {
		return nil, rterr.New(rterr.DegenerateInput,
			"ioh5: dataset %q length %d is not a multiple of dim %d", name, len(flat), dim)
	}
	n := len(flat) / dim
	out := make([][3]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			out[i][j] = flat[i*dim+j]
		}
	}
	return out, nil
}

// Shrink keeps every n-th row of vecs, per the `shrink_factor` attribute
// (spec.md §6). n <= 1 is a no-op.
func Shrink(vecs [][3]float64, n int) [][3]float64 {
	if n <= 1 {
		return vecs
	}
	out := make([][3]float64, 0, len(vecs)/n+1)
	for i := 0; i < len(vecs); i += n {
		out = append(out, vecs[i])
	}
	return out
}

// ShrinkFloat64 keeps every n-th element of vals, mirroring Shrink for
// scalar per-particle fields read alongside Coordinates.
func ShrinkFloat64(vals []float64, n int) []float64 {
	if n <= 1 {
		return vals
	}
	out := make([]float64, 0, len(vals)/n+1)
	for i := 0; i < len(vals); i += n {
		out = append(out, vals[i])
	}
	return out
}

// SourceCatalog holds the optional source-specific fields spec.md §6
// names: stellar-population metallicity and formation time for
// star-forming sources, and black-hole accretion rate for AGN sources.
// Each slice is nil if the underlying dataset is absent from the file.
type SourceCatalog struct {
	GFMMetallicity          []float64
	GFMStellarFormationTime []float64
	BHMdot                  []float64
}

// ReadSourceCatalog reads whichever of the three optional source-catalog
// datasets are present in r, applying shrinkFactor uniformly so the
// catalog stays aligned with the Coordinates/Masses rows it annotates.
func (r *Reader) ReadSourceCatalog(shrinkFactor int) (SourceCatalog, error) {
	var sc SourceCatalog
	fields := []struct {
		name string
		dim  dimval.Dimension
		dst  *[]float64
	}{
		{"GFM_Metallicity", dimval.DimDimensionless, &sc.GFMMetallicity},
		{"GFM_StellarFormationTime", dimval.DimTime, &sc.GFMStellarFormationTime},
		{"BH_Mdot", dimval.DimMassRate, &sc.BHMdot},
	}
	for _, f := range fields {
		if !r.HasDataset(f.name) {
			continue
		}
		vals, err := r.ReadDataset(f.name, f.dim)
		if err != nil {
			return sc, err
		}
		*f.dst = ShrinkFloat64(vals, shrinkFactor)
	}
	return sc, nil
}

// Writer accumulates one output file's registered fields and writes them
// in a single Define/Create/Write/UpdateNumRecs pass, the same shape as
// the teacher corpus's CTMData.Write (spatialmodel-inmap/vargrid.go).
type Writer struct {
	path     string
	n           int // number of rows (particles) along the primary dimension
	fields      map[string][]float64
	globalAttrs map[string]interface{}
}

// NewWriter begins an output file for n rows.
func NewWriter(path string, n int) *Writer {
	return &Writer{
		path:        path,
		n:           n,
		fields:      make(map[string][]float64),
		globalAttrs: make(map[string]interface{}),
	}
}

// SetField registers one per-particle field to be written; data must
// have length w.n.
func (w *Writer) SetField(name string, data []float64) error {
	if len(data) != w.n {
		return rterr.New(rterr.DegenerateInput,
			"ioh5: field %q has %d rows, writer expects %d", name, len(data), w.n)
	}
	w.fields[name] = data
	return nil
}

// SetGlobalAttr records a global attribute -- simulation time, box
// extent, cosmology (spec.md §6).
func (w *Writer) SetGlobalAttr(name string, value interface{}) {
	w.globalAttrs[name] = value
}

// Flush writes the header and every registered field to disk.
func (w *Writer) Flush() error {
	names := make([]string, 0, len(w.fields))
	for name := range w.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	hdr := cdf.NewHeader([]string{"particle"}, []int{w.n})
	for name, val := range w.globalAttrs {
		hdr.AddAttribute("", name, val)
	}
	for _, name := range names {
		hdr.AddVariable(name, []string{"particle"}, []float64{0})
	}
	hdr.Define()

	f, err := os.Create(w.path)
	if err != nil {
		return rterr.New(rterr.DegenerateInput, "ioh5: cannot create %q: %v", w.path, err)
	}
	defer f.Close()

	cf, err := cdf.Create(f, hdr)
	if err != nil {
		return rterr.New(rterr.DegenerateInput, "ioh5: cannot write header of %q: %v", w.path, err)
	}
	for _, name := range names {
		writer := cf.Writer(name, []int{0}, []int{w.n})
		if _, err := writer.Write(w.fields[name]); err != nil {
			return rterr.New(rterr.DegenerateInput, "ioh5: writing field %q to %q: %v", name, w.path, err)
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		return rterr.New(rterr.DegenerateInput, "ioh5: finalizing %q: %v", w.path, err)
	}
	return nil
}
