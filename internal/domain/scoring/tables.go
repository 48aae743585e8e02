package scoring

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"sync"
)

//go:embed tables/*.csv
var bundledTables embed.FS

// Row is one line of a parameter table. Age is zero in mass-only tables.
type Row struct {
	Age      int
	BodyMass float64
	Mu       float64
	Sigma    float64
	Nu       float64
}

func (r Row) params() Params {
	return Params{Mu: r.Mu, Sigma: r.Sigma, Nu: r.Nu}
}

// Table holds the rows of one (variant, gender) pair. Rows are sorted by
// body mass; age-dependent tables are grouped into contiguous blocks of equal
// age, in ascending age order, each block sorted by body mass.
type Table struct {
	variant Variant
	gender  Gender
	rows    []Row
}

// Variant returns the table's variant.
func (t *Table) Variant() Variant { return t.variant }

// Gender returns the table's gender.
func (t *Table) Gender() Gender { return t.gender }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

type tableKey struct {
	variant Variant
	gender  Gender
}

// Tables is the read-only parameter table store. It is safe for concurrent
// use because nothing mutates it after LoadTables returns.
type Tables struct {
	byKey map[tableKey]*Table
}

// Table returns the table for (v, g).
func (ts *Tables) Table(v Variant, g Gender) (*Table, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, v)
	}
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGender, g)
	}
	t, ok := ts.byKey[tableKey{variant: v, gender: g}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrTableNotFound, v, g)
	}
	return t, nil
}

// EmbeddedTables returns the tables bundled with the binary. They are parsed
// and validated once per process.
var EmbeddedTables = sync.OnceValues(func() (*Tables, error) {
	sub, err := fs.Sub(bundledTables, "tables")
	if err != nil {
		return nil, err
	}
	return LoadTables(sub)
})

// TableFileName returns the file LoadTables reads for (v, g), e.g.
// "masters_f.csv".
func TableFileName(v Variant, g Gender) string {
	return v.String() + "_" + g.fileKey() + ".csv"
}

// LoadTables reads one CSV file per (variant, gender) pair from fsys. Mass-only
// files have the header body_mass,mu,sigma,nu; age-dependent files have
// age,body_mass,mu,sigma,nu.
func LoadTables(fsys fs.FS) (*Tables, error) {
	ts := &Tables{byKey: make(map[tableKey]*Table, len(Variants)*2)}
	for _, v := range Variants {
		for _, g := range []Gender{GenderMale, GenderFemale} {
			name := TableFileName(v, g)
			f, err := fsys.Open(name)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			rows, err := readRows(f, v.AgeDependent())
			_ = f.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			t := &Table{variant: v, gender: g, rows: rows}
			if err := t.validate(); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			ts.byKey[tableKey{variant: v, gender: g}] = t
		}
	}
	return ts, nil
}

func readRows(r io.Reader, ageDependent bool) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	width := 4
	if ageDependent {
		width = 5
	}
	cr.FieldsPerRecord = width

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", ErrInvalidTable, err)
	}
	if ageDependent && header[0] != "age" {
		return nil, fmt.Errorf("%w: first column must be age, got %q", ErrInvalidTable, header[0])
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
		}
		var row Row
		if ageDependent {
			age, err := strconv.Atoi(rec[0])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: age: %w", ErrInvalidTable, line, err)
			}
			row.Age = age
			rec = rec[1:]
		}
		vals := [4]float64{}
		for i := range vals {
			if vals[i], err = strconv.ParseFloat(rec[i], 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidTable, line, err)
			}
		}
		row.BodyMass, row.Mu, row.Sigma, row.Nu = vals[0], vals[1], vals[2], vals[3]
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidTable)
	}
	return rows, nil
}

// validate checks the ordering invariants the resolver relies on.
func (t *Table) validate() error {
	for i, r := range t.rows {
		if !(r.BodyMass > 0) || !(r.Mu > 0) || !(r.Sigma > 0) {
			return fmt.Errorf("%w: row %d: body_mass, mu and sigma must be positive", ErrInvalidTable, i+1)
		}
		if i == 0 {
			continue
		}
		prev := t.rows[i-1]
		switch {
		case r.Age < prev.Age:
			return fmt.Errorf("%w: row %d: age %d after %d", ErrInvalidTable, i+1, r.Age, prev.Age)
		case r.Age == prev.Age && r.BodyMass < prev.BodyMass:
			return fmt.Errorf("%w: row %d: body mass %g after %g", ErrInvalidTable, i+1, r.BodyMass, prev.BodyMass)
		}
	}

	lo, hi, ok := t.variant.AgeBounds()
	if !ok {
		return nil
	}
	for age := lo; age <= hi; age++ {
		if len(ageBucket(t.rows, age)) == 0 {
			return fmt.Errorf("%w: no rows for age %d", ErrInvalidTable, age)
		}
	}
	return nil
}
