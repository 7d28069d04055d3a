package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/mamdani/internal/overtake"
)

// Layout identifies which column set a CSV file uses.
type Layout string

const (
	// LayoutFIS has one column per rule-base input.
	LayoutFIS Layout = "fis"
	// LayoutTimestamped carries two distance readings and their timestamps;
	// the front vehicle speed is derived from the distance change.
	LayoutTimestamped Layout = "timestamped"
	// LayoutSimple carries only distance and own speed; the front vehicle
	// speed is estimated from the safe-distance rule of 5 m per 16 km/h.
	LayoutSimple Layout = "simple"
)

// Column names of the derived layouts.
const (
	ColCurrentTimestamp = "current_timestamp"
	ColNextTimestamp    = "next_timestamp"
	ColInitialDistance  = "initial_distance"
	ColFinalDistance    = "final_distance"
	ColSpeed            = "speed"
)

var (
	ErrNoLabels      = errors.New("dataset has no labeled rows")
	ErrUnknownLayout = errors.New("unrecognized csv layout")
)

// MethodError reports an unsupported balancing method.
type MethodError struct {
	Method string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("unknown balance method %q (want undersample or oversample)", e.Method)
}

// ParseError reports a bad cell.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DetectLayout picks the layout from a header. Timestamp columns win over the
// simple layout, and the FIS layout needs every overtake input.
func DetectLayout(header []string) (Layout, error) {
	has := func(cols ...string) bool {
		for _, c := range cols {
			if !slices.Contains(header, c) {
				return false
			}
		}
		return true
	}
	switch {
	case has(ColCurrentTimestamp, ColNextTimestamp, ColInitialDistance, ColFinalDistance, ColSpeed):
		return LayoutTimestamped, nil
	case has(overtake.Inputs...):
		return LayoutFIS, nil
	case has(overtake.Distance, ColSpeed):
		return LayoutSimple, nil
	}
	return "", fmt.Errorf("%w: header %v", ErrUnknownLayout, header)
}

// ReadCSV parses a CSV with a header row and returns FIS-ready rows.
// Derived layouts are converted: relative_speed is computed and the source
// columns are dropped. A target column, when present, becomes the label.
func ReadCSV(r io.Reader) ([]Row, Layout, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, "", fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	layout, err := DetectLayout(header)
	if err != nil {
		return nil, "", err
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("read line %d: %w", line, err)
		}

		raw := make(map[string]float64, len(header))
		var label *int
		for i, col := range header {
			cell := strings.TrimSpace(rec[i])
			if col == TargetColumn {
				if cell == "" {
					continue
				}
				l, err := parseLabel(cell)
				if err != nil {
					return nil, "", &ParseError{Line: line, Column: col, Err: err}
				}
				label = &l
				continue
			}
			if cell == "" {
				continue
			}
			f, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, "", &ParseError{Line: line, Column: col, Err: err}
			}
			raw[col] = f
		}

		values, err := derive(layout, raw)
		if err != nil {
			return nil, "", &ParseError{Line: line, Column: overtake.RelativeSpeed, Err: err}
		}
		rows = append(rows, Row{Values: values, Label: label})
	}
	return rows, layout, nil
}

func parseLabel(cell string) (int, error) {
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	if f != 0 && f != 1 {
		return 0, fmt.Errorf("target must be 0 or 1, got %s", cell)
	}
	return int(f), nil
}

func derive(layout Layout, raw map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(overtake.Inputs))
	for _, name := range overtake.Inputs {
		if v, ok := raw[name]; ok {
			out[name] = v
		}
	}

	switch layout {
	case LayoutTimestamped:
		dt := raw[ColNextTimestamp] - raw[ColCurrentTimestamp]
		if dt == 0 {
			return nil, errors.New("next_timestamp equals current_timestamp")
		}
		front := (raw[ColInitialDistance] - raw[ColFinalDistance]) / dt
		out[overtake.RelativeSpeed] = raw[ColSpeed] - front
		// The latest reading is the current gap.
		out[overtake.Distance] = raw[ColFinalDistance]

	case LayoutSimple:
		speed := raw[ColSpeed]
		front := FrontSpeedKmh(raw[overtake.Distance], speed*3.6)
		out[overtake.RelativeSpeed] = speed - front/3.6
	}
	return out, nil
}

// FrontSpeedKmh estimates the speed of the vehicle ahead from the gap in
// metres and own speed in km/h. A gap shorter than the safe distance (5 m per
// 16 km/h) means the front vehicle is slower, at the speed for which the gap
// would be safe; otherwise it is assumed to match own speed. Rounded to two
// decimals.
func FrontSpeedKmh(distance, speedKmh float64) float64 {
	safe := 5 * (speedKmh / 16)
	front := speedKmh
	if distance < safe {
		front = distance * 16 / 5
	}
	return round2(front)
}

// WriteCSV writes rows in the FIS layout, columns in overtake.Inputs order,
// followed by target when any row is labeled.
func WriteCSV(w io.Writer, rows []Row) error {
	labeled := slices.ContainsFunc(rows, Row.Labeled)

	header := append([]string(nil), overtake.Inputs...)
	if labeled {
		header = append(header, TargetColumn)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, r := range rows {
		for i, name := range overtake.Inputs {
			v, ok := r.Values[name]
			if !ok || math.IsNaN(v) {
				rec[i] = ""
				continue
			}
			rec[i] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if labeled {
			rec[len(rec)-1] = ""
			if r.Label != nil {
				rec[len(rec)-1] = strconv.Itoa(*r.Label)
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
