// Package evaluation scores crisp predictions against binary labels.
package evaluation

import (
	"fmt"
	"strings"
)

// DefaultThreshold binarizes a prediction: at or above it counts as positive.
const DefaultThreshold = 0.5

// Binarize maps pred to 1 when pred >= threshold, else 0.
func Binarize(pred, threshold float64) int {
	if pred >= threshold {
		return 1
	}
	return 0
}

// Confusion is a 2x2 confusion matrix. Rows are actual, columns predicted.
type Confusion struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Add records one (actual, predicted) pair. Any non-zero value is positive.
func (c *Confusion) Add(actual, predicted int) {
	switch {
	case actual != 0 && predicted != 0:
		c.TP++
	case actual != 0:
		c.FN++
	case predicted != 0:
		c.FP++
	default:
		c.TN++
	}
}

// Total is the number of recorded pairs.
func (c Confusion) Total() int { return c.TN + c.FP + c.FN + c.TP }

// Accuracy is (TP+TN)/total, 0 when empty.
func (c Confusion) Accuracy() float64 { return ratio(c.TP+c.TN, c.Total()) }

// Precision is TP/(TP+FP), 0 when nothing was predicted positive.
func (c Confusion) Precision() float64 { return ratio(c.TP, c.TP+c.FP) }

// Recall is TP/(TP+FN), 0 when there are no positives.
func (c Confusion) Recall() float64 { return ratio(c.TP, c.TP+c.FN) }

// F1 is the harmonic mean of precision and recall, 0 when both are 0.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Report is the outcome of Evaluate.
type Report struct {
	Threshold float64   `json:"threshold"`
	Confusion Confusion `json:"confusion"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
}

// Evaluate binarizes preds at threshold and scores them against labels.
func Evaluate(labels []int, preds []float64, threshold float64) (Report, error) {
	if len(labels) != len(preds) {
		return Report{}, fmt.Errorf("evaluate: %d labels but %d predictions", len(labels), len(preds))
	}
	var c Confusion
	for i, l := range labels {
		c.Add(l, Binarize(preds[i], threshold))
	}
	return FromConfusion(c, threshold), nil
}

// FromConfusion derives the scores of c.
func FromConfusion(c Confusion, threshold float64) Report {
	return Report{
		Threshold: threshold,
		Confusion: c,
		Accuracy:  c.Accuracy(),
		Precision: c.Precision(),
		Recall:    c.Recall(),
		F1:        c.F1(),
	}
}

// String renders the report as text, two decimals per score.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Confusion matrix (threshold %.2f):\n", r.Threshold)
	fmt.Fprintf(&b, "            pred nao  pred sim\n")
	fmt.Fprintf(&b, "  real nao  %8d  %8d\n", r.Confusion.TN, r.Confusion.FP)
	fmt.Fprintf(&b, "  real sim  %8d  %8d\n", r.Confusion.FN, r.Confusion.TP)
	fmt.Fprintf(&b, "Accuracy:  %.2f\n", r.Accuracy)
	fmt.Fprintf(&b, "Precision: %.2f\n", r.Precision)
	fmt.Fprintf(&b, "Recall:    %.2f\n", r.Recall)
	fmt.Fprintf(&b, "F1-Score:  %.2f\n", r.F1)
	return b.String()
}
