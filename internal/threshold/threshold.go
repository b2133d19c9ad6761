// Package threshold parses per-endpoint assertions such as "p95 < 500" and
// checks them against each endpoint result of a replay.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/torosent/webreplay/internal/runner"
)

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string // response_time, requests, duration, status or size
	Aggregate string // p95, rate, total, last, ...
	Operator  string // <, <=, >, >=, == or !=
	Value     float64
	Raw       string
}

func (t Threshold) key() string { return t.Metric + ":" + t.Aggregate }

// Result is the outcome of one threshold on one endpoint.
type Result struct {
	Threshold Threshold
	Target    string
	Actual    float64
	Pass      bool
	Message   string
}

const epsilon = 1e-9

var operators = map[string]func(actual, want float64) bool{
	"<":  func(a, w float64) bool { return a < w },
	"<=": func(a, w float64) bool { return a <= w || math.Abs(a-w) < epsilon },
	">":  func(a, w float64) bool { return a > w },
	">=": func(a, w float64) bool { return a >= w || math.Abs(a-w) < epsilon },
	"==": func(a, w float64) bool { return math.Abs(a-w) < epsilon },
	"!=": func(a, w float64) bool { return math.Abs(a-w) >= epsilon },
}

var grammar = regexp.MustCompile(`^([a-z_][a-z0-9_]*)(?::([a-z0-9]+))?\s*(<=|>=|==|!=|<|>)\s*([0-9.]+)$`)

// Parse reads "metric[:aggregate] operator value". The long forms are
//
//	response_time:{min,p50,p75,p90,p95,max}   milliseconds
//	requests:rate | requests:count
//	duration:total                            milliseconds
//	status:last | size:last
//
// and min, p50, p75, p90, p95, max, rps, duration, status and size are
// accepted on their own.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, errors.New("empty threshold")
	}
	m := grammar.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, errors.Errorf("invalid threshold %q, want metric[:aggregate] operator value, e.g. 'p95 < 500'", s)
	}
	metric, aggregate, op, raw := m[1], m[2], m[3], m[4]

	key := metric + ":" + aggregate
	if aggregate == "" {
		long, ok := shorthands[metric]
		if !ok {
			return Threshold{}, errors.Errorf("unknown metric %q", metric)
		}
		key = long
		metric, aggregate, _ = strings.Cut(long, ":")
	}
	if _, ok := extractors[key]; !ok {
		if knownMetric(metric) {
			return Threshold{}, errors.Errorf("unsupported aggregate %q for %s", aggregate, metric)
		}
		return Threshold{}, errors.Errorf("unknown metric %q", metric)
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Threshold{}, errors.Wrapf(err, "invalid threshold value %q", raw)
	}
	return Threshold{Metric: metric, Aggregate: aggregate, Operator: op, Value: value, Raw: s}, nil
}

// ParseMultiple parses every entry and reports all malformed ones at once.
func ParseMultiple(specs []string) ([]Threshold, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make([]Threshold, 0, len(specs))
	var problems []string
	for i, s := range specs {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		out = append(out, t)
	}
	if len(problems) > 0 {
		return nil, errors.Errorf("parse thresholds: %s", strings.Join(problems, "; "))
	}
	return out, nil
}

// Evaluator checks a fixed set of thresholds against endpoint results.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Len returns the number of thresholds; a nil Evaluator has none.
func (e *Evaluator) Len() int {
	if e == nil {
		return 0
	}
	return len(e.thresholds)
}

// Evaluate returns one Result per threshold, in configuration order.
func (e *Evaluator) Evaluate(res runner.EndpointResult) []Result {
	if e.Len() == 0 {
		return nil
	}
	results := make([]Result, len(e.thresholds))
	for i, t := range e.thresholds {
		results[i] = check(t, res)
	}
	return results
}

func check(t Threshold, res runner.EndpointResult) Result {
	r := Result{Threshold: t, Target: res.Target}
	extract, ok := extractors[t.key()]
	cmp, opOK := operators[t.Operator]
	if !ok || !opOK {
		r.Message = fmt.Sprintf("%s [%s]: cannot evaluate %s %s", t.Raw, res.Target, t.key(), t.Operator)
		return r
	}
	r.Actual = extract(res)
	r.Pass = cmp(r.Actual, t.Value)
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	r.Message = fmt.Sprintf("%s %s [%s]: %.2f %s %.2f", mark, t.Raw, res.Target, r.Actual, t.Operator, t.Value)
	return r
}

// ThresholdError reports every failed assertion of a run.
type ThresholdError struct {
	Failures []Result
}

func (e *ThresholdError) Error() string {
	if len(e.Failures) == 1 {
		return "threshold failed: " + e.Failures[0].Message
	}
	return fmt.Sprintf("%d thresholds failed", len(e.Failures))
}

// Failed filters the failing results.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Pass {
			out = append(out, r)
		}
	}
	return out
}
