// Package codec reads solve requests and writes solve results in the
// comma-separated record format exchanged with callers:
//
//	request:  timeout,depth,h1,...,hN      (timeout in whole seconds, 0 = none)
//	result:   status[,v0_1..v0_N,M_11..M_NN]
//
// The result payload is present only for OptimalFound. The legacy layout
// omits the timeout from requests and reports status 1 for success and 0
// otherwise.
package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gitrdm/lsysinfer/pkg/infer"
)

// ErrIO reports a failure to read or write a record sink. It is returned
// to callers, who decide whether it is fatal.
var ErrIO = errors.New("codec: i/o failure")

// Layout selects the record format.
type Layout int

const (
	// Canonical is timeout,depth,h... in and status {0,2,3} out.
	Canonical Layout = iota
	// Legacy is depth,h... in and status {0,1} out.
	Legacy
)

func (l Layout) String() string {
	if l == Legacy {
		return "legacy"
	}
	return "canonical"
}

// ParseLayout maps "canonical" and "legacy" to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case "", "canonical":
		return Canonical, nil
	case "legacy":
		return Legacy, nil
	}
	return Canonical, fmt.Errorf("%w: unknown layout %q", infer.ErrConfiguration, s)
}

// Request is one decoded input record.
type Request struct {
	Timeout   time.Duration
	Depth     int
	Histogram infer.Histogram
}

// String renders r back into the canonical record.
func (r Request) String() string {
	fields := make([]string, 0, len(r.Histogram)+2)
	fields = append(fields, strconv.Itoa(int(r.Timeout/time.Second)), strconv.Itoa(r.Depth))
	for _, c := range r.Histogram {
		fields = append(fields, strconv.Itoa(c))
	}
	return strings.Join(fields, ",")
}

// ParseRecord decodes the fields of one record. Every problem with the
// record wraps infer.ErrConfiguration.
func ParseRecord(fields []string, layout Layout) (Request, error) {
	head := 2
	if layout == Legacy {
		head = 1
	}
	if len(fields) < head+1 {
		return Request{}, fmt.Errorf("%w: record has %d fields, need at least %d", infer.ErrConfiguration, len(fields), head+1)
	}
	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Request{}, fmt.Errorf("%w: field %d: %v", infer.ErrConfiguration, i+1, err)
		}
		values[i] = v
	}

	var req Request
	if layout == Canonical {
		if values[0] < 0 {
			return Request{}, fmt.Errorf("%w: negative timeout %d", infer.ErrConfiguration, values[0])
		}
		if int64(values[0]) > math.MaxInt64/int64(time.Second) {
			return Request{}, fmt.Errorf("%w: timeout %ds out of range", infer.ErrConfiguration, values[0])
		}
		req.Timeout = time.Duration(values[0]) * time.Second
	}
	req.Depth = values[head-1]
	req.Histogram = infer.Histogram(values[head:])
	if req.Depth < 1 {
		return Request{}, fmt.Errorf("%w: depth %d < 1", infer.ErrConfiguration, req.Depth)
	}
	if err := req.Histogram.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ReadRequest decodes the first record of r.
func ReadRequest(r io.Reader, layout Layout) (Request, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	fields, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Request{}, fmt.Errorf("%w: empty input", infer.ErrConfiguration)
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Request{}, fmt.Errorf("%w: %v", infer.ErrConfiguration, err)
		}
		return Request{}, fmt.Errorf("%w: read request: %v", ErrIO, err)
	}
	return ParseRecord(fields, layout)
}

// ReadRequests decodes every record of r. Record numbers in errors are
// 1-based.
func ReadRequests(r io.Reader, layout Layout) ([]Request, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var reqs []Request
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("%w: %v", infer.ErrConfiguration, err)
			}
			return nil, fmt.Errorf("%w: read requests: %v", ErrIO, err)
		}
		req, err := ParseRecord(fields, layout)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(reqs)+1, err)
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: empty input", infer.ErrConfiguration)
	}
	return reqs, nil
}

// ReadRequestFile decodes the first record of the file at path.
func ReadRequestFile(path string, layout Layout) (Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()
	return ReadRequest(f, layout)
}

// StatusCode returns the wire status of s under layout.
func StatusCode(s infer.Status, layout Layout) int {
	if layout == Legacy {
		if s == infer.OptimalFound {
			return 1
		}
		return 0
	}
	return int(s)
}

// Fields returns the integers of the result record for res.
func Fields(res infer.Result, layout Layout) []int {
	out := []int{StatusCode(res.Status, layout)}
	if res.Status == infer.OptimalFound && res.Solution != nil {
		out = append(out, res.Solution.Axiom...)
		out = append(out, res.Solution.Rules.Flatten()...)
	}
	return out
}

// Encode renders the result record for res, without a trailing newline.
func Encode(res infer.Result, layout Layout) string {
	fields := Fields(res, layout)
	parts := make([]string, len(fields))
	for i, v := range fields {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Write writes the result record for res to w. A failed write wraps ErrIO.
func Write(w io.Writer, res infer.Result, layout Layout) error {
	if _, err := io.WriteString(w, Encode(res, layout)); err != nil {
		return fmt.Errorf("%w: write result: %v", ErrIO, err)
	}
	return nil
}

// WriteFile replaces the file at path with the result record for res.
func WriteFile(path string, res infer.Result, layout Layout) error {
	if err := os.WriteFile(path, []byte(Encode(res, layout)), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// ParseResult decodes a result record for an alphabet of n symbols. The
// solution is nil unless the status denotes success. A legacy success is
// reported as OptimalFound.
func ParseResult(s string, n int, layout Layout) (infer.Status, *infer.Solution, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return 0, nil, fmt.Errorf("%w: result field %d: %v", infer.ErrConfiguration, i+1, err)
		}
		values[i] = v
	}

	var status infer.Status
	switch code := values[0]; {
	case layout == Legacy && code == 1, layout == Canonical && code == int(infer.OptimalFound):
		status = infer.OptimalFound
	case code == int(infer.Infeasible):
		status = infer.Infeasible
	case layout == Canonical && code == int(infer.TimedOut):
		status = infer.TimedOut
	default:
		return 0, nil, fmt.Errorf("%w: unknown %s status %d", infer.ErrConfiguration, layout, code)
	}

	payload := values[1:]
	if status != infer.OptimalFound {
		if len(payload) != 0 {
			return 0, nil, fmt.Errorf("%w: %s result carries a payload", infer.ErrConfiguration, status)
		}
		return status, nil, nil
	}
	if len(payload) != n+n*n {
		return 0, nil, fmt.Errorf("%w: payload has %d values, want %d", infer.ErrConfiguration, len(payload), n+n*n)
	}
	sol := &infer.Solution{Axiom: append(infer.Vector{}, payload[:n]...), Rules: infer.NewMatrix(n)}
	for i, v := range payload[n:] {
		sol.Rules[i/n][i%n] = v
	}
	return status, sol, nil
}
