// Package transmission parses transmission histories and counts how many onward
// transmissions each infector caused inside a time window.
package transmission

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	txerrors "github.com/adalundhe/txrank/core/errors"
)

// NoneSentinel marks a missing infector (a seed case) or a missing infectee.
const NoneSentinel = "None"

// Record is one parsed line of a transmission history.
type Record struct {
	Infector string
	Infectee string
	Time     float64
	Line     int
}

// IsSeed reports whether the record has no known infector.
func (r Record) IsSeed() bool {
	return r.Infector == NoneSentinel
}

// HasInfectee reports whether the record names someone who was infected.
func (r Record) HasInfectee() bool {
	return r.Infectee != NoneSentinel
}

// ParseRecord parses "infector\tinfectee\ttime". source and lineNo only label errors.
func ParseRecord(source string, lineNo int, line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return Record{}, txerrors.Malformed(source, lineNo, line,
			fmt.Sprintf("expected 3 tab-separated fields, got %d", len(fields)))
	}

	infector := strings.TrimSpace(fields[0])
	infectee := strings.TrimSpace(fields[1])
	if infector == "" {
		return Record{}, txerrors.Malformed(source, lineNo, line, "empty infector")
	}
	if infectee == "" {
		return Record{}, txerrors.Malformed(source, lineNo, line, "empty infectee")
	}

	t, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil || math.IsNaN(t) {
		return Record{}, txerrors.Malformed(source, lineNo, line,
			fmt.Sprintf("transmission time %q is not a number", fields[2]))
	}

	return Record{Infector: infector, Infectee: infectee, Time: t, Line: lineNo}, nil
}
