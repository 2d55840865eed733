package transmission

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// CountMap maps an infector identity to its number of onward transmissions.
// Only identities that were counted at least once are present.
type CountMap struct {
	counts map[string]int
}

// NewCountMap returns an empty CountMap.
func NewCountMap() *CountMap {
	return &CountMap{counts: make(map[string]int)}
}

// Increment adds one to id's count, inserting it at one if absent.
func (m *CountMap) Increment(id string) int {
	m.counts[id]++
	return m.counts[id]
}

// Get returns id's count and whether id is present.
func (m *CountMap) Get(id string) (int, bool) {
	n, ok := m.counts[id]
	return n, ok
}

// Len returns the number of distinct infectors.
func (m *CountMap) Len() int {
	return len(m.counts)
}

// Total returns the sum of all counts.
func (m *CountMap) Total() int {
	total := 0
	for _, n := range m.counts {
		total += n
	}
	return total
}

// Identities returns all infectors in lexical order.
func (m *CountMap) Identities() []string {
	ids := make([]string, 0, len(m.counts))
	for id := range m.counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WriteCounts writes every entry of m as "identity\tcount", sorted by identity.
func WriteCounts(m *CountMap, sink io.Writer) error {
	w := bufio.NewWriter(sink)
	for _, id := range m.Identities() {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", id, m.counts[id]); err != nil {
			return err
		}
	}
	return w.Flush()
}
