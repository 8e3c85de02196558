// Package namedir assigns, validates, and renames the human-readable
// display names clients are known by, and holds the fixed default-name
// pool new clients draw from before they pick something of their own.
package namedir

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	log "github.com/rqnio/padgate/pkg/minilog"
)

// Sentinel is returned by Get for an id with no known name.
const Sentinel = "Nullephant"

// Directory holds the two inverse maps plus the sequence counter used to
// generate default names. Safe for concurrent use, though the gateway's
// server loop, including the _print control command, only ever touches it
// from one goroutine.
type Directory struct {
	mu sync.Mutex

	nameByID      map[string]string
	idByLowerName map[string]string
	nextSeq       uint64
}

func New() *Directory {
	return &Directory{
		nameByID:      make(map[string]string),
		idByLowerName: make(map[string]string),
	}
}

// AssignedName computes the deterministic default name for sequence n:
// Names[n mod 100], with the quotient of n/100 appended once n reaches 100,
// so the pool never runs out even after it wraps.
func AssignedName(n uint64) string {
	name := Names[n%100]
	if n >= 100 {
		name += strconv.FormatUint(n/100, 10)
	}
	return name
}

// Add assigns a fresh default name to id, advancing the sequence counter
// past any name already taken by an earlier rename. It rejects a
// duplicate id with a warning and returns an error.
func (d *Directory) Add(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.nameByID[id]; exists {
		log.Warn("namedir: refusing to add duplicate id %v", id)
		return fmt.Errorf("id %v already registered", id)
	}

	for {
		name := AssignedName(d.nextSeq)
		d.nextSeq++

		lower := strings.ToLower(name)
		if _, taken := d.idByLowerName[lower]; taken {
			continue
		}

		d.nameByID[id] = name
		d.idByLowerName[lower] = id
		log.Debug("namedir: assigned default name %v to %v", name, id)
		return nil
	}
}

// TryChange validates and applies a rename request. The cleaned name, not
// the raw requested string, is what gets stored in both maps -- storing
// the raw string would let a client end up displayed under one spelling
// while a same-named lookup resolves under another, breaking the
// maps' invariant that they are exact inverses of each other.
func (d *Directory) TryChange(id, requested string) {
	cleaned := CleanName(requested)
	if cleaned == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	lower := strings.ToLower(cleaned)

	if owner, exists := d.idByLowerName[lower]; exists && owner != id {
		log.Warn("namedir: %v cannot take name %q, already owned by %v", id, cleaned, owner)
		return
	}

	if old, had := d.nameByID[id]; had {
		delete(d.idByLowerName, strings.ToLower(old))
	}

	d.nameByID[id] = cleaned
	d.idByLowerName[lower] = id
}

// Get returns id's stored display name, or Sentinel with a warning if id
// is unknown.
func (d *Directory) Get(id string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	name, ok := d.nameByID[id]
	if !ok {
		log.Warn("namedir: no name for unknown id %v, returning sentinel", id)
		return Sentinel
	}
	return name
}

// Remove drops id from both maps, e.g. when its logical client dies.
func (d *Directory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name, ok := d.nameByID[id]; ok {
		delete(d.idByLowerName, strings.ToLower(name))
		delete(d.nameByID, id)
	}
}

// Print dumps both maps to standard output, for the "_print" control command.
func (d *Directory) Print() {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintln(os.Stdout, "name_by_id:")
	for id, name := range d.nameByID {
		fmt.Fprintf(os.Stdout, "  %v -> %v\n", id, name)
	}
	fmt.Fprintln(os.Stdout, "id_by_lower_name:")
	for lower, id := range d.idByLowerName {
		fmt.Fprintf(os.Stdout, "  %v -> %v\n", lower, id)
	}
}
