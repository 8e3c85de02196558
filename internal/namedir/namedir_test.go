package namedir

import (
	"fmt"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_FirstClientGetsFirstDefaultName(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("0x42-7"))
	assert.Equal(t, "Alligator", d.Get("0x42-7"))
}

// Once the sequence wraps past the pool's length, a client's default name
// gets the quotient appended: the 101st client (seq=100) is "Alligator1",
// not a second bare "Alligator".
func TestAdd_DefaultNameWrapsWithSuffix(t *testing.T) {
	d := New()
	d.nextSeq = 100

	require.NoError(t, d.Add(idN(100)))
	assert.Equal(t, "Alligator1", d.Get(idN(100)))
}

// If another client already renamed itself to the name a wrapped sequence
// index would otherwise produce, that index is skipped in favor of the
// next available name.
func TestAdd_SkipsDefaultNameTakenByRename(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("early-renamer"))
	d.TryChange("early-renamer", "Alligator1")
	require.Equal(t, "Alligator1", d.Get("early-renamer"))

	d.nextSeq = 100
	require.NoError(t, d.Add(idN(100)))
	assert.NotEqual(t, "Alligator1", d.Get(idN(100)))
	assert.Equal(t, "Bear1", d.Get(idN(100)))
}

// The two maps stay inverses of each other modulo case after a mix of
// adds and renames, and the sequence counter never goes backward.
func TestDirectory_MapsStayInverseAcrossAddsAndRenames(t *testing.T) {
	d := New()
	for i := 0; i < 250; i++ {
		require.NoError(t, d.Add(idN(i)))
	}

	d.mu.Lock()
	seqAfterAdds := d.nextSeq
	d.mu.Unlock()

	d.TryChange(idN(0), "Somebody")
	d.TryChange(idN(1), "alligator")

	d.mu.Lock()
	for id, name := range d.nameByID {
		owner, ok := d.idByLowerName[strings.ToLower(name)]
		assert.True(t, ok)
		assert.Equal(t, id, owner)
	}
	for lower, id := range d.idByLowerName {
		name, ok := d.nameByID[id]
		assert.True(t, ok)
		assert.Equal(t, lower, strings.ToLower(name))
	}
	assert.GreaterOrEqual(t, d.nextSeq, seqAfterAdds)
	d.mu.Unlock()
}

func TestTryChange_StoresCleanedNameInBothMaps(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("id"))

	d.TryChange("id", "   Dr.  Alphonse!  ")

	assert.Equal(t, "Dr Alphonse", d.Get("id"))

	d.mu.Lock()
	owner, ok := d.idByLowerName["dr alphonse"]
	d.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, "id", owner)
}

func TestTryChange_RefusesNameOwnedByAnotherID(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("a"))
	require.NoError(t, d.Add("b"))

	d.TryChange("a", "Taken")
	d.TryChange("b", "taken")

	assert.Equal(t, "Taken", d.Get("a"))
	assert.NotEqual(t, "Taken", d.Get("b"))
}

func TestTryChange_CaseOnlyChangeAllowedForSameID(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("a"))

	d.TryChange("a", "Taken")
	d.TryChange("a", "TAKEN")

	assert.Equal(t, "TAKEN", d.Get("a"))
}

func TestTryChange_EmptyCleanedNameIsNoOp(t *testing.T) {
	d := New()
	require.NoError(t, d.Add("a"))
	before := d.Get("a")

	d.TryChange("a", "!!!")

	assert.Equal(t, before, d.Get("a"))
}

func TestGet_UnknownIDReturnsSentinel(t *testing.T) {
	d := New()
	assert.Equal(t, Sentinel, d.Get("ghost"))
}

func TestCleanName_Idempotent(t *testing.T) {
	f := func(s string) bool {
		once := CleanName(s)
		twice := CleanName(once)
		return once == twice
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestCleanName_BoundedAndShaped(t *testing.T) {
	samples := []string{
		"",
		"   ",
		"Café Müller déjà vu déjà vu déjà vu",
		"a    b     c",
		"  leading and trailing  ",
		"123 456",
		"!@#$%^&*()",
	}

	for _, s := range samples {
		c := CleanName(s)
		assert.LessOrEqual(t, len([]rune(c)), 16)
		assert.Equal(t, strings.TrimSpace(c), c)
		assert.NotContains(t, c, "  ")
		for _, r := range c {
			assert.True(t, r == ' ' || (r < 128 && isAlnumASCII(r)), "unexpected rune %q", r)
		}
	}
}

func TestCleanName_TransliteratesAccents(t *testing.T) {
	assert.Equal(t, "Cafe Muller", CleanName("Café Müller"))
}

func isAlnumASCII(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func idN(n int) string {
	return fmt.Sprintf("0x1-%d", n)
}
