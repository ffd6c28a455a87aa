package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChapter_HappyPathStripsMarkers(t *testing.T) {
	source := "# Chapter\n\n" +
		"```sql validator=sqlite\n" +
		"<!--SETUP\n" +
		"sqlite3 /tmp/test.db 'CREATE TABLE t(x INTEGER); INSERT INTO t VALUES(42);'\n" +
		"-->\n" +
		"SELECT * FROM t;\n" +
		"<!--ASSERT\n" +
		"rows >= 1\n" +
		"-->\n" +
		"```\n"

	out := Chapter(source)
	assert.Contains(t, out, "```sql validator=sqlite\nSELECT * FROM t;\n```")
	assert.NotContains(t, out, "SETUP")
	assert.NotContains(t, out, "CREATE TABLE")
	assert.NotContains(t, out, "ASSERT")
}

func TestChapter_HiddenBlockDisappearsEntirely(t *testing.T) {
	source := "before\n\n" +
		"```sql validator=sqlite hidden\n" +
		"SELECT 1;\n" +
		"```\n\n" +
		"after\n"

	out := Chapter(source)
	assert.NotContains(t, out, "```")
	assert.NotContains(t, out, "SELECT 1;")
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "after")
}

func TestChapter_NonValidatorFencePreservedVerbatim(t *testing.T) {
	source := "```go\nfmt.Println(\"*weird* [markdown](x) chars\")\n```\n"
	out := Chapter(source)
	assert.Equal(t, strings.TrimSpace(source), strings.TrimSpace(out))
}

func TestChapter_AtAtLinesHiddenFromOutput(t *testing.T) {
	source := "```sql validator=sqlite\n" +
		"@@SELECT 1 as hidden_result;\n" +
		"SELECT 2 as visible_result;\n" +
		"```\n"
	out := Chapter(source)
	assert.NotContains(t, out, "hidden_result")
	assert.Contains(t, out, "SELECT 2 as visible_result;")
}

func TestChapter_Idempotent(t *testing.T) {
	source := "```sql validator=sqlite\n<!--ASSERT\nrows >= 1\n-->\nSELECT 1;\n```\n"
	once := Chapter(source)
	twice := Chapter(once)
	assert.Equal(t, once, twice)
}

func TestChapter_CollapsesThreeOrMoreNewlines(t *testing.T) {
	source := "a\n\n\n\n\nb"
	out := Chapter(source)
	assert.Equal(t, "a\n\nb", out)
}

func TestInnerStripped_OnlyHiddenLineLeavesEmptyBody(t *testing.T) {
	got := innerStripped("@@only hidden line")
	assert.Equal(t, "", got)
}
