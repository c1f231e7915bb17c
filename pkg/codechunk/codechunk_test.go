package codechunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFunctionDeclaration(t *testing.T) {
	src := "function add(a, b) {\n  return a + b;\n}\n"
	chunks := Extract("f.js", "f.js", src, time.Time{})
	require.Len(t, chunks, 1)
	assert.Equal(t, "add", chunks[0].Section)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
}

func TestExtractArrowConst(t *testing.T) {
	src := "const handler = (req, res) => {\n  res.send('ok');\n};\n"
	chunks := Extract("f.ts", "f.ts", src, time.Time{})
	require.Len(t, chunks, 1)
	assert.Equal(t, "handler", chunks[0].Section)
}

func TestExtractClassKeepsOuterDropsMethodNesting(t *testing.T) {
	src := "class Foo {\n" +
		"  bar() {\n" +
		"    return 1;\n" +
		"  }\n" +
		"}\n"
	chunks := Extract("f.ts", "f.ts", src, time.Time{})
	require.Len(t, chunks, 1, "method nested inside class body must be dropped")
	assert.Equal(t, "Foo", chunks[0].Section)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 5, chunks[0].EndLine)
}

func TestExtractBraceInsideStringIgnored(t *testing.T) {
	src := "function weird() {\n" +
		"  const s = \"a } b\";\n" +
		"  const t = `template ${1} }`;\n" +
		"  return s;\n" +
		"}\n"
	chunks := Extract("f.js", "f.js", src, time.Time{})
	require.Len(t, chunks, 1)
	assert.Equal(t, 5, chunks[0].EndLine)
}

func TestExtractInterfaceAndTypeAlias(t *testing.T) {
	src := "interface Point {\n  x: number;\n  y: number;\n}\n\n" +
		"type Shape = {\n  kind: string;\n};\n"
	chunks := Extract("f.ts", "f.ts", src, time.Time{})
	require.Len(t, chunks, 2)
	assert.Equal(t, "Point", chunks[0].Section)
	assert.Equal(t, "Shape", chunks[1].Section)
}

func TestExtractDropsShortBlocks(t *testing.T) {
	src := "function f() {}\n"
	chunks := Extract("f.js", "f.js", src, time.Time{})
	assert.Len(t, chunks, 0)
}

func TestExtractPythonModuleLevelDef(t *testing.T) {
	src := "def top():\n    return 1\n\n\ndef next_one():\n    x = 1\n    return x\n"
	chunks := Extract("f.py", "f.py", src, time.Time{})
	require.Len(t, chunks, 2)
	assert.Equal(t, "top", chunks[0].Section)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, "next_one", chunks[1].Section)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 7, chunks[1].EndLine)
}

func TestExtractPythonClassSwallowsIndentedMethods(t *testing.T) {
	src := "class Foo:\n    def bar(self):\n        return 1\n"
	chunks := Extract("f.py", "f.py", src, time.Time{})
	require.Len(t, chunks, 1)
	assert.Equal(t, "Foo", chunks[0].Section)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
}

func TestExtractUnknownLanguageReturnsNil(t *testing.T) {
	chunks := Extract("f.rb", "f.rb", "def foo\nend\n", time.Time{})
	assert.Nil(t, chunks)
}

func TestExtractFileMissingIsError(t *testing.T) {
	_, err := ExtractFile("missing.go", "/no/such/file.go")
	require.Error(t, err)
}

func TestIsTestFileSkipsConventionalNames(t *testing.T) {
	assert.True(t, isTestFile("pkg/foo_test.go"))
	assert.True(t, isTestFile("src/foo.test.ts"))
	assert.True(t, isTestFile("src/foo.spec.js"))
	assert.True(t, isTestFile("tests/helpers.py"))
	assert.False(t, isTestFile("src/foo.ts"))
}

func TestIsConfigFileSkipsKnownBasenames(t *testing.T) {
	assert.True(t, isConfigFile("project/package.json"))
	assert.False(t, isConfigFile("project/index.js"))
}
