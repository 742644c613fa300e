package evaluate

import (
	"bytes"
	"testing"

	"devconsole/internal/console"
	"devconsole/internal/inspect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYaegiEvaluates(t *testing.T) {
	y, err := NewYaegi(YaegiOptions{})
	require.NoError(t, err)

	v, err := y.Eval("1+1")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = y.Eval(`strings.ToUpper("go")`)
	require.NoError(t, err)
	assert.Equal(t, "GO", v)
}

func TestYaegiKeepsDeclarations(t *testing.T) {
	y, err := NewYaegi(YaegiOptions{})
	require.NoError(t, err)

	_, err = y.Eval("x := 40")
	require.NoError(t, err)
	v, err := y.Eval("x + 2")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestYaegiErrors(t *testing.T) {
	y, err := NewYaegi(YaegiOptions{})
	require.NoError(t, err)

	_, err = y.Eval("undefinedName + 1")
	assert.Error(t, err)

	_, err = y.Eval(`panic("boom")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestYaegiStatementsAreUndefined(t *testing.T) {
	y, err := NewYaegi(YaegiOptions{})
	require.NoError(t, err)

	v, err := y.Eval("func() {}()")
	require.NoError(t, err)
	assert.Equal(t, inspect.Undefined, v)
}

func TestYaegiConsolePackage(t *testing.T) {
	c := console.New(console.Options{})
	c.Mount()
	var out bytes.Buffer
	y, err := NewYaegi(YaegiOptions{Console: c, Stdout: &out})
	require.NoError(t, err)

	b := NewBridge(c, y, 0)
	b.Submit(`console.Warn("from script", 7)`)
	b.Submit(`fmt.Println("printed")`)

	texts := make([]string, 0)
	for _, e := range c.Entries() {
		texts = append(texts, e.Text)
	}
	assert.Contains(t, texts, "from script 7")
	assert.Contains(t, out.String(), "printed")
}
