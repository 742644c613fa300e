package inspect

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

type celsius float64

func (c celsius) String() string { return "21C" }

type bomb struct{}

func (bomb) String() string { panic("boom") }

func TestSerializeRoundTrip(t *testing.T) {
	in := map[string]any{
		"name": "x",
		"n":    1.5,
		"ok":   true,
		"nested": map[string]any{
			"list": []any{1.0, "two", nil},
		},
	}

	var out any
	require.NoError(t, json.Unmarshal([]byte(Serialize(in)), &out))
	assert.Equal(t, in, out)
}

func TestSerializeIndentAndEscaping(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": \"<i>\"\n}", Serialize(map[string]any{"b": "<i>", "a": 1}))
}

func TestSerializeCycle(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	assert.Equal(t, "{\n  \"self\": \"[Circular]\"\n}", Serialize(m))
}

func TestSerializeReplacers(t *testing.T) {
	type record struct {
		When   time.Time
		Re     *regexp.Regexp
		Err    error
		Fn     func()
		Sym    Symbol
		Big    *big.Int
		U      any
		F      float64
		Ch     chan int
		Temp   celsius
		Tagged string `json:"tagged"`
		Skip   string `json:"-"`
		Empty  string `json:"empty,omitempty"`
		hidden int
	}
	in := record{
		When:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Re:     regexp.MustCompile(`x`),
		Err:    errors.New("e"),
		Fn:     func() {},
		Sym:    Symbol("s"),
		Big:    big.NewInt(7),
		U:      Undefined,
		F:      math.NaN(),
		Ch:     make(chan int),
		Temp:   celsius(21),
		Tagged: "t",
		Skip:   "skipped",
		hidden: 1,
	}

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(Serialize(in)), &out))

	want := map[string]any{
		"When":   "2024-01-02T03:04:05.000Z",
		"Re":     "/x/",
		"Err":    "Error: e",
		"Fn":     "[Function: anonymous]",
		"Sym":    "Symbol(s)",
		"Big":    "7n",
		"U":      "[undefined]",
		"F":      nil,
		"Ch":     "chan int {<pending>}",
		"Temp":   "21C",
		"tagged": "t",
	}
	assert.Equal(t, want, out)
}

func TestSerializeStringerPanicFallsBack(t *testing.T) {
	assert.Equal(t, "{}", Serialize(bomb{}))
}

func longChain(n int) *node {
	var head *node
	for i := 0; i < n; i++ {
		head = &node{Name: "n", Next: head}
	}
	return head
}

func TestSerializeDeepChainIsBounded(t *testing.T) {
	head := longChain(1_000_000)

	out := Serialize(head)
	assert.Equal(t, DefaultOptions().MaxDepth, strings.Count(out, `"Next"`))
	assert.Contains(t, out, `"Next": "[Object]"`)

	c := mustContainer(t, NewFormatter(nil, Options{}).Format(head))
	assert.Contains(t, c.Serialized, `"[Object]"`)
	assert.Less(t, len(c.Serialized), 4096)
}

func TestSerializeCapsWidth(t *testing.T) {
	var out []any
	require.NoError(t, json.Unmarshal([]byte(Serialize(make([]int, 150))), &out))
	require.Len(t, out, 101)
	assert.Equal(t, "more properties", out[100])

	nested := []any{[]any{[]any{1}}}
	f := NewFormatter(nil, Options{MaxDepth: 2})
	c := mustContainer(t, f.Format(nested))
	assert.JSONEq(t, `[["[Array]"]]`, c.Serialized)
}

func TestSerializeUINodesAsLabels(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body><table>")
	for i := 0; i < 2000; i++ {
		page.WriteString(`<tr class="row"><td>cell</td></tr>`)
	}
	page.WriteString("</table></body></html>")
	doc, err := html.Parse(strings.NewReader(page.String()))
	require.NoError(t, err)

	type view struct {
		Title string
		Doc   *html.Node
	}
	c := mustContainer(t, NewFormatter(nil, Options{}).Format(view{Title: "t", Doc: doc}))
	assert.JSONEq(t, `{"Title": "t", "Doc": "[Document]"}`, c.Serialized)
	assert.Equal(t, `"[Document]"`, Serialize(doc))

	el := &html.Node{Type: html.ElementNode, Data: "td", Attr: []html.Attribute{{Key: "id", Val: "x"}}}
	assert.Equal(t, `"<td#x>"`, Serialize(el))
}

func TestSerializeHostTypesAreShallow(t *testing.T) {
	f := NewFormatter(nil, Options{HostTypes: []string{"inspect.hostThing"}})
	c := mustContainer(t, f.Format(struct{ H *hostThing }{H: &hostThing{Inner: map[string]int{"a": 1}}}))
	assert.JSONEq(t, `{"H": {"Inner": "[Object]"}}`, c.Serialized)
}
