package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNamespace(t *testing.T) {
	tests := []struct {
		name string
		text string
		want NamespacePath
	}{
		{"default", "default", NamespacePath{}},
		{"single", "sales", NamespacePath{"sales"}},
		{"nested", "a.b.c", NamespacePath{"a", "b", "c"}},
		{"leading dot", ".a", NamespacePath{"", "a"}},
		{"trailing dot", "a.", NamespacePath{"a", ""}},
		{"escaped dot", `a\.b.c`, NamespacePath{"a.b", "c"}},
		{"escaped backslash", `a\\b`, NamespacePath{`a\b`}},
		{"escaped default", `\default`, NamespacePath{"default"}},
		{"default as prefix", "default.x", NamespacePath{"default", "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseNamespace(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseNamespace_DanglingEscape(t *testing.T) {
	_, err := ParseNamespace(`a\`)
	require.Error(t, err)
	var nsErr *InvalidNamespaceError
	assert.ErrorAs(t, err, &nsErr)
}

func TestNamespacePath_String(t *testing.T) {
	assert.Equal(t, "default", NamespacePath{}.String())
	assert.Equal(t, "default", NamespacePath(nil).String())
	assert.Equal(t, "a.b.c", NamespacePath{"a", "b", "c"}.String())
	assert.Equal(t, `a\.b`, NamespacePath{"a.b"}.String())
	assert.Equal(t, `\default`, NamespacePath{"default"}.String())
}

func TestNamespacePath_RoundTrip(t *testing.T) {
	paths := []NamespacePath{
		{},
		{"sales"},
		{"a", "b", "c"},
		{"default"},
		{"default", "users"},
		{"dotted.name", "x"},
		{`back\slash`},
		{"", ""},
		{""},
		{"trailing\\"},
	}
	for _, p := range paths {
		t.Run(p.String(), func(t *testing.T) {
			parsed, err := ParseNamespace(p.String())
			require.NoError(t, err)
			assert.True(t, p.Equal(parsed), "round trip of %q gave %q", []string(p), []string(parsed))
		})
	}
}

func TestNamespacePath_Child(t *testing.T) {
	parent := NamespacePath{"a"}
	child := parent.Child("b")
	assert.Equal(t, NamespacePath{"a", "b"}, child)
	assert.Equal(t, NamespacePath{"a"}, parent)
}

func TestNewTableIdentifier(t *testing.T) {
	id, err := NewTableIdentifier("default", "users")
	require.NoError(t, err)
	assert.True(t, id.Namespace.IsDefault())
	assert.Equal(t, "default.users", id.QualifiedName())

	id, err = NewTableIdentifier("sales", "orders")
	require.NoError(t, err)
	assert.Equal(t, "sales.orders", id.String())

	_, err = NewTableIdentifier("sales", "")
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
