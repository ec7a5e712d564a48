package selector

import (
	"testing"

	coreerrors "github.com/mediar-ai/terminator/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip(t *testing.T) {
	cases := []string{
		"role:Button|name:OK",
		"name:Submit",
		"text:hello",
		"#abc123",
		"nativeid:btn1",
		"classname:MyClass",
		"visible:true",
		"role:List >> role:ListItem >> nth=-1",
		"rightof:role:Button|name:Save",
		"role:Pane >> has:role:Button",
	}
	for _, s := range cases {
		sel, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, Serialize(sel), s)
	}
}

func TestEmptyChainInvalid(t *testing.T) {
	sel := Chain()
	assert.Equal(t, KindInvalid, sel.Kind)
	assert.Error(t, sel.Validate())
}

func TestBareNthOutsideChainInvalid(t *testing.T) {
	sel := Nth(0)
	err := sel.Validate()
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindInvalidSelector, coreerrors.KindOf(err))
}

func TestBareHasOutsideChainInvalid(t *testing.T) {
	sel := Has(Role("Button", ""))
	err := sel.Validate()
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindInvalidSelector, coreerrors.KindOf(err))
}

func TestParseUnknownTokenIsInvalidSelector(t *testing.T) {
	_, err := Parse("bogus:token")
	require.Error(t, err)
	assert.Equal(t, coreerrors.KindInvalidSelector, coreerrors.KindOf(err))
}
