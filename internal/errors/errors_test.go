package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindCodesAndMessages(t *testing.T) {
	assert.Equal(t, CodeInputMissing, InputMissing.Code())
	assert.Equal(t, CodeInputMalformed, InputMalformed.Code())
	assert.Equal(t, CodeUnsupportedConstruct, UnsupportedConstruct.Code())
	assert.Equal(t, CodeInvariantViolated, InternalInvariantViolated.Code())
}

func TestErrorStringCarriesScope(t *testing.T) {
	err := Malformed("node shape unexpected")
	InContract(err, "Vault")
	InFunction(err, "withdraw")

	msg := err.Error()
	assert.Contains(t, msg, "A0002")
	assert.Contains(t, msg, "Vault.withdraw")
	assert.Contains(t, msg, "node shape unexpected")
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapping: %w", Unsupported("assembly"))

	assert.True(t, stderrors.Is(err, Unsupported("")))
	assert.False(t, stderrors.Is(err, Malformed("")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(Invariant("boom")))
	assert.True(t, IsFatal(Missing("no file")))
	assert.False(t, IsFatal(Malformed("bad node")))
	assert.False(t, IsFatal(Unsupported("assembly")))
	assert.False(t, IsFatal(stderrors.New("plain")))
}

func TestAtAnchorsPosition(t *testing.T) {
	err := Unsupported("statement kind %q", "InlineAssembly").At(7, 5)
	assert.Equal(t, Position{Line: 7, Column: 5}, err.Position)

	// Unanchored errors keep the zero position.
	assert.Equal(t, Position{}, Malformed("bad").Position)
}

func TestAnnotationsDoNotOverwrite(t *testing.T) {
	err := Malformed("bad")
	InContract(err, "First")
	InContract(err, "Second")
	assert.Contains(t, err.Error(), "First")
	assert.NotContains(t, err.Error(), "Second")
}
