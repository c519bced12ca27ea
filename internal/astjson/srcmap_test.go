package astjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetToLineColFirstLine(t *testing.T) {
	source := "pragma solidity ^0.8.13;\ncontract A {}\n"

	loc := OffsetToLineCol(0, source)
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 1, loc.Column)

	loc = OffsetToLineCol(7, source)
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 8, loc.Column)
}

func TestOffsetToLineColSecondLine(t *testing.T) {
	source := "line one\nline two\n"

	loc := OffsetToLineCol(9, source)
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 1, loc.Column)

	loc = OffsetToLineCol(14, source)
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 6, loc.Column)
}

func TestOffsetToLineColTerminatorBelongsToItsLine(t *testing.T) {
	source := "ab\ncd\n"

	// Offset 2 is the "\n" ending line 1.
	loc := OffsetToLineCol(2, source)
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 3, loc.Column)
}

func TestOffsetToLineColCRLF(t *testing.T) {
	source := "ab\r\ncd\r\n"

	loc := OffsetToLineCol(4, source)
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 1, loc.Column)

	// The "\r" of line 1 still maps into line 1.
	loc = OffsetToLineCol(2, source)
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 3, loc.Column)
}

func TestOffsetToLineColBoundaries(t *testing.T) {
	assert.Equal(t, SourceLocation{Line: 1, Column: 1}, OffsetToLineCol(-1, "abc"))
	assert.Equal(t, SourceLocation{Line: 1, Column: 1}, OffsetToLineCol(0, ""))
	assert.Equal(t, SourceLocation{Line: 1, Column: 1}, OffsetToLineCol(99, "short\n"))
}

func TestOffsetToLineColNoTrailingNewline(t *testing.T) {
	source := "ab\ncdef"

	loc := OffsetToLineCol(5, source)
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 3, loc.Column)
}
