// SPDX-License-Identifier: Apache-2.0
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solvent/internal/astjson"
	"solvent/internal/errors"
)

// vaultSource and vaultAST model a small vault contract the way solc emits
// it: state variable, event, one public and one internal function.
const vaultSource = `pragma solidity ^0.8.13;

contract Vault {
    mapping(address => uint256) balances;

    event Updated(address who);

    function deposit() public {
        balances[msg.sender] = 1;
    }

    function _noop() internal {
    }
}
`

const vaultAST = `{
  "nodeType": "SourceUnit",
  "nodes": [
    {
      "nodeType": "PragmaDirective",
      "literals": ["solidity", "^", "0.8", ".13"],
      "src": "0:24:0"
    },
    {
      "nodeType": "ContractDefinition",
      "name": "Vault",
      "src": "26:100:0",
      "nodes": [
        {
          "nodeType": "VariableDeclaration",
          "name": "balances",
          "stateVariable": true,
          "src": "47:38:0",
          "typeName": {"nodeType": "Mapping", "typeDescriptions": {"typeString": "mapping(address => uint256)"}}
        },
        {
          "nodeType": "EventDefinition",
          "name": "Updated",
          "src": "92:26:0"
        },
        {
          "nodeType": "FunctionDefinition",
          "name": "deposit",
          "visibility": "public",
          "src": "124:80:0",
          "parameters": {"nodeType": "ParameterList", "parameters": []},
          "body": {
            "nodeType": "Block",
            "statements": [
              {
                "nodeType": "ExpressionStatement",
                "src": "160:24:0",
                "expression": {
                  "nodeType": "Assignment",
                  "operator": "=",
                  "leftHandSide": {
                    "nodeType": "IndexAccess",
                    "baseExpression": {"nodeType": "Identifier", "name": "balances"},
                    "indexExpression": {
                      "nodeType": "MemberAccess",
                      "memberName": "sender",
                      "expression": {"nodeType": "Identifier", "name": "msg"}
                    }
                  },
                  "rightHandSide": {"nodeType": "Literal", "value": "1"}
                }
              }
            ]
          }
        },
        {
          "nodeType": "FunctionDefinition",
          "name": "_noop",
          "visibility": "internal",
          "src": "216:30:0",
          "parameters": {"nodeType": "ParameterList", "parameters": []},
          "body": {"nodeType": "Block", "statements": []}
        }
      ]
    }
  ]
}`

func parseVault(t *testing.T) *astjson.Node {
	t.Helper()
	doc, err := astjson.Decode([]byte(vaultAST))
	require.NoError(t, err)
	return &doc
}

func TestParseContractMetadata(t *testing.T) {
	doc := parseVault(t)
	contracts, err := NewParser(vaultSource).Parse(*doc)
	require.NoError(t, err)
	require.Len(t, contracts, 1)

	contract := contracts[0]
	assert.Equal(t, "Vault", contract.Name)
	assert.Equal(t, "solidity ^ 0.8 .13", contract.Pragma)

	require.Len(t, contract.StateVars, 1)
	assert.Equal(t, "balances", contract.StateVars[0].Name)
	assert.Equal(t, 4, contract.StateVars[0].Location.Line)

	require.Len(t, contract.Events, 1)
	assert.Equal(t, "Updated", contract.Events[0].Name)

	require.Contains(t, contract.Functions, "deposit")
	assert.Equal(t, "public", contract.Functions["deposit"].Visibility)
}

func TestParseSplitsEntrypointsFromInternal(t *testing.T) {
	doc := parseVault(t)
	contracts, err := NewParser(vaultSource).Parse(*doc)
	require.NoError(t, err)

	contract := contracts[0]
	require.Len(t, contract.Entrypoints, 1)
	assert.Equal(t, "deposit", contract.Entrypoints[0].Name)

	require.Len(t, contract.Internal, 1)
	assert.Equal(t, "_noop", contract.Internal[0].Name)
}

func TestParseBuildsSSA(t *testing.T) {
	doc := parseVault(t)
	contracts, err := NewParser(vaultSource).Parse(*doc)
	require.NoError(t, err)

	deposit := contracts[0].Entrypoints[0]
	require.NotEmpty(t, deposit.Blocks)
	assert.Contains(t, deposit.Blocks[0].SSAStatements, "balances[msg.sender]_1 = 1")
	assert.Equal(t, "return", deposit.Blocks[len(deposit.Blocks)-1].Terminator)
}

func TestEmptyInternalFunctionIR(t *testing.T) {
	doc := parseVault(t)
	contracts, err := NewParser(vaultSource).Parse(*doc)
	require.NoError(t, err)

	noop := contracts[0].Internal[0]
	require.Len(t, noop.Blocks, 1)
	assert.Empty(t, noop.Blocks[0].SSAStatements)
	assert.Equal(t, "return", noop.Blocks[0].Terminator)
}

func TestParseNilDocument(t *testing.T) {
	_, err := NewParser("").Parse(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.Missing(""))
}

func TestParseDocumentWithoutNodes(t *testing.T) {
	doc, err := astjson.Decode([]byte(`{"nodeType": "SourceUnit"}`))
	require.NoError(t, err)

	_, err = NewParser("").Parse(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.Malformed(""))
}

func TestUnsupportedConstructSkipsFunctionOnly(t *testing.T) {
	raw := `{
	  "nodeType": "SourceUnit",
	  "nodes": [
	    {
	      "nodeType": "ContractDefinition",
	      "name": "Mixed",
	      "nodes": [
	        {
	          "nodeType": "FunctionDefinition",
	          "name": "broken",
	          "visibility": "public",
	          "parameters": {"nodeType": "ParameterList", "parameters": []},
	          "body": {"nodeType": "Block", "statements": [{"nodeType": "InlineAssembly", "src": "9:5:0"}]}
	        },
	        {
	          "nodeType": "FunctionDefinition",
	          "name": "fine",
	          "visibility": "public",
	          "parameters": {"nodeType": "ParameterList", "parameters": []},
	          "body": {"nodeType": "Block", "statements": []}
	        }
	      ]
	    }
	  ]
	}`
	doc, err := astjson.Decode([]byte(raw))
	require.NoError(t, err)

	contracts, err := NewParser("line one\nassembly {}\nline three\n").Parse(doc)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	require.Len(t, contracts[0].Entrypoints, 2)

	var brokenErr error
	var fine bool
	for _, fn := range contracts[0].Entrypoints {
		switch fn.Name {
		case "broken":
			brokenErr = fn.Err
		case "fine":
			fine = fn.Err == nil
		}
	}
	require.Error(t, brokenErr, "unsupported construct should annotate the function")
	assert.True(t, fine, "other functions continue")

	// The error is anchored at the offending statement.
	var ae *errors.AnalysisError
	require.ErrorAs(t, brokenErr, &ae)
	assert.Equal(t, 2, ae.Position.Line)
	assert.Equal(t, 1, ae.Position.Column)
}

func TestContractWithoutNameIsMalformed(t *testing.T) {
	raw := `{"nodeType": "SourceUnit", "nodes": [{"nodeType": "ContractDefinition", "nodes": []}]}`
	doc, err := astjson.Decode([]byte(raw))
	require.NoError(t, err)

	contracts, err := NewParser("").Parse(doc)
	assert.Error(t, err)
	assert.Empty(t, contracts)
}
