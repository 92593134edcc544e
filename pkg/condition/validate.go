// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package condition

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/tombee/condgate/pkg/errors"
)

// safeBuiltins are the only function names a condition may apply. len, int,
// and string are expr builtins; str and bool are provided by the evaluation
// namespace. Everything else, including every other expr builtin, is
// rejected at validation time.
var safeBuiltins = map[string]bool{
	"len":    true,
	"int":    true,
	"string": true,
	"str":    true,
	"bool":   true,
}

// allowedBinaryOps is the positive list of permitted binary operators:
// boolean logic, equality/ordering, membership, and simple arithmetic.
var allowedBinaryOps = map[string]bool{
	"and": true, "or": true, "&&": true, "||": true,
	"==": true, "!=": true,
	"<": true, "<=": true, ">": true, ">=": true,
	"in": true, "not in": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
}

// allowedUnaryOps is the positive list of permitted unary operators.
var allowedUnaryOps = map[string]bool{
	"not": true, "!": true, "-": true, "+": true,
}

// Validate parses the condition as a single expression and checks every node
// of the resulting tree against the allow-list. It returns the parse tree on
// success, a *errors.SyntaxError if the text does not parse, or a
// *errors.SecurityViolation naming the first disallowed construct.
//
// The walk is iterative with an explicit work stack rather than recursive, so
// adversarially nested input cannot exhaust the goroutine stack. Validation
// never executes any part of the expression.
func Validate(condition string) (*parser.Tree, error) {
	tree, err := parser.Parse(condition)
	if err != nil {
		return nil, &errors.SyntaxError{Expr: condition, Cause: err}
	}
	if err := checkTree(condition, tree.Node); err != nil {
		return nil, err
	}
	return tree, nil
}

// checkTree walks the tree with an explicit stack, rejecting any node kind,
// operator, or callee outside the allow-list. Fails closed: the default arm
// rejects node kinds it does not recognize.
func checkTree(condition string, root ast.Node) error {
	violation := func(construct string) error {
		return &errors.SecurityViolation{Expr: condition, Construct: construct}
	}

	stack := []ast.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n := node.(type) {
		case *ast.NilNode, *ast.BoolNode, *ast.IntegerNode, *ast.FloatNode,
			*ast.StringNode, *ast.IdentifierNode:
			// Leaf literals and name references.

		case *ast.UnaryNode:
			if !allowedUnaryOps[n.Operator] {
				return violation(fmt.Sprintf("unary operator %q", n.Operator))
			}
			stack = append(stack, n.Node)

		case *ast.BinaryNode:
			if !allowedBinaryOps[n.Operator] {
				return violation(fmt.Sprintf("binary operator %q", n.Operator))
			}
			stack = append(stack, n.Left, n.Right)

		case *ast.ArrayNode:
			stack = append(stack, n.Nodes...)

		case *ast.MapNode:
			stack = append(stack, n.Pairs...)

		case *ast.PairNode:
			stack = append(stack, n.Key, n.Value)

		case *ast.CallNode:
			// Only direct application of a whitelisted name. A method call
			// has a member-access callee and is rejected here, before the
			// member node itself is ever reached.
			ident, ok := n.Callee.(*ast.IdentifierNode)
			if !ok {
				return violation(fmt.Sprintf("call via %s", nodeKind(n.Callee)))
			}
			if !safeBuiltins[ident.Value] {
				return violation(fmt.Sprintf("call to %q", ident.Value))
			}
			stack = append(stack, n.Arguments...)

		case *ast.BuiltinNode:
			// The parser lowers some builtin applications (len, int, string)
			// to a dedicated node kind.
			if !safeBuiltins[n.Name] {
				return violation(fmt.Sprintf("builtin %q", n.Name))
			}
			stack = append(stack, n.Arguments...)

		default:
			// Member access, indexing, slicing, closures, pipes, ranges,
			// conditionals, variable declarations, and anything the parser
			// grows in the future all land here.
			return violation(nodeKind(node))
		}
	}
	return nil
}

// nodeKind returns a short name for a node's concrete type, e.g. "MemberNode".
func nodeKind(n ast.Node) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast.")
}
