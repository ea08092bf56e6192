/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ssa

type Op uint8

const (
	OpStart Op = iota
	OpStop
	OpReturn
	OpRegion
	OpLoop
	OpIf
	OpNever
	OpCProj
	OpXCtrl
	OpConstant
	OpProj
	OpPhi
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMinus
	OpNot
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEQ
	OpLT
	OpLE
	OpNew
	OpLoad
	OpStore
)

var _OpNames = [...]string{
	OpStart:    "Start",
	OpStop:     "Stop",
	OpReturn:   "Return",
	OpRegion:   "Region",
	OpLoop:     "Loop",
	OpIf:       "If",
	OpNever:    "Never",
	OpCProj:    "CProj",
	OpXCtrl:    "XCtrl",
	OpConstant: "Con",
	OpProj:     "Proj",
	OpPhi:      "Phi",
	OpAdd:      "Add",
	OpSub:      "Sub",
	OpMul:      "Mul",
	OpDiv:      "Div",
	OpMinus:    "Minus",
	OpNot:      "Not",
	OpAnd:      "And",
	OpOr:       "Or",
	OpXor:      "Xor",
	OpShl:      "Shl",
	OpShr:      "Shr",
	OpEQ:       "EQ",
	OpLT:       "LT",
	OpLE:       "LE",
	OpNew:      "New",
	OpLoad:     "Load",
	OpStore:    "Store",
}

var _OpSymbols = map[Op]string{
	OpAdd:   "+",
	OpSub:   "-",
	OpMul:   "*",
	OpDiv:   "/",
	OpMinus: "-",
	OpNot:   "!",
	OpAnd:   "&",
	OpOr:    "|",
	OpXor:   "^",
	OpShl:   "<<",
	OpShr:   ">>",
	OpEQ:    "==",
	OpLT:    "<",
	OpLE:    "<=",
}

func (self Op) String() string {
	if int(self) < len(_OpNames) {
		return _OpNames[self]
	} else {
		return "Op(?)"
	}
}

// IsCFG reports whether nodes of this kind carry control.
func (self Op) IsCFG() bool {
	switch self {
	case OpStart, OpStop, OpReturn, OpRegion, OpLoop, OpIf, OpNever, OpCProj, OpXCtrl:
		return true
	default:
		return false
	}
}

// IsBinary reports whether nodes of this kind are [nil, lhs, rhs] data nodes.
func (self Op) IsBinary() bool {
	switch self {
	case OpAdd, OpSub, OpMul, OpDiv, OpAnd, OpOr, OpXor, OpShl, OpShr, OpEQ, OpLT, OpLE:
		return true
	default:
		return false
	}
}

// IsAssociative reports whether the operator is both associative and commutative.
func (self Op) IsAssociative() bool {
	switch self {
	case OpAdd, OpMul, OpAnd, OpOr, OpXor:
		return true
	default:
		return false
	}
}

func (self Op) IsCompare() bool {
	return self == OpEQ || self == OpLT || self == OpLE
}

// isBranch reports whether a CFG node of this kind splits control.
func (self Op) isBranch() bool {
	return self == OpIf || self == OpNever
}

// isBlockHead reports whether a CFG node of this kind starts a basic block.
func (self Op) isBlockHead() bool {
	switch self {
	case OpStart, OpStop, OpRegion, OpLoop, OpCProj:
		return true
	default:
		return false
	}
}
