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

package types

import (
    `fmt`
    `hash/fnv`
    `math`
    `strings`
    `sync`
)

type Kind uint8

const (
    KTop Kind = iota
    KBottom
    KCtrl
    KXCtrl
    KInt
    KMem
    KPtr
    KTuple
)

// Type is an interned lattice element. Two types are structurally equal
// if and only if they are the same pointer.
type Type struct {
    kind  Kind
    lo    int64
    hi    int64
    alias int
    high  bool
    obj   string
    null  bool
    elems []*Type
    hash  uint64
}

const (
    _AnyObject = "*"
)

var (
    tabMu sync.Mutex
    tab   = make(map[string]*Type)
)

func (self *Type) key() string {
    var sb strings.Builder
    fmt.Fprintf(&sb, "%d|%d|%d|%d|%t|%s|%t", self.kind, self.lo, self.hi, self.alias, self.high, self.obj, self.null)
    for _, e := range self.elems {
        fmt.Fprintf(&sb, "|%p", e)
    }
    return sb.String()
}

func intern(t Type) *Type {
    k := t.key()
    tabMu.Lock()
    defer tabMu.Unlock()

    /* check for existing types */
    if v, ok := tab[k]; ok {
        return v
    }

    /* add to the table */
    p := new(Type)
    h := fnv.New64a()
    *p = t
    _, _ = h.Write([]byte(k))
    p.hash = h.Sum64()
    tab[k] = p
    return p
}

var (
    Top    = intern(Type{kind: KTop})
    Bottom = intern(Type{kind: KBottom})
    Ctrl   = intern(Type{kind: KCtrl})
    XCtrl  = intern(Type{kind: KXCtrl})
)

var (
    IntTop = intern(Type{kind: KInt, lo: math.MaxInt64, hi: math.MinInt64})
    IntBot = intern(Type{kind: KInt, lo: math.MinInt64, hi: math.MaxInt64})
    Zero   = Int(0)
    One    = Int(1)
    Bool   = Range(0, 1)
)

var (
    MemTop = intern(Type{kind: KMem, high: true})
    MemBot = intern(Type{kind: KMem})
    PtrTop = intern(Type{kind: KPtr, high: true})
    PtrBot = intern(Type{kind: KPtr, obj: _AnyObject, null: true})
    Null   = intern(Type{kind: KPtr, null: true})
)

var (
    IfBoth    = Tuple(Ctrl, Ctrl)
    IfNeither = Tuple(XCtrl, XCtrl)
    IfTrue    = Tuple(Ctrl, XCtrl)
    IfFalse   = Tuple(XCtrl, Ctrl)
)

// Int returns the constant integer type c.
func Int(c int64) *Type {
    return intern(Type{kind: KInt, lo: c, hi: c})
}

// Range returns the integer range [lo, hi]. An empty range is IntTop.
func Range(lo int64, hi int64) *Type {
    if lo > hi {
        return IntTop
    } else {
        return intern(Type{kind: KInt, lo: lo, hi: hi})
    }
}

// Mem returns the low memory slice of alias. Alias 0 stands for all memory.
func Mem(alias int) *Type {
    return intern(Type{kind: KMem, alias: alias})
}

// MemHigh returns the high memory slice of alias.
func MemHigh(alias int) *Type {
    return intern(Type{kind: KMem, alias: alias, high: true})
}

// Ptr returns a pointer to a struct named obj.
func Ptr(obj string, nilable bool) *Type {
    if obj == "" {
        panic("types: empty struct name")
    }
    return intern(Type{kind: KPtr, obj: obj, null: nilable})
}

func Tuple(elems ...*Type) *Type {
    return intern(Type{kind: KTuple, elems: append([]*Type(nil), elems...)})
}

func (self *Type) Kind()     Kind    { return self.kind }
func (self *Type) Lo()       int64   { return self.lo }
func (self *Type) Hi()       int64   { return self.hi }
func (self *Type) Alias()    int     { return self.alias }
func (self *Type) Obj()      string  { return self.obj }
func (self *Type) Nilable()  bool    { return self.null }
func (self *Type) Len()      int     { return len(self.elems) }
func (self *Type) At(i int)  *Type   { return self.elems[i] }

// Hash is stable for the lifetime of the process.
func (self *Type) Hash() uint64 { return self.hash }

func (self *Type) IsInt() bool { return self.kind == KInt }
func (self *Type) IsMem() bool { return self.kind == KMem }
func (self *Type) IsPtr() bool { return self.kind == KPtr }

// Value returns the value of an integer constant.
func (self *Type) Value() int64 {
    if self.kind != KInt || self.lo != self.hi {
        panic("types: not an integer constant: " + self.String())
    }
    return self.lo
}

func (self *Type) IsConstant() bool {
    switch self.kind {
        case KInt : return self.lo == self.hi
        case KPtr : return self == Null
        default   : return false
    }
}

func (self *Type) IsHigh() bool {
    switch self.kind {
        case KTop   : return true
        case KXCtrl : return true
        case KInt   : return self.lo > self.hi
        case KMem   : return self.high
        case KPtr   : return self.high
        default     : return false
    }
}

func (self *Type) IsHighOrConst() bool {
    return self.IsHigh() || self.IsConstant()
}

// Contains reports whether c is a member of an integer range.
func (self *Type) Contains(c int64) bool {
    return self.kind == KInt && self.lo <= c && c <= self.hi
}

// Meet returns the greatest lower bound of two types, moving towards Bottom.
func (self *Type) Meet(other *Type) *Type {
    switch {
        case self == other         : return self
        case self.kind == KTop     : return other
        case other.kind == KTop    : return self
        case self.kind == KBottom  : return self
        case other.kind == KBottom : return other
    }

    /* control is a two-point chain */
    if self.isCtrl() && other.isCtrl() {
        return Ctrl
    }

    /* different kinds fall to the bottom */
    if self.kind != other.kind {
        return Bottom
    }

    /* meet within the same kind */
    switch self.kind {
        case KInt   : return Range(min64(self.lo, other.lo), max64(self.hi, other.hi))
        case KMem   : return meetMem(self, other)
        case KPtr   : return meetPtr(self, other)
        case KTuple : return meetTuple(self, other)
        default     : panic("types: unreachable meet: " + self.String())
    }
}

// Join returns the least upper bound of two types, moving towards Top.
func (self *Type) Join(other *Type) *Type {
    switch {
        case self == other         : return self
        case self.kind == KBottom  : return other
        case other.kind == KBottom : return self
        case self.kind == KTop     : return self
        case other.kind == KTop    : return other
    }

    /* control is a two-point chain */
    if self.isCtrl() && other.isCtrl() {
        return XCtrl
    }

    /* disjoint kinds have no common member */
    if self.kind != other.kind {
        return Top
    }

    /* join within the same kind */
    switch self.kind {
        case KInt   : return Range(max64(self.lo, other.lo), min64(self.hi, other.hi))
        case KMem   : return joinMem(self, other)
        case KPtr   : return joinPtr(self, other)
        case KTuple : return joinTuple(self, other)
        default     : panic("types: unreachable join: " + self.String())
    }
}

// Dual mirrors a type across the centerline of the lattice.
func (self *Type) Dual() *Type {
    switch self.kind {
        case KTop    : return Bottom
        case KBottom : return Top
        case KCtrl   : return XCtrl
        case KXCtrl  : return Ctrl
        case KInt    : return dualInt(self)
        case KMem    : return intern(Type{kind: KMem, alias: self.alias, high: !self.high})
        case KPtr    : return dualPtr(self)
        case KTuple  : return mapTuple(self, (*Type).Dual)
        default      : panic("types: unreachable dual")
    }
}

// IsA reports whether self is at least as precise as other.
func (self *Type) IsA(other *Type) bool {
    return self.Meet(other) == other
}

// Glb returns the most general type of the same kind, used for declared types.
func (self *Type) Glb() *Type {
    switch self.kind {
        case KTop    : return Bottom
        case KBottom : return Bottom
        case KCtrl   : return Ctrl
        case KXCtrl  : return Ctrl
        case KInt    : return IntBot
        case KMem    : return Mem(self.alias)
        case KPtr    : return glbPtr(self)
        case KTuple  : return mapTuple(self, (*Type).Glb)
        default      : panic("types: unreachable glb")
    }
}

var _WidenLadder = [...]*Type {
    Range(0, 1),
    Range(math.MinInt8, math.MaxInt8),
    Range(0, math.MaxUint8),
    Range(math.MinInt16, math.MaxInt16),
    Range(0, math.MaxUint16),
    Range(math.MinInt32, math.MaxInt32),
    Range(0, math.MaxUint32),
}

// Widen moves a non-constant integer range up to the next rung of a fixed
// ladder, so a loop Phi can only change type a bounded number of times.
func (self *Type) Widen() *Type {
    if self.kind != KInt || self.IsHighOrConst() {
        return self
    }

    /* find the smallest rung that covers the range */
    for _, t := range _WidenLadder {
        if self.lo >= t.lo && self.hi <= t.hi {
            return t
        }
    }
    return IntBot
}

func (self *Type) isCtrl() bool {
    return self.kind == KCtrl || self.kind == KXCtrl
}

func dualInt(t *Type) *Type {
    switch {
        case t == IntTop    : return IntBot
        case t == IntBot    : return IntTop
        case t.IsConstant() : return t
        default             : return IntTop
    }
}

func dualPtr(t *Type) *Type {
    switch t {
        case PtrTop : return PtrBot
        case PtrBot : return PtrTop
        case Null   : return Null
        default     : return PtrTop
    }
}

func meetMem(a *Type, b *Type) *Type {
    switch {
        case a.high && (a.alias == 0 || a.alias == b.alias) : return b
        case b.high && (b.alias == 0 || b.alias == a.alias) : return a
        case a.alias == b.alias                             : return Mem(a.alias)
        default                                             : return MemBot
    }
}

func joinMem(a *Type, b *Type) *Type {
    switch {
        case !a.high && a.alias == 0 : return b
        case !b.high && b.alias == 0 : return a
        case a.alias == b.alias      : return intern(Type{kind: KMem, alias: a.alias, high: a.high || b.high})
        default                      : return MemTop
    }
}

func meetPtr(a *Type, b *Type) *Type {
    switch {
        case a == PtrTop    : return b
        case b == PtrTop    : return a
        case a == Null      : return intern(Type{kind: KPtr, obj: b.obj, null: true})
        case b == Null      : return intern(Type{kind: KPtr, obj: a.obj, null: true})
        case a.obj == b.obj : return Ptr(a.obj, a.null || b.null)
        default             : return Ptr(_AnyObject, a.null || b.null)
    }
}

func joinPtr(a *Type, b *Type) *Type {
    switch {
        case a == PtrTop || b == PtrTop : return PtrTop
        case a == Null                  : return nullOr(b)
        case b == Null                  : return nullOr(a)
        case a.obj == b.obj             : return Ptr(a.obj, a.null && b.null)
        case a.obj == _AnyObject        : return Ptr(b.obj, a.null && b.null)
        case b.obj == _AnyObject        : return Ptr(a.obj, a.null && b.null)
        case a.null && b.null           : return Null
        default                         : return PtrTop
    }
}

func nullOr(t *Type) *Type {
    if t.null {
        return Null
    } else {
        return PtrTop
    }
}

func glbPtr(t *Type) *Type {
    if t.obj == "" {
        return PtrBot
    } else {
        return Ptr(t.obj, true)
    }
}

func meetTuple(a *Type, b *Type) *Type {
    if len(a.elems) != len(b.elems) {
        return Bottom
    }
    ret := make([]*Type, len(a.elems))
    for i := range ret {
        ret[i] = a.elems[i].Meet(b.elems[i])
    }
    return Tuple(ret...)
}

func joinTuple(a *Type, b *Type) *Type {
    if len(a.elems) != len(b.elems) {
        return Top
    }
    ret := make([]*Type, len(a.elems))
    for i := range ret {
        ret[i] = a.elems[i].Join(b.elems[i])
    }
    return Tuple(ret...)
}

func mapTuple(t *Type, fn func(*Type) *Type) *Type {
    ret := make([]*Type, len(t.elems))
    for i, e := range t.elems {
        ret[i] = fn(e)
    }
    return Tuple(ret...)
}

func min64(a int64, b int64) int64 {
    if a < b {
        return a
    } else {
        return b
    }
}

func max64(a int64, b int64) int64 {
    if a > b {
        return a
    } else {
        return b
    }
}

func (self *Type) String() string {
    switch self.kind {
        case KTop    : return "Top"
        case KBottom : return "Bot"
        case KCtrl   : return "Ctrl"
        case KXCtrl  : return "~Ctrl"
        case KInt    : return self.intString()
        case KMem    : return self.memString()
        case KPtr    : return self.ptrString()
        case KTuple  : return self.tupleString()
        default      : return fmt.Sprintf("Type(%d)", self.kind)
    }
}

func (self *Type) intString() string {
    switch {
        case self == IntTop     : return "~int"
        case self == IntBot     : return "int"
        case self.IsConstant()  : return fmt.Sprint(self.lo)
        default                 : return fmt.Sprintf("[%d,%d]", self.lo, self.hi)
    }
}

func (self *Type) memString() string {
    sb := "#mem"
    if self.high {
        sb = "~" + sb
    }
    if self.alias != 0 {
        sb += fmt.Sprint(self.alias)
    }
    return sb
}

func (self *Type) ptrString() string {
    var sb string
    switch {
        case self == PtrTop           : return "~ptr"
        case self == Null             : return "null"
        case self.obj == _AnyObject   : sb = "ptr"
        default                       : sb = "*" + self.obj
    }
    if self.null {
        sb += "?"
    }
    return sb
}

func (self *Type) tupleString() string {
    ret := make([]string, len(self.elems))
    for i, e := range self.elems {
        ret[i] = e.String()
    }
    return "[" + strings.Join(ret, ", ") + "]"
}
