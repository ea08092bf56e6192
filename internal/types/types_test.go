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
    `math`
    `testing`

    `github.com/stretchr/testify/require`
)

func TestTypes_Interning(t *testing.T) {
    require.Same(t, Int(42), Int(42))
    require.Same(t, Range(0, 1), Bool)
    require.Same(t, Tuple(Ctrl, XCtrl), IfTrue)
    require.Same(t, IntTop, Range(3, 2))
    require.NotSame(t, Int(1), Int(2))
}

func TestTypes_IntMeetJoin(t *testing.T) {
    require.Same(t, Range(1, 5), Int(1).Meet(Int(5)))
    require.Same(t, Int(3), IntTop.Meet(Int(3)))
    require.Same(t, IntBot, IntBot.Meet(Int(3)))
    require.Same(t, Range(2, 3), Range(0, 3).Join(Range(2, 9)))
    require.Same(t, IntTop, Int(1).Join(Int(2)))
    require.Same(t, Int(7), IntBot.Join(Int(7)))
    require.Same(t, Bottom, Int(1).Meet(Ctrl))
    require.Same(t, Top, Int(1).Join(Ctrl))
}

func TestTypes_Control(t *testing.T) {
    require.Same(t, Ctrl, Ctrl.Meet(XCtrl))
    require.Same(t, XCtrl, Ctrl.Join(XCtrl))
    require.Same(t, IfBoth, IfTrue.Meet(IfFalse))
    require.Same(t, IfNeither, IfTrue.Join(IfFalse))
    require.True(t, XCtrl.IsHigh())
    require.False(t, Ctrl.IsHighOrConst())
}

func TestTypes_Memory(t *testing.T) {
    require.Same(t, Mem(3), MemHigh(3).Meet(Mem(3)))
    require.Same(t, Mem(3), MemTop.Meet(Mem(3)))
    require.Same(t, MemBot, Mem(3).Meet(Mem(4)))
    require.Same(t, Mem(4), MemBot.Join(Mem(4)))
    require.Same(t, MemHigh(4), Mem(4).Join(MemHigh(4)))
    require.Equal(t, "~#mem4", MemHigh(4).String())
}

func TestTypes_Pointers(t *testing.T) {
    p := Ptr("Point", false)
    require.Same(t, Ptr("Point", true), p.Meet(Null))
    require.Same(t, PtrBot, p.Meet(Ptr("Line", true)))
    require.Same(t, p, PtrTop.Meet(p))
    require.Same(t, p, Ptr("Point", true).Join(p))
    require.Same(t, Null, Ptr("Point", true).Join(Ptr("Line", true)))
    require.Same(t, PtrTop, p.Join(Null))
    require.True(t, Null.IsConstant())
    require.Equal(t, "*Point?", Ptr("Point", true).String())
}

func TestTypes_Lattice(t *testing.T) {
    all := []*Type {
        Top, Bottom, Ctrl, XCtrl,
        IntTop, IntBot, Zero, One, Bool, Int(-3), Range(-5, 5),
        MemTop, MemBot, Mem(1), MemHigh(1), Mem(2),
        PtrTop, PtrBot, Null, Ptr("A", false), Ptr("A", true), Ptr("B", false),
    }
    for _, a := range all {
        require.Same(t, a, a.Meet(a), a.String())
        require.Same(t, Bottom, a.Meet(Bottom), a.String())
        require.Same(t, a, a.Meet(Top), a.String())
        for _, b := range all {
            m := a.Meet(b)
            require.Same(t, m, b.Meet(a), "%s meet %s", a, b)
            require.True(t, a.IsA(m), "%s isa %s", a, m)
            require.True(t, b.IsA(m), "%s isa %s", b, m)
            j := a.Join(b)
            require.Same(t, j, b.Join(a), "%s join %s", a, b)
        }
    }
}

func TestTypes_Widen(t *testing.T) {
    require.Same(t, Bool, Range(0, 1).Widen())
    require.Same(t, Range(math.MinInt8, math.MaxInt8), Range(-1, 1).Widen())
    require.Same(t, Range(0, math.MaxUint8), Range(0, 200).Widen())
    require.Same(t, IntBot, Range(-1, math.MaxUint32).Widen())
    require.Same(t, Int(5), Int(5).Widen())
    require.Same(t, Ctrl, Ctrl.Widen())
}

func TestTypes_Glb(t *testing.T) {
    require.Same(t, IntBot, Int(3).Glb())
    require.Same(t, Mem(2), MemHigh(2).Glb())
    require.Same(t, Ptr("A", true), Ptr("A", false).Glb())
    require.Same(t, PtrBot, Null.Glb())
    require.Same(t, Tuple(Ctrl, IntBot), Tuple(XCtrl, Int(1)).Glb())
}

func TestTypes_Dual(t *testing.T) {
    require.Same(t, Top, Bottom.Dual())
    require.Same(t, IntBot, IntTop.Dual())
    require.Same(t, Int(4), Int(4).Dual())
    require.Same(t, Ctrl, XCtrl.Dual())
    require.Same(t, MemHigh(1), Mem(1).Dual())
}
