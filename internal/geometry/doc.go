// Package geometry defines the value model carried through a pipe.
//
// Every payload kind is listed in the closed Kind enumeration and implements
// Value. Equality is structural: a comparison first checks that both sides
// are the same kind, then compares each defining field under a Tolerance and
// recurses into nested values. Comparisons never panic and never report an
// error; mismatched or nil operands are simply unequal.
//
// Parameterized types (NurbsCurve, NurbsSurface) store their knot vectors
// normalized to [0,1]. Hosts hand in native knots together with their native
// Domain and read them back rescaled to whatever domain the destination uses.
package geometry
