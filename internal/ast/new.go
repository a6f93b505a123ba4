package ast

import "github.com/simlin-go/core/internal/ident"

// This file collects exported constructors for every node kind so that
// internal/elaborate (building Expr2 from Expr0) and internal/stdlib
// (synthesizing equations for builtin modules) never need to reach into an
// unexported field.

func NewNumberLit2(sp Span, v float64) *NumberLit2 { return &NumberLit2{base{sp}, v} }
func NewVar2(sp Span, name ident.Canonical) *Var2   { return &Var2{base{sp}, name} }
func NewTime2(sp Span) *Time2                       { return &Time2{base{sp}} }
func NewIndex2(sp Span, x Expr2, idx []int) *Index2 { return &Index2{base{sp}, x, idx} }
func NewUnary2(sp Span, op string, x Expr2) *Unary2 { return &Unary2{base{sp}, op, x} }
func NewBinary2(sp Span, op string, x, y Expr2) *Binary2 {
	return &Binary2{base{sp}, op, x, y}
}
func NewIf2(sp Span, cond, then, els Expr2) *If2 { return &If2{base{sp}, cond, then, els} }
func NewCall2(sp Span, builtin ident.Canonical, args []Expr2) *Call2 {
	return &Call2{base{sp}, builtin, args}
}
func NewLookup2(sp Span, of ident.Canonical, x Expr2) *Lookup2 {
	return &Lookup2{base{sp}, of, x}
}
func NewModuleOutput2(sp Span, instance, port ident.Canonical) *ModuleOutput2 {
	return &ModuleOutput2{base{sp}, instance, port}
}

func NewStringLit0(sp Span, v string) *StringLit0 { return &StringLit0{base{sp}, v} }
func NewTime0(sp Span) *Time0                     { return &Time0{base{sp}} }
func NewSubscript0(sp Span, x Expr0, idx []DimIndex0) *Subscript0 {
	return &Subscript0{base{sp}, x, idx}
}
func NewUnary0(sp Span, op string, x Expr0) *Unary0 { return &Unary0{base{sp}, op, x} }
func NewBinary0(sp Span, op string, x, y Expr0) *Binary0 {
	return &Binary0{base{sp}, op, x, y}
}
func NewIf0(sp Span, cond, then, els Expr0) *If0 { return &If0{base{sp}, cond, then, els} }
func NewCall0(sp Span, builtin ident.Canonical, args []Expr0) *Call0 {
	return &Call0{base{sp}, builtin, args}
}
func NewModuleRef0(sp Span, instance, port ident.Ident) *ModuleRef0 {
	return &ModuleRef0{base{sp}, instance, port}
}
