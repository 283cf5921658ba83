// Package compiler turns one logical Ruby module into a standalone JavaScript
// file by invoking the external Opal compiler.
//
// Sources are looked up through an explicit, ordered list of roots. The first
// root containing <logical>.rb wins, so local overrides placed in the first
// root shadow the upstream tree.
package compiler
