// Package textutil names the files bookforge writes: the per-order archive and
// the entries inside it.
package textutil
