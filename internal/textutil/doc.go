// Package textutil holds small string helpers shared by the project and
// release packages.
package textutil
