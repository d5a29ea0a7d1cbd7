// Package tlmemory searches earlier translations of a show.
//
// A show directory holds one subdirectory per episode ("01", "SP1", "OVA")
// with the team's dialogue script and the closed captions it was timed
// against. Search finds a term in either file and pairs every hit with the
// lines of the other file that overlap it in time, so a translator can see
// how a phrase was rendered before.
package tlmemory
