// Package release builds one muxed release per project unit.
//
// A build resolves nothing itself: it takes a project.Unit whose sources are
// already located and runs
//
//	probe premux → merge → clean → chapters → swap → forced → write → mux
//
// Episodes produce a full subtitle track, an honorifics track and, for dubbed
// premuxes with a forced source, a signs/songs track. Creditless units carry
// a single subtitle track and no swap. Optional sources the unit lacks are
// logged as skip decisions; only a missing dialogue script fails a build.
//
// Every build gets a run id that tags its log lines and its history row.
package release
