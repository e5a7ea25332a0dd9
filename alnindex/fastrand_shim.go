// The pinned github.com/grailbio/hts/sam linknames sync.fastrand,
// which no longer exists in the Go runtime as of go1.21. Re-export
// runtime.fastrand under the old symbol so the free pool still links.
package alnindex

import _ "unsafe"

//go:linkname runtimeFastrand runtime.fastrand
func runtimeFastrand() uint32

//go:linkname syncFastrand sync.fastrand
func syncFastrand() uint32 { return runtimeFastrand() }
