// Package mmap maps stored volumes read-only into memory.
//
// Local volume reads use the mapping directly: a time slice is a subslice of
// the mapped file and is handed to the kernel invoker without a copy.
//
//	m, err := mmap.Open("run.vol")
//	if err != nil { ... }
//	defer m.Close()
//
//	m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) and madvise(2); Windows uses CreateFileMapping and
// MapViewOfFile, where access hints are ignored.
//
// Callers must not touch Bytes() after Close returns.
package mmap
