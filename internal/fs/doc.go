// Package fs abstracts the file writes of the local blob store.
//
// Reads go through memory mappings and never touch this package; writes,
// renames and removals do, so tests can swap in a [FaultyFS] and make a
// volume write fail at a chosen byte offset, on sync or on close:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("run.vol", fs.Fault{FailOnSync: true})
//	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
package fs
