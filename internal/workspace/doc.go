// Package workspace owns the pipeline's transient build directory and the
// destructive reset primitive shared with the publisher.
//
// Reset deletes a directory tree (tolerating its absence) and then recreates
// it empty. Deleting before creating means a reset interrupted halfway can
// simply be run again.
package workspace
