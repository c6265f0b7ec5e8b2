// Package progress renders batch progress for the command line.
package progress
