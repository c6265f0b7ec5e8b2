// Package watcher turns a directory into a drop box: media files that appear
// anywhere under it are submitted to the runner once they stop changing.
// Files carrying the output suffix are ignored so results are never
// compressed again.
package watcher
