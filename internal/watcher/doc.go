// Package watcher re-runs the batch when the input directory changes.
//
// Changes are detected with fsnotify. Bursts of events (a copy of many files,
// an editor saving in several steps) are coalesced: a run starts once no
// relevant event has arrived for the debounce period. An optional rescan
// interval triggers runs even without events, which covers network
// filesystems that do not deliver inotify events.
package watcher
