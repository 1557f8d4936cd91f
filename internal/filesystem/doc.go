/*
Package filesystem wraps the file operations pixelbox performs on its input,
output and database volumes with retry logic for NFS stale file handle errors.

Only ESTALE (errno 116) triggers a retry; every other error is returned on the
first attempt. Retries back off exponentially from InitialBackoff up to
MaxBackoff.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

Each operation reports its outcome to the Observer registered with
SetObserver, labeled with the volume name resolved from the path by the
default VolumeResolver ("input", "output", "database"). The metrics package
provides the Observer so this package does not import it.
*/
package filesystem
