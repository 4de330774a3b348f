package errors

import "fmt"

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *LookoutError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *LookoutError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// WatchFailed creates a watcher setup failure error
func WatchFailed(dir string, err error) *LookoutError {
	return Wrap(err, ErrCodeWatchFailed, fmt.Sprintf("failed to watch directory: %s", dir)).
		WithDetail("dir", dir)
}

// ScanFailed creates a directory scan failure error
func ScanFailed(dir string, err error) *LookoutError {
	return Wrap(err, ErrCodeScanFailed, fmt.Sprintf("failed to scan directory: %s", dir)).
		WithDetail("dir", dir)
}

// BadLocator creates an unresolvable locator error
func BadLocator(locator string, err error) *LookoutError {
	return Wrap(err, ErrCodeBadLocator, fmt.Sprintf("failed to resolve locator: %s", locator)).
		WithDetail("locator", locator)
}

// BadPattern creates an invalid ignore pattern error
func BadPattern(pattern string, err error) *LookoutError {
	return Wrap(err, ErrCodeBadPattern, fmt.Sprintf("invalid ignore pattern: %s", pattern)).
		WithDetail("pattern", pattern)
}
