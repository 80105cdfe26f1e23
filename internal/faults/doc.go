// Package faults defines the error markers shared by the publish pipeline.
//
// Components wrap low-level failures with Wrap so callers can classify an
// error with errors.Is against one of the markers while the original cause
// stays reachable for logging.
package faults
