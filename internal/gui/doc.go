// Package gui hosts the local HTTP API that desktop front ends and scripts
// use to drive the pipeline: status and dependency reporting, run history,
// and synchronous processing requests. Rendering is left entirely to the
// client; this package only speaks JSON.
package gui
