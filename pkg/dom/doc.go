// Package dom is a small, single-threaded document model over
// golang.org/x/net/html node trees. It provides the pieces the repeater
// controller needs from a browser: lookup by id, structural fragment
// construction, node insertion/removal and synchronous click dispatch that
// bubbles from the target element up to the document.
//
// Listeners run to completion on the goroutine that dispatched the event. A
// Document must not be shared across goroutines without external locking.
package dom
