// Package vision implements the recognition backend on Google Cloud
// Vision. It fetches blob bytes through the injected reader, requests a
// fixed feature set from the annotator API, and normalizes the response
// into the domain Annotation shape the rest of the system consumes.
package vision
