// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and the image
// record store (defined in internal/store) to fulfill application features.
//
// ImageService is the job orchestrator: it accepts an upload, persists the
// pending record, schedules the background recognition unit, and answers
// every later status, history, deletion, and stats query against the store.
package service
