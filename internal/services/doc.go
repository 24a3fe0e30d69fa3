// Package services defines the shared error taxonomy for shelfsync's
// external collaborators and the worker loop's failure classification.
package services
