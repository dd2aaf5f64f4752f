// Package storage defines the persistence interfaces of the pipeline
// and utilities shared across their implementations: sentinel errors,
// storage key construction and validation.
//
// Two stores exist side by side. BlobStore holds dataset and artifact
// files (local filesystem or S3), ExperimentStore holds experiment
// records (memory or postgres).
package storage
