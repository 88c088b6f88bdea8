// Package storage defines the persistence model and store interfaces for the
// catalog: users (credentials, active sessions, profile), contents, ratings,
// comments, lists and the per-user watch status table.
//
// The postgres subpackage implements the interfaces against PostgreSQL with
// hand-written SQL; the s3 subpackage provides blob storage for poster and
// avatar images.
package storage
