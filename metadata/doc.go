// Package metadata converts storage engine table descriptions into adapter
// objects: column metadata, index definitions, row values and index keys.
package metadata
