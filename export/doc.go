// Package export writes analysis reports as xlsx workbooks or JSON.
package export
