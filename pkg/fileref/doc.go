// Package fileref creates FileRefs, the {url, start, end, mime type} records
// downstream processing consumes, for items whose data type is known.
package fileref
