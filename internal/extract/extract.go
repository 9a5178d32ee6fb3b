// Package extract converts uploaded document bytes into plain text.
package extract

import "context"

// Extractor turns a PDF byte stream into plain text. Malformed input
// returns an error; extraction of a pathological document may take
// arbitrarily long and is not cancellable once the underlying parser
// has started.
type Extractor interface {
	Text(ctx context.Context, data []byte) (string, error)
}
