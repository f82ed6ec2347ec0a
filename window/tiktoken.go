package window

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultTiktokenEncoding is the encoding used when none is specified.
// cl100k_base matches GPT-3.5/4 tokenization and is close enough for
// Claude-family budget checks.
const DefaultTiktokenEncoding = "cl100k_base"

// TiktokenEstimator produces exact BPE token counts using tiktoken.
// It is slower than CharEstimator but exact for models sharing the
// configured encoding.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator loads the named tiktoken encoding. An empty name
// selects DefaultTiktokenEncoding. Loading may fetch the encoding file on
// first use; construction fails rather than silently degrading.
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	if encoding == "" {
		encoding = DefaultTiktokenEncoding
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}

	return &TiktokenEstimator{enc: enc}, nil
}

// Estimate returns the exact token count for text under the configured
// encoding.
func (e *TiktokenEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, nil, nil))
}
