package chat

import (
	"context"
	"strings"

	"github.com/pario-ai/folio/pkg/llm"
)

// Tee forwards non-empty fragments from in while accumulating them. When in
// closes without an error chunk and ctx is still live, onComplete receives
// the full text after the returned stream has been closed. Error chunks are
// forwarded as *Error and suppress onComplete. The second channel is closed
// once onComplete has returned or been skipped.
func Tee(ctx context.Context, in <-chan llm.Chunk, onComplete func(string)) (<-chan llm.Chunk, <-chan struct{}) {
	out := make(chan llm.Chunk)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var acc strings.Builder
		failed := false
		for c := range in {
			if c.Err != nil {
				failed = true
				c.Err = classify("generate", c.Err)
			} else if c.Text == "" {
				continue
			} else {
				acc.WriteString(c.Text)
			}
			select {
			case out <- c:
			case <-ctx.Done():
				close(out)
				go drain(in)
				return
			}
		}
		// Checked before closing out: the caller may cancel ctx as soon as
		// the stream ends.
		complete := !failed && ctx.Err() == nil && acc.Len() > 0 && onComplete != nil
		close(out)
		if complete {
			onComplete(acc.String())
		}
	}()
	return out, done
}

func drain(in <-chan llm.Chunk) {
	for range in {
	}
}

// Collect reads a reply stream to the end and returns the full answer.
func Collect(ctx context.Context, r *Reply) (string, error) {
	var b strings.Builder
	for {
		select {
		case c, ok := <-r.Stream:
			if !ok {
				return b.String(), nil
			}
			if c.Err != nil {
				return b.String(), c.Err
			}
			b.WriteString(c.Text)
		case <-ctx.Done():
			return b.String(), classify("collect", ctx.Err())
		}
	}
}
