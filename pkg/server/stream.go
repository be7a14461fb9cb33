package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pario-ai/folio/pkg/chat"
)

type contentEvent struct {
	Content string `json:"content"`
}

type errorEvent struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// streamSSE relays reply fragments as server-sent events and returns the
// text that reached the client.
func streamSSE(ctx context.Context, w http.ResponseWriter, reply *chat.Reply) (string, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return relay(ctx, w, reply,
		func(w io.Writer, text string) error {
			data, err := json.Marshal(contentEvent{Content: text})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "data: %s\n\n", data)
			return err
		},
		func(w io.Writer, err error) {
			code := chat.StatusCode(err)
			data, _ := json.Marshal(errorEvent{Error: errorBody{
				Message: publicMessage(err),
				Type:    "folio_error",
				Code:    code,
			}})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
		},
		func(w io.Writer) {
			fmt.Fprint(w, "event: done\ndata: {}\n\n")
		},
	)
}

// streamText relays reply fragments as a plain text body.
func streamText(ctx context.Context, w http.ResponseWriter, reply *chat.Reply) (string, error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	return relay(ctx, w, reply,
		func(w io.Writer, text string) error {
			_, err := io.WriteString(w, text)
			return err
		},
		func(io.Writer, error) {},
		func(io.Writer) {},
	)
}

func relay(ctx context.Context, w http.ResponseWriter, reply *chat.Reply,
	onText func(io.Writer, string) error, onError func(io.Writer, error), onDone func(io.Writer),
) (string, error) {
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	var sent strings.Builder
	for {
		select {
		case c, ok := <-reply.Stream:
			if !ok {
				onDone(w)
				flush()
				return sent.String(), nil
			}
			if c.Err != nil {
				onError(w, c.Err)
				flush()
				return sent.String(), c.Err
			}
			if err := onText(w, c.Text); err != nil {
				return sent.String(), err
			}
			sent.WriteString(c.Text)
			flush()
		case <-ctx.Done():
			return sent.String(), &chat.Error{Kind: chat.KindCanceled, Stage: "stream", Err: ctx.Err()}
		}
	}
}
